package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/garderieflow/backoffice/api"
	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/config"
	"github.com/garderieflow/backoffice/core"
	"github.com/garderieflow/backoffice/store/sqlstore"
)

// app is what every command needs.
type app struct {
	cfg     *config.Config
	store   *sqlstore.Store
	handler *api.Handler
}

func bootstrap(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := sqlstore.Open(sqlstore.Options{
		Driver:       cfg.Database.Driver,
		Path:         cfg.Database.Path,
		DSN:          cfg.Database.DSN,
		LogLevel:     cfg.Database.LogLevel,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	clock := calendar.SystemClock{Location: loc}
	return &app{
		cfg:     cfg,
		store:   store,
		handler: api.NewHandler(store, clock, cfg.Notifier.Thresholds),
	}, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the expiry scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*configPath)
		},
	}
}

func serve(configPath string) error {
	a, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer a.store.Close()

	router := api.NewRouter(a.handler, api.RouterOptions{
		JWTSecret:      a.cfg.JWT.Secret,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Scenarios:      !a.cfg.IsRelease(),
	})

	scheduler := api.NewExpiryScheduler(a.store, a.handler)
	scheduler.Enabled = a.cfg.Scheduler.Enabled
	if a.cfg.Scheduler.Interval > 0 {
		scheduler.CheckInterval = a.cfg.Scheduler.Interval
	}
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", a.cfg.Server.Port)
		log.Printf("📊 API available at http://localhost:%d/api", a.cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		scheduler.Stop()
		return fmt.Errorf("server failed: %w", err)
	}

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.store.Close()
			fmt.Printf("Schema up to date (%s).\n", a.cfg.Database.Driver)
			return nil
		},
	}
}

func sweepCmd(configPath *string) *cobra.Command {
	var orgID uint
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire enrollments whose end date has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.store.Close()

			return forEachOrganization(cmd.Context(), a.store, orgID, func(ctx context.Context, id uint) error {
				expired, err := a.handler.Enrollments.ExpireLapsed(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("org %d: %d enrollment(s) expired\n", id, len(expired))
				return nil
			})
		},
	}
	cmd.Flags().UintVar(&orgID, "org", 0, "only this organization (default: all)")
	return cmd
}

func checkExpirationsCmd(configPath *string) *cobra.Command {
	var (
		orgID      uint
		thresholds []int
	)
	cmd := &cobra.Command{
		Use:   "check-expirations",
		Short: "Stamp and list enrollments due an expiration notice",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.store.Close()

			var override []int
			if cmd.Flags().Changed("thresholds") {
				override = thresholds
			}
			return forEachOrganization(cmd.Context(), a.store, orgID, func(ctx context.Context, id uint) error {
				run, err := a.handler.Notifier.CheckExpirations(ctx, id, override)
				if err != nil {
					return err
				}
				fmt.Printf("org %d: run %s, %d notice(s)\n", id, run.ID, len(run.Notices))
				for _, n := range run.Notices {
					fmt.Printf("  enrollment %d (student %d) ends %s, %d day(s) left\n",
						n.EnrollmentID, n.StudentID, n.EndDate, n.DaysLeft)
				}
				return nil
			})
		},
	}
	cmd.Flags().UintVar(&orgID, "org", 0, "only this organization (default: all)")
	cmd.Flags().IntSliceVar(&thresholds, "thresholds", nil, "days-left values, e.g. 0,1,3,7 (default: config)")
	return cmd
}

func orgCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations",
	}

	var name, email string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an organization and seed its system categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.store.Close()

			org := core.Organization{CompanyName: name, Email: email}
			if err := a.store.CreateOrganization(cmd.Context(), &org); err != nil {
				return err
			}
			fmt.Printf("Created organization %d (%s)\n", org.ID, org.CompanyName)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "company name")
	create.Flags().StringVar(&email, "email", "", "contact email")

	cmd.AddCommand(create)
	return cmd
}

func demoCmd(configPath *string) *cobra.Command {
	var scenario, name string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Create an organization filled with a demo scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.store.Close()

			if scenario == "" {
				for _, s := range api.Scenarios() {
					fmt.Printf("%-16s %s\n", s.ID, s.Description)
				}
				return nil
			}

			org := core.Organization{CompanyName: name}
			if err := a.store.CreateOrganization(cmd.Context(), &org); err != nil {
				return err
			}
			if err := a.handler.LoadScenarioInto(cmd.Context(), org.ID, scenario); err != nil {
				return fmt.Errorf("load %s: %w", scenario, err)
			}
			fmt.Printf("Loaded %q into organization %d (%s)\n", scenario, org.ID, org.CompanyName)
			return nil
		},
	}
	cmd.Flags().StringVar(&scenario, "scenario", "", "scenario id (empty lists them)")
	cmd.Flags().StringVar(&name, "name", "Demo Garderie", "company name of the new organization")
	return cmd
}

// forEachOrganization runs fn for orgID, or for every organization when
// orgID is zero. Failures are reported and the remaining organizations
// still run.
func forEachOrganization(ctx context.Context, dir core.Directory, orgID uint, fn func(context.Context, uint) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ids := []uint{orgID}
	if orgID == 0 {
		var err error
		if ids, err = dir.OrganizationIDs(ctx); err != nil {
			return err
		}
	}

	var failed int
	for _, id := range ids {
		if err := fn(ctx, id); err != nil {
			log.Printf("org %d: %v", id, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d organization(s) failed", failed)
	}
	return nil
}
