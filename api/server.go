/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:               Request logging
  2. Recoverer:            Panic recovery (500 instead of crash)
  3. RequestID:            Unique ID per request for tracing
  4. CORS:                 Cross-origin requests for the front office
  5. RequireOrganization:  Bearer JWT, /api only

ROUTE GROUPS:
  /healthz                 Liveness, unauthenticated
  /api/transactions/*      Ledger
  /api/enrollments/*       Enrollment lifecycle and jobs
  /api/reports/*           Reports and export
  /api/attendance/*        Attendance
  /api/students/*          Students and their contacts
  /api/categories/*        Expense categories
  /api/scenarios/*         Demo data (not mounted in release mode)

TENANCY:
  Every /api route runs for the organization in the token's "sub" claim.
  Rows of other organizations are invisible (404), never forbidden (403).

SEE ALSO:
  - handlers.go, roster.go: Handler implementations
  - auth.go: Token check
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	JWTSecret      string
	AllowedOrigins []string
	// Scenarios mounts the demo scenario routes. Off in release mode.
	Scenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireOrganization(opts.JWTSecret))

		// Ledger routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/payment", h.RecordPayment)
			r.Post("/expense", h.RecordExpense)
		})
		r.Get("/balance", h.GetBalance)
		r.Get("/expenses/by-category", h.ExpensesByCategory)

		// Enrollment routes
		r.Route("/enrollments", func(r chi.Router) {
			r.Get("/", h.ListEnrollments)
			r.Post("/", h.AddEnrollment)
			r.Post("/check", h.CheckExpirations)
			r.Post("/sweep", h.SweepEnrollments)
			r.Post("/{id}/renew", h.RenewEnrollment)
			r.Post("/{id}/terminate", h.TerminateEnrollment)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/monthly", h.MonthlyReport)
			r.Get("/annual", h.AnnualReport)
			r.Get("/annual/export", h.ExportAnnualReport)
		})
		r.Get("/dashboard", h.Dashboard)

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/", h.RecordAttendance)
			r.Get("/report", h.AttendanceReport)
		})

		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Put("/{id}", h.UpdateStudent)
			r.Delete("/{id}", h.DeleteStudent)
			r.Post("/{id}/archive", h.ArchiveStudent)
			r.Post("/{id}/reactivate", h.ReactivateStudent)
			r.Get("/{id}/contacts", h.ListContacts)
			r.Post("/{id}/contacts", h.AddContact)
			r.Put("/{id}/contacts/{contactID}", h.UpdateContact)
			r.Delete("/{id}/contacts/{contactID}", h.DeleteContact)
		})

		// Category routes
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			r.Put("/{id}", h.RenameCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})

		// Scenario routes (development only)
		if opts.Scenarios {
			r.Get("/scenarios", h.ListScenarios)
			r.Post("/scenarios/load", h.LoadScenario)
		}
	})

	return r
}
