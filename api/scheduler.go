/*
scheduler.go - Automated enrollment maintenance

PURPOSE:
  Periodically walks every organization, expires enrollments whose end
  date has passed and runs the expiration notifier.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - One organization failing does not stop the others
  - Both jobs are idempotent, so overlapping with a manual call through
    /api/enrollments/sweep or /check is harmless

CONFIGURATION:
  - CheckInterval: How often to check (scheduler.interval, default 1 hour)
  - Enabled: Whether scheduler is active (scheduler.enabled)

USAGE:
  scheduler := NewExpiryScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - enrollment/sweep.go: ExpireLapsed
  - enrollment/notifier.go: CheckExpirations
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/garderieflow/backoffice/core"
)

// RunSummary counts what one pass did.
type RunSummary struct {
	Organizations int
	Expired       int
	Notified      int
	Failed        int
}

// ExpiryScheduler runs the sweep and the notifier for all organizations.
type ExpiryScheduler struct {
	Directory     core.Directory
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExpiryScheduler creates a new scheduler.
func NewExpiryScheduler(directory core.Directory, handler *Handler) *ExpiryScheduler {
	return &ExpiryScheduler{
		Directory:     directory,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (es *ExpiryScheduler) Start() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if !es.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	if es.ticker != nil {
		log.Println("[Scheduler] Already running")
		return
	}

	es.ticker = time.NewTicker(es.CheckInterval)
	es.stop = make(chan bool)
	es.wg.Add(1)

	go es.run(es.ticker, es.stop)

	log.Printf("[Scheduler] Started with check interval: %v", es.CheckInterval)
}

// Stop stops the scheduler.
func (es *ExpiryScheduler) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.ticker != nil {
		es.ticker.Stop()
		close(es.stop)
		es.wg.Wait()
		es.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (es *ExpiryScheduler) run(ticker *time.Ticker, stop <-chan bool) {
	defer es.wg.Done()

	// Run immediately on start
	es.checkAndProcess(context.Background())

	for {
		select {
		case <-ticker.C:
			es.checkAndProcess(context.Background())
		case <-stop:
			return
		}
	}
}

func (es *ExpiryScheduler) checkAndProcess(ctx context.Context) RunSummary {
	var summary RunSummary

	orgIDs, err := es.Directory.OrganizationIDs(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing organizations: %v", err)
		return summary
	}
	summary.Organizations = len(orgIDs)

	for _, orgID := range orgIDs {
		expired, err := es.Handler.Enrollments.ExpireLapsed(ctx, orgID)
		if err != nil {
			log.Printf("[Scheduler] Sweep failed for org %d: %v", orgID, err)
			summary.Failed++
			continue
		}
		summary.Expired += len(expired)

		run, err := es.Handler.Notifier.CheckExpirations(ctx, orgID, nil)
		if err != nil {
			log.Printf("[Scheduler] Expiration check failed for org %d: %v", orgID, err)
			summary.Failed++
			continue
		}
		summary.Notified += len(run.Notices)
	}

	if summary.Expired > 0 || summary.Notified > 0 || summary.Failed > 0 {
		log.Printf("[Scheduler] Completed: %d org(s), %d expired, %d notified, %d failed",
			summary.Organizations, summary.Expired, summary.Notified, summary.Failed)
	}
	return summary
}

// RunNow triggers an immediate pass (for the CLI and tests).
func (es *ExpiryScheduler) RunNow(ctx context.Context) RunSummary {
	return es.checkAndProcess(ctx)
}

// GetNextRunTime returns when the next scheduled check will occur.
func (es *ExpiryScheduler) GetNextRunTime() time.Time {
	return es.Handler.Clock.Now().Add(es.CheckInterval)
}
