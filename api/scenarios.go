/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate an organization with
	realistic data for demos and manual testing. Each scenario goes
	through the same services as the API (payments, enrollments,
	expenses, attendance), so the data obeys every ledger and
	enrollment rule.

AVAILABLE SCENARIOS:

	new-garderie:    Three children, one payment each, parents on file
	busy-month:      A month of payments, expenses and attendance
	renewal-season:  Enrollments ending over the coming week plus one lapsed

HOW SCENARIOS WORK:
 1. Create students (and parent contacts)
 2. Record payments, which open or extend enrollments
 3. Add enrollments by hand where dates matter
 4. Record expenses and attendance

Dates are relative to the handler's clock, so a scenario always looks
current.

USAGE VIA API (disabled in release mode):

	GET  /api/scenarios
	POST /api/scenarios/load
	{"scenario_id": "renewal-season"}

USAGE VIA CLI:

	./server demo --scenario busy-month --name "Les Petits Loups"

NOTE:

	Scenarios add to the caller's organization; nothing is reset.

SEE ALSO:
  - handlers.go: Services used by the loaders
  - cmd/server/commands.go: demo command
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garderieflow/backoffice/attendance"
	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
	"github.com/garderieflow/backoffice/enrollment"
	"github.com/garderieflow/backoffice/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-garderie",
		Name:        "New Garderie",
		Description: "Three children enrolled by a first payment, with parent contacts",
	},
	{
		ID:          "busy-month",
		Name:        "Busy Month",
		Description: "Payments, rent, salaries and food expenses, and daily attendance for the current month",
	},
	{
		ID:          "renewal-season",
		Name:        "Renewal Season",
		Description: "Enrollments ending today, tomorrow, in 3 and 7 days, and one already lapsed",
	},
}

// Scenarios lists the demo scenarios.
func Scenarios() []ScenarioDTO {
	return append([]ScenarioDTO(nil), scenarios...)
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario into the caller's organization.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !bind(w, r, &req, false) {
		return
	}

	if err := h.LoadScenarioInto(r.Context(), orgID(r), req.ScenarioID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// LoadScenarioInto runs the named scenario for orgID.
func (h *Handler) LoadScenarioInto(ctx context.Context, orgID uint, scenarioID string) error {
	if _, err := h.Store.GetOrganization(ctx, orgID); err != nil {
		return err
	}

	switch scenarioID {
	case "new-garderie":
		return h.loadNewGarderieScenario(ctx, orgID)
	case "busy-month":
		return h.loadBusyMonthScenario(ctx, orgID)
	case "renewal-season":
		return h.loadRenewalSeasonScenario(ctx, orgID)
	default:
		return core.Invalid("scenario_id", "unknown scenario %q", scenarioID)
	}
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadNewGarderieScenario(ctx context.Context, orgID uint) error {
	today := calendar.Today(h.Clock)

	families := []struct {
		child, parent, lastname, phone string
		relation                       core.Relation
	}{
		{"Lea", "Claire", "Martin", "+33 6 11 22 33 44", core.RelationMother},
		{"Hugo", "Marc", "Bernard", "+33 6 55 66 77 88", core.RelationFather},
		{"Ines", "Fatou", "Diallo", "+221 77 123 45 67", core.RelationGuardian},
	}
	for _, f := range families {
		st, err := h.addDemoStudent(ctx, orgID, f.child, f.lastname, today.AddMonths(-1))
		if err != nil {
			return err
		}
		if err := h.Store.AddContact(ctx, orgID, &core.ParentContact{
			StudentID:   st.ID,
			Type:        core.ContactMobile,
			Value:       f.phone,
			IsPrincipal: true,
			Firstname:   f.parent,
			Lastname:    f.lastname,
			Relation:    f.relation,
		}); err != nil {
			return err
		}
		if _, err := h.Enrollments.RecordPayment(ctx, orgID, enrollment.Payment{
			StudentID:     st.ID,
			Amount:        decimal.NewFromInt(350),
			PaymentMethod: core.PaymentCash,
			Date:          today.Ptr(),
			Comment:       "first month",
		}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadBusyMonthScenario(ctx context.Context, orgID uint) error {
	today := calendar.Today(h.Clock)
	first := calendar.MonthStart(today)

	names := []string{"Lea", "Hugo", "Ines", "Noah", "Jade"}
	students := make([]uint, 0, len(names))
	for i, name := range names {
		st, err := h.addDemoStudent(ctx, orgID, name, "Durand", first.AddMonths(-2))
		if err != nil {
			return err
		}
		students = append(students, st.ID)

		method := core.PaymentMobileMoney
		if i%2 == 0 {
			method = core.PaymentTransfer
		}
		if _, err := h.Enrollments.RecordPayment(ctx, orgID, enrollment.Payment{
			StudentID:     st.ID,
			Amount:        decimal.NewFromInt(320),
			PaymentMethod: method,
			Date:          first.Ptr(),
			Reference:     fmt.Sprintf("DEMO-%s-%d", first.Time.Format("200601"), i+1),
		}); err != nil {
			return err
		}
	}

	categories, err := h.categoryIDs(ctx, orgID)
	if err != nil {
		return err
	}
	expenses := []struct {
		category string
		amount   string
		day      int
	}{
		{"Rent", "900", 1},
		{"Salaries", "1200", 1},
		{"Food", "184.60", 3},
		{"Supplies", "42.15", 5},
		{"Food", "96.30", 10},
	}
	for _, e := range expenses {
		date := first.AddDays(e.day - 1)
		if date.After(today) {
			date = today
		}
		id := categories[e.category]
		if _, err := h.Ledger.RecordExpense(ctx, orgID, ledger.Entry{
			Amount:        decimal.RequireFromString(e.amount),
			PaymentMethod: core.PaymentTransfer,
			Date:          &date,
			CategoryID:    &id,
		}); err != nil {
			return err
		}
	}

	// Attendance for every weekday so far; one child off each Wednesday.
	for d := first; !d.After(today); d = d.AddDays(1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		entries := make([]attendance.Entry, len(students))
		for i, id := range students {
			entries[i] = attendance.Entry{StudentID: id, Status: core.AttendancePresent, ArrivalTime: "08:00", DepartureTime: "17:00"}
		}
		if d.Weekday() == time.Wednesday {
			entries[len(entries)-1] = attendance.Entry{StudentID: students[len(students)-1], Status: core.AttendanceExcused, Notes: "half day"}
		}
		if _, err := h.Attendance.Record(ctx, orgID, d, entries); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadRenewalSeasonScenario(ctx context.Context, orgID uint) error {
	today := calendar.Today(h.Clock)

	for i, daysLeft := range []int{0, 1, 3, 7, -5} {
		st, err := h.addDemoStudent(ctx, orgID, fmt.Sprintf("Child%d", i+1), "Moreau", today.AddMonths(-3))
		if err != nil {
			return err
		}
		end := today.AddDays(daysLeft)
		if _, err := h.Enrollments.AddEnrollment(ctx, orgID, enrollment.NewEnrollment{
			StudentID: st.ID,
			StartDate: end.AddDays(-enrollment.DefaultDurationDays),
			EndDate:   &end,
			Amount:    decimal.NewFromInt(300),
		}); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) addDemoStudent(ctx context.Context, orgID uint, firstname, lastname string, inscription calendar.Date) (*core.Student, error) {
	st := core.Student{
		OrganizationID:  orgID,
		Firstname:       firstname,
		Lastname:        lastname,
		InscriptionDate: inscription,
		Status:          core.StudentActive,
	}
	if err := h.Store.CreateStudent(ctx, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (h *Handler) categoryIDs(ctx context.Context, orgID uint) (map[string]uint, error) {
	cats, err := h.Store.Categories(ctx, orgID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]uint, len(cats))
	for _, c := range cats {
		ids[c.Label] = c.ID
	}
	return ids, nil
}
