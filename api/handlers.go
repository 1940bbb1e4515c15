/*
handlers.go - HTTP API handlers for the back office

PURPOSE:
  Exposes the ledger, enrollment, report and attendance services via REST.
  Handles HTTP request/response and JSON serialization, and delegates to
  the domain packages. Every handler works on the organization resolved
  from the bearer token (auth.go).

ENDPOINTS:
  Ledger:
    POST   /api/transactions/payment     Record a payment (extends enrollment)
    POST   /api/transactions/expense     Record an expense
    GET    /api/transactions             List transactions
    GET    /api/balance                  Current balance
    GET    /api/expenses/by-category     Month expenses per category

  Enrollments:
    POST   /api/enrollments              Add an enrollment
    GET    /api/enrollments              List enrollments
    POST   /api/enrollments/{id}/renew   Renew
    POST   /api/enrollments/{id}/terminate Terminate
    POST   /api/enrollments/check        Expiration check
    POST   /api/enrollments/sweep        Expire lapsed enrollments

  Reports:
    GET    /api/reports/monthly          Monthly report
    GET    /api/reports/annual           Annual report
    GET    /api/reports/annual/export    Annual report as .xlsx
    GET    /api/dashboard                Dashboard

  Attendance:
    POST   /api/attendance               Record a day
    GET    /api/attendance/report        Grouped counts

REQUEST FLOW:
  1. Decode and validate the body or query
  2. Call the service with the caller's organization id
  3. Convert the result to DTOs
  4. Map errors with respondError

SEE ALSO:
  - dto.go: Request/response data structures
  - roster.go: Students, contacts and categories
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/garderieflow/backoffice/attendance"
	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
	"github.com/garderieflow/backoffice/enrollment"
	"github.com/garderieflow/backoffice/ledger"
	"github.com/garderieflow/backoffice/report"
	"github.com/garderieflow/backoffice/store/sqlstore"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlstore.Store
	Clock       calendar.Clock
	Ledger      *ledger.Ledger
	Enrollments *enrollment.Service
	Notifier    *enrollment.Notifier
	Reports     *report.Aggregator
	Attendance  *attendance.Service
}

// NewHandler wires the services on top of store.
func NewHandler(store *sqlstore.Store, clock calendar.Clock, thresholds []int) *Handler {
	l := ledger.New(store, clock)
	return &Handler{
		Store:       store,
		Clock:       clock,
		Ledger:      l,
		Enrollments: enrollment.NewService(store, l, clock),
		Notifier:    enrollment.NewNotifier(store, clock, thresholds),
		Reports:     report.NewAggregator(store, l, clock),
		Attendance:  attendance.NewService(store, clock),
	}
}

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := h.Store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// RecordPayment books a payment and extends or opens the student's enrollment.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !bind(w, r, &req, false) {
		return
	}

	res, err := h.Enrollments.RecordPayment(r.Context(), orgID(r), enrollment.Payment{
		StudentID:     req.StudentID,
		Amount:        req.Amount,
		PaymentMethod: core.PaymentMethod(req.PaymentMethod),
		Date:          req.Date,
		DurationDays:  req.DurationDays,
		Reference:     req.Reference,
		Comment:       req.Comment,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, PaymentResultDTO{
		Transaction:       toTransactionDTO(*res.Transaction),
		Enrollment:        toEnrollmentDTO(*res.Enrollment),
		EnrollmentCreated: res.Created,
	})
}

// RecordExpense books an expense under a category.
func (h *Handler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if !bind(w, r, &req, false) {
		return
	}

	categoryID := req.CategoryID
	tx, err := h.Ledger.RecordExpense(r.Context(), orgID(r), ledger.Entry{
		Amount:        req.Amount,
		PaymentMethod: core.PaymentMethod(req.PaymentMethod),
		Date:          req.Date,
		StudentID:     req.StudentID,
		CategoryID:    &categoryID,
		Reference:     req.Reference,
		Comment:       req.Comment,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// ListTransactions supports ?type=gain|expense&student_id=&start=&end=.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.TransactionFilter{Type: core.TransactionType(q.Get("type"))}

	var err error
	if filter.StudentID, err = queryID(r, "student_id"); err != nil {
		respondError(w, err)
		return
	}
	if filter.From, err = queryDate(r, "start"); err != nil {
		respondError(w, err)
		return
	}
	if filter.To, err = queryDate(r, "end"); err != nil {
		respondError(w, err)
		return
	}

	txs, err := h.Ledger.Transactions(r.Context(), orgID(r), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Ledger.Balance(r.Context(), orgID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Balance: money(balance), AsOf: calendar.Today(h.Clock)})
}

// ExpensesByCategory defaults to the current month.
func (h *Handler) ExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	year, month, err := h.yearMonth(r)
	if err != nil {
		respondError(w, err)
		return
	}

	byCategory, err := h.Ledger.ExpensesByCategory(r.Context(), orgID(r), year, month)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExpensesByCategoryDTO{
		Year:       year,
		Month:      month,
		Categories: moneyMap(byCategory),
		Total:      money(ledger.Total(byCategory)),
	})
}

// =============================================================================
// ENROLLMENT HANDLERS
// =============================================================================

func (h *Handler) AddEnrollment(w http.ResponseWriter, r *http.Request) {
	var req EnrollmentRequest
	if !bind(w, r, &req, false) {
		return
	}

	e, err := h.Enrollments.AddEnrollment(r.Context(), orgID(r), enrollment.NewEnrollment{
		StudentID: req.StudentID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Amount:    req.Amount,
		Status:    core.EnrollmentStatus(req.Status),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEnrollmentDTO(*e))
}

// ListEnrollments supports ?student_id=&status=.
func (h *Handler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	filter := core.EnrollmentFilter{Status: core.EnrollmentStatus(r.URL.Query().Get("status"))}
	var err error
	if filter.StudentID, err = queryID(r, "student_id"); err != nil {
		respondError(w, err)
		return
	}

	es, err := h.Enrollments.Enrollments(r.Context(), orgID(r), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEnrollmentDTOs(es))
}

func (h *Handler) RenewEnrollment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req RenewRequest
	if !bind(w, r, &req, true) {
		return
	}

	e, err := h.Enrollments.RenewEnrollment(r.Context(), orgID(r), id, enrollment.Renewal{
		DurationDays: req.DurationDays,
		Amount:       req.Amount,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEnrollmentDTO(*e))
}

func (h *Handler) TerminateEnrollment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	e, err := h.Enrollments.TerminateEnrollment(r.Context(), orgID(r), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEnrollmentDTO(*e))
}

// CheckExpirations runs the expiration notifier for the caller's organization.
func (h *Handler) CheckExpirations(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !bind(w, r, &req, true) {
		return
	}

	run, err := h.Notifier.CheckExpirations(r.Context(), orgID(r), req.Thresholds)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckRunDTO(run))
}

func (h *Handler) SweepEnrollments(w http.ResponseWriter, r *http.Request) {
	expired, err := h.Enrollments.ExpireLapsed(r.Context(), orgID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	if expired == nil {
		expired = []uint{}
	}
	writeJSON(w, http.StatusOK, SweepDTO{Count: len(expired), Expired: expired})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := h.yearMonth(r)
	if err != nil {
		respondError(w, err)
		return
	}

	m, err := h.Reports.MonthlyReport(r.Context(), orgID(r), year, month)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyDTO(*m))
}

func (h *Handler) AnnualReport(w http.ResponseWriter, r *http.Request) {
	year, err := h.year(r)
	if err != nil {
		respondError(w, err)
		return
	}

	a, err := h.Reports.AnnualReport(r.Context(), orgID(r), year)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnnualDTO(a))
}

// ExportAnnualReport streams the annual report as an Excel workbook.
func (h *Handler) ExportAnnualReport(w http.ResponseWriter, r *http.Request) {
	year, err := h.year(r)
	if err != nil {
		respondError(w, err)
		return
	}

	a, err := h.Reports.AnnualReport(r.Context(), orgID(r), year)
	if err != nil {
		respondError(w, err)
		return
	}

	// Render fully before writing headers so a failure can still be a 500.
	var buf bytes.Buffer
	if err := report.WriteAnnualXLSX(&buf, a); err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", report.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="annual-report-%d.xlsx"`, year))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Reports.Dashboard(r.Context(), orgID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DashboardDTO{
		Balance:          money(d.Balance),
		UpcomingPayments: toEnrollmentDTOs(d.UpcomingPayments),
		ActiveStudents:   d.ActiveStudents,
		MonthExpenses:    moneyMap(d.MonthExpenses),
	})
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var req AttendanceRequest
	if !bind(w, r, &req, false) {
		return
	}

	entries := make([]attendance.Entry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = attendance.Entry{
			StudentID:     e.StudentID,
			Status:        core.AttendanceStatus(e.Status),
			ArrivalTime:   e.ArrivalTime,
			DepartureTime: e.DepartureTime,
			Notes:         e.Notes,
		}
	}

	n, err := h.Attendance.Record(r.Context(), orgID(r), req.Date, entries)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AttendanceRecordedDTO{Date: req.Date, Recorded: n})
}

// AttendanceReport supports ?start=&end=&period=daily|weekly|monthly.
func (h *Handler) AttendanceReport(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "start")
	if err != nil {
		respondError(w, err)
		return
	}
	to, err := queryDate(r, "end")
	if err != nil {
		respondError(w, err)
		return
	}

	rows, err := h.Attendance.Report(r.Context(), orgID(r), from, to, attendance.Period(r.URL.Query().Get("period")))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceRows(rows))
}

// =============================================================================
// HELPERS
// =============================================================================

// bind decodes the JSON body into dst and validates it. Unknown fields are
// rejected. With allowEmpty an empty body leaves dst at its zero value.
func bind(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !(allowEmpty && errors.Is(err, io.EOF)) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondError(w, err)
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, core.Invalid(name, "must be a positive integer, got %q", raw)
	}
	return uint(id), nil
}

func queryID(r *http.Request, name string) (*uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, core.Invalid(name, "must be a positive integer, got %q", raw)
	}
	v := uint(id)
	return &v, nil
}

func queryDate(r *http.Request, name string) (*calendar.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return nil, core.Invalid(name, "must be YYYY-MM-DD, got %q", raw)
	}
	return &d, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.Invalid(name, "must be an integer, got %q", raw)
	}
	return v, nil
}

// year reads ?year=, defaulting to the current year.
func (h *Handler) year(r *http.Request) (int, error) {
	year, err := queryInt(r, "year", calendar.Today(h.Clock).Year())
	if err != nil {
		return 0, err
	}
	return year, ledger.ValidateYear(year)
}

// yearMonth reads ?year=&month=, defaulting to the current month.
func (h *Handler) yearMonth(r *http.Request) (int, int, error) {
	today := calendar.Today(h.Clock)
	year, err := queryInt(r, "year", today.Year())
	if err != nil {
		return 0, 0, err
	}
	month, err := queryInt(r, "month", int(today.Month()))
	if err != nil {
		return 0, 0, err
	}
	return year, month, ledger.ValidateMonth(year, month)
}
