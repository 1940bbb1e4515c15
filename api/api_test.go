package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
	"github.com/garderieflow/backoffice/report"
	"github.com/garderieflow/backoffice/store/sqlstore"
)

const testSecret = "test-secret"

// =============================================================================
// FIXTURES
// =============================================================================

type testServer struct {
	store   *sqlstore.Store
	handler *Handler
	router  http.Handler
	orgID   uint
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlstore.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	org := core.Organization{CompanyName: "Les Petits Loups"}
	require.NoError(t, store.CreateOrganization(context.Background(), &org))

	clock := calendar.FixedClock{At: time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)}
	h := NewHandler(store, clock, nil)
	return &testServer{
		store:   store,
		handler: h,
		router:  NewRouter(h, RouterOptions{JWTSecret: testSecret, AllowedOrigins: []string{"*"}, Scenarios: true}),
		orgID:   org.ID,
		token:   signToken(t, org.ID, testSecret),
	}
}

func signToken(t *testing.T, orgID uint, secret string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(orgID), 10),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	return s.doAs(t, s.token, method, path, body)
}

func (s *testServer) doAs(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) createStudent(t *testing.T, first string) StudentDTO {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/students", map[string]any{
		"firstname": first,
		"lastname":  "Martin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[StudentDTO](t, rec)
}

func (s *testServer) categoryID(t *testing.T, label string) uint {
	t.Helper()
	cats, err := s.store.Categories(context.Background(), s.orgID)
	require.NoError(t, err)
	for _, c := range cats {
		if c.Label == label {
			return c.ID
		}
	}
	t.Fatalf("category %q not seeded", label)
	return 0
}

// =============================================================================
// AUTH
// =============================================================================

func TestAuth_RejectsMissingOrBadToken(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"wrong secret", signToken(t, s.orgID, "other-secret")},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.doAs(t, tt.token, http.MethodGet, "/api/balance", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuth_NonNumericSubject(t *testing.T) {
	s := newTestServer(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec := s.doAs(t, tok, http.MethodGet, "/api/balance", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz_IsPublic(t *testing.T) {
	s := newTestServer(t)

	rec := s.doAs(t, "", http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

// =============================================================================
// LEDGER
// =============================================================================

func TestRecordPayment_OpensEnrollment(t *testing.T) {
	// GIVEN: A student with no enrollment
	s := newTestServer(t)
	st := s.createStudent(t, "Lea")

	// WHEN: Posting a payment without date or duration
	rec := s.do(t, http.MethodPost, "/api/transactions/payment", map[string]any{
		"student_id":     st.ID,
		"amount":         "300.00",
		"payment_method": "cash",
	})

	// THEN: A gain is booked and a 30-day enrollment opened from today
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[PaymentResultDTO](t, rec)
	assert.True(t, res.EnrollmentCreated)
	assert.Equal(t, "gain", res.Transaction.Type)
	assert.Equal(t, "300.00", res.Transaction.Amount.String())
	assert.Equal(t, "2024-03-15", res.Enrollment.StartDate.String())
	require.NotNil(t, res.Enrollment.EndDate)
	assert.Equal(t, "2024-04-14", res.Enrollment.EndDate.String())

	bal := decode[BalanceDTO](t, s.do(t, http.MethodGet, "/api/balance", nil))
	assert.Equal(t, "300.00", bal.Balance.String())
	assert.Equal(t, "2024-03-15", bal.AsOf.String())
}

func TestRecordPayment_BodyErrors(t *testing.T) {
	s := newTestServer(t)
	st := s.createStudent(t, "Lea")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed", `{"student_id":`, http.StatusBadRequest},
		{"unknown field", map[string]any{"student_id": st.ID, "amount": 10, "payment_method": "cash", "organization_id": 9}, http.StatusBadRequest},
		{"zero amount", map[string]any{"student_id": st.ID, "amount": 0, "payment_method": "cash"}, http.StatusBadRequest},
		{"sub-cent amount", map[string]any{"student_id": st.ID, "amount": 0.004, "payment_method": "cash"}, http.StatusBadRequest},
		{"bad method", map[string]any{"student_id": st.ID, "amount": 10, "payment_method": "cheque"}, http.StatusBadRequest},
		{"unknown student", map[string]any{"student_id": 9999, "amount": 10, "payment_method": "cash"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/transactions/payment", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRecordExpense_ValidationDetails(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/transactions/expense", map[string]any{
		"amount":         0,
		"payment_method": "cash",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation", resp.Code)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "amount")
	assert.Contains(t, details, "category_id")
}

func TestExpensesByCategory_AndTransactionFilter(t *testing.T) {
	// GIVEN: Two March expenses and one payment
	s := newTestServer(t)
	st := s.createStudent(t, "Lea")
	rent := s.categoryID(t, "Rent")
	for _, amount := range []string{"700", "-50.25"} {
		rec := s.do(t, http.MethodPost, "/api/transactions/expense", map[string]any{
			"amount":         amount,
			"category_id":    rent,
			"payment_method": "transfer",
			"date":           "2024-03-02",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := s.do(t, http.MethodPost, "/api/transactions/payment", map[string]any{
		"student_id": st.ID, "amount": 300, "payment_method": "card",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: Reading March expenses (the current month by default)
	byCat := decode[ExpensesByCategoryDTO](t, s.do(t, http.MethodGet, "/api/expenses/by-category", nil))

	// THEN: Both are negative and summed under Rent
	assert.Equal(t, 2024, byCat.Year)
	assert.Equal(t, 3, byCat.Month)
	assert.Equal(t, "-750.25", byCat.Categories["Rent"].String())
	assert.Equal(t, "-750.25", byCat.Total.String())

	expenses := decode[[]TransactionDTO](t, s.do(t, http.MethodGet, "/api/transactions?type=expense", nil))
	assert.Len(t, expenses, 2)
	gains := decode[[]TransactionDTO](t, s.do(t, http.MethodGet, fmt.Sprintf("/api/transactions?student_id=%d", st.ID), nil))
	require.Len(t, gains, 1)
	assert.Equal(t, "gain", gains[0].Type)

	rec = s.do(t, http.MethodGet, "/api/transactions?start=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// ENROLLMENTS
// =============================================================================

func TestEnrollmentLifecycle(t *testing.T) {
	// GIVEN: An enrollment added by hand
	s := newTestServer(t)
	st := s.createStudent(t, "Lea")
	rec := s.do(t, http.MethodPost, "/api/enrollments", map[string]any{
		"student_id": st.ID,
		"start_date": "2024-03-01",
		"end_date":   "2024-03-31",
		"amount":     "250",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e := decode[EnrollmentDTO](t, rec)
	assert.Equal(t, "active", e.Status)

	// WHEN: Renewing it with an empty body
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/enrollments/%d/renew", e.ID), nil)

	// THEN: The new period starts the day after
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	renewed := decode[EnrollmentDTO](t, rec)
	assert.Equal(t, "2024-04-01", renewed.StartDate.String())
	assert.Equal(t, "250.00", renewed.Amount.String())

	// WHEN: Terminating it twice
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/enrollments/%d/terminate", renewed.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "terminated", decode[EnrollmentDTO](t, rec).Status)
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/enrollments/%d/terminate", renewed.ID), nil)

	// THEN: The second is a conflict
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", decode[ErrorResponse](t, rec).Code)

	list := decode[[]EnrollmentDTO](t, s.do(t, http.MethodGet, fmt.Sprintf("/api/enrollments?student_id=%d", st.ID), nil))
	assert.Len(t, list, 2)
}

func TestEnrollment_UnknownIDs(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/enrollments/9999/terminate", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/enrollments/abc/renew", nil).Code)
}

func TestCheckAndSweep(t *testing.T) {
	// GIVEN: One enrollment ending tomorrow and one that lapsed last week
	s := newTestServer(t)
	lea := s.createStudent(t, "Lea")
	hugo := s.createStudent(t, "Hugo")
	for _, e := range []map[string]any{
		{"student_id": lea.ID, "start_date": "2024-02-16", "end_date": "2024-03-16", "amount": 300},
		{"student_id": hugo.ID, "start_date": "2024-02-08", "end_date": "2024-03-08", "amount": 300},
	} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/enrollments", e).Code)
	}

	// WHEN: Running the check and the sweep
	check := s.do(t, http.MethodPost, "/api/enrollments/check", nil)
	sweep := s.do(t, http.MethodPost, "/api/enrollments/sweep", nil)

	// THEN: Lea is notified at 1 day left and Hugo's enrollment expires
	require.Equal(t, http.StatusOK, check.Code, check.Body.String())
	run := decode[CheckRunDTO](t, check)
	assert.NotEmpty(t, run.RunID)
	require.Equal(t, 1, run.Count)
	assert.Equal(t, lea.ID, run.Notified[0].StudentID)
	assert.Equal(t, 1, run.Notified[0].DaysLeft)

	require.Equal(t, http.StatusOK, sweep.Code, sweep.Body.String())
	assert.Equal(t, 1, decode[SweepDTO](t, sweep).Count)

	again := decode[SweepDTO](t, s.do(t, http.MethodPost, "/api/enrollments/sweep", nil))
	assert.Equal(t, 0, again.Count)
	assert.NotNil(t, again.Expired)

	bad := s.do(t, http.MethodPost, "/api/enrollments/check", map[string]any{"thresholds": []int{-1}})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestReports(t *testing.T) {
	s := newTestServer(t)
	st := s.createStudent(t, "Lea")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/transactions/payment", map[string]any{
		"student_id": st.ID, "amount": 400, "payment_method": "cash",
	}).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/transactions/expense", map[string]any{
		"amount": 150, "category_id": s.categoryID(t, "Food"), "payment_method": "cash",
	}).Code)

	monthly := decode[MonthlyReportDTO](t, s.do(t, http.MethodGet, "/api/reports/monthly?year=2024&month=3", nil))
	assert.Equal(t, "400.00", monthly.Gains.String())
	assert.Equal(t, "-150.00", monthly.TotalExpenses.String())
	assert.Equal(t, "250.00", monthly.ProfitLoss.String())
	assert.Equal(t, 1, monthly.ActiveStudents)

	annual := decode[AnnualReportDTO](t, s.do(t, http.MethodGet, "/api/reports/annual", nil))
	assert.Equal(t, 2024, annual.Year)
	assert.Len(t, annual.Months, 12)
	assert.Equal(t, "250.00", annual.ProfitLoss.String())

	dash := decode[DashboardDTO](t, s.do(t, http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, "250.00", dash.Balance.String())
	assert.Equal(t, int64(1), dash.ActiveStudents)
	assert.Empty(t, dash.UpcomingPayments)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/reports/monthly?month=13", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/reports/annual?year=abc", nil).Code)
}

func TestExportAnnualReport_Headers(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/reports/annual/export?year=2023", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="annual-report-2023.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, strconv.Itoa(rec.Body.Len()), rec.Header().Get("Content-Length"))
	// xlsx files are zip archives
	assert.Equal(t, []byte("PK"), rec.Body.Bytes()[:2])
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestAttendance(t *testing.T) {
	s := newTestServer(t)
	lea := s.createStudent(t, "Lea")
	hugo := s.createStudent(t, "Hugo")

	rec := s.do(t, http.MethodPost, "/api/attendance", map[string]any{
		"date": "2024-03-14",
		"entries": []map[string]any{
			{"student_id": lea.ID, "status": "present", "arrival_time": "08:05"},
			{"student_id": hugo.ID},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[AttendanceRecordedDTO](t, rec).Recorded)

	rows := decode[[]AttendanceRowDTO](t, s.do(t, http.MethodGet, "/api/attendance/report?period=weekly", nil))
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03-11", rows[0].Period.String())
	assert.Equal(t, 1, rows[0].Present)
	assert.Equal(t, 1, rows[0].Absent)

	bad := s.do(t, http.MethodPost, "/api/attendance", map[string]any{
		"date":    "2024-03-14",
		"entries": []map[string]any{{"student_id": lea.ID, "arrival_time": "8h"}},
	})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/attendance/report?period=hourly", nil).Code)
}

// =============================================================================
// ROSTER
// =============================================================================

func TestStudents_CRUDAndTenancy(t *testing.T) {
	s := newTestServer(t)
	st := s.createStudent(t, "Lea")
	assert.Equal(t, "active", st.Status)
	assert.Equal(t, "2024-03-15", st.InscriptionDate.String())

	// Update only what the request names
	rec := s.do(t, http.MethodPut, fmt.Sprintf("/api/students/%d", st.ID), map[string]any{"school": "Jean Jaures"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[StudentDTO](t, rec)
	assert.Equal(t, "Jean Jaures", updated.School)
	assert.Equal(t, "Lea", updated.Firstname)

	// Fields outside the allow-list are rejected
	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/students/%d", st.ID), map[string]any{"organization_id": 42})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/students/%d/archive", st.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "archived", decode[StudentDTO](t, rec).Status)

	archived := decode[[]StudentDTO](t, s.do(t, http.MethodGet, "/api/students?status=archived", nil))
	assert.Len(t, archived, 1)

	// Another organization sees nothing
	other := core.Organization{CompanyName: "Other"}
	require.NoError(t, s.store.CreateOrganization(context.Background(), &other))
	otherToken := signToken(t, other.ID, testSecret)
	assert.Equal(t, http.StatusNotFound, s.doAs(t, otherToken, http.MethodGet, fmt.Sprintf("/api/students/%d", st.ID), nil).Code)
	assert.Empty(t, decode[[]StudentDTO](t, s.doAs(t, otherToken, http.MethodGet, "/api/students", nil)))

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, fmt.Sprintf("/api/students/%d", st.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, fmt.Sprintf("/api/students/%d", st.ID), nil).Code)
}

func TestStudentDetail_IncludesContactsAndEnrollments(t *testing.T) {
	s := newTestServer(t)
	st := s.createStudent(t, "Lea")

	rec := s.do(t, http.MethodPost, fmt.Sprintf("/api/students/%d/contacts", st.ID), map[string]any{
		"type": "mobile", "value": "+33 6 12 34 56 78", "is_principal": true, "relation": "mother",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	contact := decode[ContactDTO](t, rec)

	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/students/%d/contacts/%d", st.ID, contact.ID), map[string]any{"firstname": "Claire"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Claire", decode[ContactDTO](t, rec).Firstname)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/transactions/payment", map[string]any{
		"student_id": st.ID, "amount": 300, "payment_method": "cash",
	}).Code)

	detail := decode[StudentDetailDTO](t, s.do(t, http.MethodGet, fmt.Sprintf("/api/students/%d", st.ID), nil))
	assert.Len(t, detail.Contacts, 1)
	assert.Len(t, detail.Enrollments, 1)
	assert.Len(t, detail.Transactions, 1)

	assert.Equal(t, http.StatusNoContent,
		s.do(t, http.MethodDelete, fmt.Sprintf("/api/students/%d/contacts/%d", st.ID, contact.ID), nil).Code)
	assert.Empty(t, decode[[]ContactDTO](t, s.do(t, http.MethodGet, fmt.Sprintf("/api/students/%d/contacts", st.ID), nil)))
}

func TestCategories(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/categories", map[string]any{"label": "Outings"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	outings := decode[CategoryDTO](t, rec)
	assert.False(t, outings.IsSystem)

	dup := s.do(t, http.MethodPost, "/api/categories", map[string]any{"label": "Outings"})
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "duplicate", decode[ErrorResponse](t, dup).Code)

	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/categories/%d", outings.ID), map[string]any{"label": "Trips"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Trips", decode[CategoryDTO](t, rec).Label)

	system := s.do(t, http.MethodDelete, fmt.Sprintf("/api/categories/%d", s.categoryID(t, "Rent")), nil)
	assert.Equal(t, http.StatusConflict, system.Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, fmt.Sprintf("/api/categories/%d", outings.ID), nil).Code)
	cats := decode[[]CategoryDTO](t, s.do(t, http.MethodGet, "/api/categories", nil))
	assert.Len(t, cats, len(core.SystemCategories))
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_RenewalSeason(t *testing.T) {
	// GIVEN: The renewal-season scenario loaded into the organization
	s := newTestServer(t)
	assert.Len(t, decode[[]ScenarioDTO](t, s.do(t, http.MethodGet, "/api/scenarios", nil)), len(Scenarios()))
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "renewal-season"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN: Running the check and the sweep
	run := decode[CheckRunDTO](t, s.do(t, http.MethodPost, "/api/enrollments/check", nil))
	sweep := decode[SweepDTO](t, s.do(t, http.MethodPost, "/api/enrollments/sweep", nil))

	// THEN: Every default threshold is hit once and the lapsed one expires
	assert.Equal(t, 4, run.Count)
	assert.Equal(t, 1, sweep.Count)
}

func TestScenarios_BusyMonth(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.handler.LoadScenarioInto(context.Background(), s.orgID, "busy-month"))

	monthly := decode[MonthlyReportDTO](t, s.do(t, http.MethodGet, "/api/reports/monthly", nil))
	assert.Equal(t, "1600.00", monthly.Gains.String())
	assert.Equal(t, "-2423.05", monthly.TotalExpenses.String())
	assert.Equal(t, 5, monthly.ActiveStudents)

	// March 1-15, 2024 has 11 weekdays, two of them Wednesdays
	rows := decode[[]AttendanceRowDTO](t, s.do(t, http.MethodGet, "/api/attendance/report?start=2024-03-01&period=monthly", nil))
	require.Len(t, rows, 1)
	assert.Equal(t, 55, rows[0].Total)
	assert.Equal(t, 2, rows[0].Excused)
}

func TestScenarios_Errors(t *testing.T) {
	s := newTestServer(t)

	assert.ErrorIs(t, s.handler.LoadScenarioInto(context.Background(), s.orgID, "year-end"), core.ErrValidation)
	assert.True(t, core.IsNotFound(s.handler.LoadScenarioInto(context.Background(), 9999, "new-garderie")))

	router := NewRouter(s.handler, RouterOptions{JWTSecret: testSecret})
	req := httptest.NewRequest(http.MethodGet, "/api/scenarios", nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestExpiryScheduler_RunNow(t *testing.T) {
	// GIVEN: Two organizations, one lapsed enrollment and one ending tomorrow
	s := newTestServer(t)
	ctx := context.Background()
	other := core.Organization{CompanyName: "Other"}
	require.NoError(t, s.store.CreateOrganization(ctx, &other))

	for i, org := range []uint{s.orgID, other.ID} {
		st := core.Student{
			OrganizationID:  org,
			Firstname:       fmt.Sprintf("Child%d", i),
			Lastname:        "Martin",
			InscriptionDate: calendar.NewDate(2024, time.January, 1),
			Status:          core.StudentActive,
		}
		require.NoError(t, s.store.CreateStudent(ctx, &st))
		end := calendar.NewDate(2024, time.March, 10)
		if i == 1 {
			end = calendar.NewDate(2024, time.March, 16)
		}
		require.NoError(t, s.store.CreateEnrollment(ctx, &core.Enrollment{
			OrganizationID: org,
			StudentID:      st.ID,
			StartDate:      calendar.NewDate(2024, time.February, 10),
			EndDate:        &end,
			Amount:         decimal.NewFromInt(300),
			Status:         core.EnrollmentActive,
		}))
	}
	scheduler := NewExpiryScheduler(s.store, s.handler)

	// WHEN: Running a pass twice
	first := scheduler.RunNow(ctx)
	second := scheduler.RunNow(ctx)

	// THEN: The first pass does the work, the second finds nothing
	assert.Equal(t, RunSummary{Organizations: 2, Expired: 1, Notified: 1}, first)
	assert.Equal(t, RunSummary{Organizations: 2}, second)
}

func TestExpiryScheduler_StartStop(t *testing.T) {
	s := newTestServer(t)
	scheduler := NewExpiryScheduler(s.store, s.handler)
	scheduler.CheckInterval = time.Hour

	scheduler.Start()
	scheduler.Stop()
	scheduler.Stop()

	disabled := NewExpiryScheduler(s.store, s.handler)
	disabled.Enabled = false
	disabled.Start()
	disabled.Stop()

	assert.Equal(t, time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC), scheduler.GetNextRunTime())
}

func TestExpiryScheduler_Restart(t *testing.T) {
	// GIVEN: A scheduler that was started and stopped
	s := newTestServer(t)
	scheduler := NewExpiryScheduler(s.store, s.handler)
	scheduler.CheckInterval = time.Hour
	scheduler.Start()
	scheduler.Stop()

	// WHEN: Starting it again, twice, then stopping
	// THEN: It runs again and stops cleanly
	assert.NotPanics(t, func() {
		scheduler.Start()
		scheduler.Start()
		scheduler.Stop()
		scheduler.Stop()
	})
}
