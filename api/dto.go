/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the gorm rows in core/ from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts are decoded with shopspring/decimal (JSON number or string) and
  encoded as JSON numbers with two fractional digits.

VALIDATION:
  Request types carry go-playground/validator tags for shape checks
  (required, ranges, enums). Business rules stay in the services, which
  validate again and return core.ValidationError.

SEE ALSO:
  - handlers.go: Uses these types
  - errors.go: ErrorResponse mapping
*/
package api

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/garderieflow/backoffice/attendance"
	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
	"github.com/garderieflow/backoffice/enrollment"
	"github.com/garderieflow/backoffice/report"
	"github.com/garderieflow/backoffice/store/sqlstore"
)

// =============================================================================
// VALIDATION
// =============================================================================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// =============================================================================
// REQUESTS
// =============================================================================

// PaymentRequest records a tuition payment.
type PaymentRequest struct {
	StudentID     uint            `json:"student_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Date          *calendar.Date  `json:"date,omitempty"`
	DurationDays  int             `json:"duration_days" validate:"gte=0"`
	Reference     string          `json:"reference" validate:"max=100"`
	Comment       string          `json:"comment"`
}

// ExpenseRequest records an expense. The sign of amount is ignored.
type ExpenseRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"ne=0"`
	CategoryID    uint            `json:"category_id" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Date          *calendar.Date  `json:"date,omitempty"`
	StudentID     *uint           `json:"student_id,omitempty"`
	Reference     string          `json:"reference" validate:"max=100"`
	Comment       string          `json:"comment"`
}

// EnrollmentRequest adds an enrollment by hand.
type EnrollmentRequest struct {
	StudentID uint            `json:"student_id" validate:"required"`
	StartDate calendar.Date   `json:"start_date"`
	EndDate   *calendar.Date  `json:"end_date,omitempty"`
	Amount    decimal.Decimal `json:"amount" validate:"gte=0"`
	Status    string          `json:"status" validate:"omitempty,oneof=active expired renewed"`
}

// RenewRequest may be sent empty; zero values mean defaults.
type RenewRequest struct {
	DurationDays int              `json:"duration_days" validate:"gte=0"`
	Amount       *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,gte=0"`
}

// CheckRequest may be sent empty to use the configured thresholds.
type CheckRequest struct {
	Thresholds []int `json:"thresholds,omitempty" validate:"omitempty,dive,gte=0"`
}

type AttendanceEntryRequest struct {
	StudentID     uint   `json:"student_id" validate:"required"`
	Status        string `json:"status" validate:"omitempty,oneof=present absent excused"`
	ArrivalTime   string `json:"arrival_time"`
	DepartureTime string `json:"departure_time"`
	Notes         string `json:"notes"`
}

type AttendanceRequest struct {
	Date    calendar.Date            `json:"date"`
	Entries []AttendanceEntryRequest `json:"entries" validate:"required,dive"`
}

type StudentRequest struct {
	Firstname       string         `json:"firstname" validate:"required,max=100"`
	Lastname        string         `json:"lastname" validate:"required,max=100"`
	Birthdate       *calendar.Date `json:"birthdate,omitempty"`
	Gender          string         `json:"gender" validate:"max=10"`
	School          string         `json:"school" validate:"max=100"`
	InscriptionDate *calendar.Date `json:"inscription_date,omitempty"`
	Status          string         `json:"status" validate:"omitempty,oneof=active left archived"`
	Notes           string         `json:"notes"`
}

// StudentUpdateRequest is decoded with unknown fields disallowed, so only
// these keys can be changed.
type StudentUpdateRequest struct {
	Firstname       *string             `json:"firstname" validate:"omitempty,max=100"`
	Lastname        *string             `json:"lastname" validate:"omitempty,max=100"`
	Birthdate       *calendar.Date      `json:"birthdate"`
	Gender          *string             `json:"gender" validate:"omitempty,max=10"`
	School          *string             `json:"school" validate:"omitempty,max=100"`
	InscriptionDate *calendar.Date      `json:"inscription_date"`
	LeaveDate       *calendar.Date      `json:"leave_date"`
	Status          *core.StudentStatus `json:"status"`
	Notes           *string             `json:"notes"`
}

func (r StudentUpdateRequest) toUpdate() core.StudentUpdate {
	return core.StudentUpdate{
		Firstname:       r.Firstname,
		Lastname:        r.Lastname,
		Birthdate:       r.Birthdate,
		Gender:          r.Gender,
		School:          r.School,
		InscriptionDate: r.InscriptionDate,
		LeaveDate:       r.LeaveDate,
		Status:          r.Status,
		Notes:           r.Notes,
	}
}

type ContactRequest struct {
	Type        string `json:"type" validate:"required,oneof=phone mobile email whatsapp other"`
	Value       string `json:"value" validate:"required,max=255"`
	IsPrincipal bool   `json:"is_principal"`
	Firstname   string `json:"firstname" validate:"max=100"`
	Lastname    string `json:"lastname" validate:"max=100"`
	Relation    string `json:"relation" validate:"omitempty,oneof=father mother grandparent guardian other"`
}

type ContactUpdateRequest struct {
	Type        *core.ContactType `json:"type"`
	Value       *string           `json:"value" validate:"omitempty,max=255"`
	IsPrincipal *bool             `json:"is_principal"`
	Firstname   *string           `json:"firstname" validate:"omitempty,max=100"`
	Lastname    *string           `json:"lastname" validate:"omitempty,max=100"`
	Relation    *core.Relation    `json:"relation"`
}

func (r ContactUpdateRequest) toUpdate() core.ContactUpdate {
	return core.ContactUpdate{
		Type:        r.Type,
		Value:       r.Value,
		IsPrincipal: r.IsPrincipal,
		Firstname:   r.Firstname,
		Lastname:    r.Lastname,
		Relation:    r.Relation,
	}
}

type CategoryRequest struct {
	Label string `json:"label" validate:"required,max=50"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// TransactionDTO represents a ledger transaction.
type TransactionDTO struct {
	ID            uint          `json:"id"`
	StudentID     *uint         `json:"student_id,omitempty"`
	CategoryID    *uint         `json:"category_id,omitempty"`
	Date          calendar.Date `json:"date"`
	Type          string        `json:"type"`
	Amount        json.Number   `json:"amount"`
	PaymentMethod string        `json:"payment_method,omitempty"`
	Reference     string        `json:"reference,omitempty"`
	Comment       string        `json:"comment,omitempty"`
	CreatedAt     string        `json:"created_at,omitempty"`
}

// EnrollmentDTO represents an enrollment.
type EnrollmentDTO struct {
	ID           uint           `json:"id"`
	StudentID    uint           `json:"student_id"`
	StartDate    calendar.Date  `json:"start_date"`
	EndDate      *calendar.Date `json:"end_date"`
	Amount       json.Number    `json:"amount"`
	Status       string         `json:"status"`
	NotifiedAt   *string        `json:"notified_at,omitempty"`
	TerminatedAt *string        `json:"terminated_at,omitempty"`
}

type PaymentResultDTO struct {
	Transaction       TransactionDTO `json:"transaction"`
	Enrollment        EnrollmentDTO  `json:"enrollment"`
	EnrollmentCreated bool           `json:"enrollment_created"`
}

type BalanceDTO struct {
	Balance json.Number   `json:"balance"`
	AsOf    calendar.Date `json:"as_of"`
}

type ExpensesByCategoryDTO struct {
	Year       int                    `json:"year"`
	Month      int                    `json:"month"`
	Categories map[string]json.Number `json:"categories"`
	Total      json.Number            `json:"total"`
}

type NoticeDTO struct {
	EnrollmentID uint          `json:"enrollment_id"`
	StudentID    uint          `json:"student_id"`
	EndDate      calendar.Date `json:"end_date"`
	DaysLeft     int           `json:"days_left"`
}

type CheckRunDTO struct {
	RunID    string        `json:"run_id"`
	Day      calendar.Date `json:"day"`
	Count    int           `json:"count"`
	Notified []NoticeDTO   `json:"notified"`
}

type SweepDTO struct {
	Count   int    `json:"count"`
	Expired []uint `json:"expired"`
}

type MonthlyReportDTO struct {
	Year               int                    `json:"year"`
	Month              int                    `json:"month"`
	Gains              json.Number            `json:"gains"`
	ExpensesByCategory map[string]json.Number `json:"expenses_by_category"`
	TotalExpenses      json.Number            `json:"total_expenses"`
	ProfitLoss         json.Number            `json:"profit_loss"`
	ActiveStudents     int                    `json:"active_students"`
}

type AnnualReportDTO struct {
	Year               int                    `json:"year"`
	Gains              json.Number            `json:"gains"`
	ExpensesByCategory map[string]json.Number `json:"expenses_by_category"`
	TotalExpenses      json.Number            `json:"total_expenses"`
	ProfitLoss         json.Number            `json:"profit_loss"`
	AvgActiveStudents  json.Number            `json:"avg_active_students"`
	Months             []MonthlyReportDTO     `json:"months"`
}

type DashboardDTO struct {
	Balance          json.Number            `json:"balance"`
	UpcomingPayments []EnrollmentDTO        `json:"upcoming_payments"`
	ActiveStudents   int64                  `json:"active_students"`
	MonthExpenses    map[string]json.Number `json:"month_expenses"`
}

type AttendanceRecordedDTO struct {
	Date     calendar.Date `json:"date"`
	Recorded int           `json:"recorded"`
}

type AttendanceRowDTO struct {
	Period  calendar.Date `json:"period"`
	Total   int           `json:"total"`
	Present int           `json:"present"`
	Absent  int           `json:"absent"`
	Excused int           `json:"excused"`
}

type StudentDTO struct {
	ID              uint           `json:"id"`
	Firstname       string         `json:"firstname"`
	Lastname        string         `json:"lastname"`
	Birthdate       *calendar.Date `json:"birthdate,omitempty"`
	Gender          string         `json:"gender,omitempty"`
	School          string         `json:"school,omitempty"`
	InscriptionDate calendar.Date  `json:"inscription_date"`
	LeaveDate       *calendar.Date `json:"leave_date,omitempty"`
	Status          string         `json:"status"`
	Notes           string         `json:"notes,omitempty"`
}

type ContactDTO struct {
	ID          uint   `json:"id"`
	StudentID   uint   `json:"student_id"`
	Type        string `json:"type"`
	Value       string `json:"value"`
	IsPrincipal bool   `json:"is_principal"`
	Firstname   string `json:"firstname,omitempty"`
	Lastname    string `json:"lastname,omitempty"`
	Relation    string `json:"relation,omitempty"`
}

type StudentDetailDTO struct {
	StudentDTO
	Contacts     []ContactDTO     `json:"contacts"`
	Enrollments  []EnrollmentDTO  `json:"enrollments"`
	Transactions []TransactionDTO `json:"transactions"`
}

type CategoryDTO struct {
	ID       uint   `json:"id"`
	Label    string `json:"label"`
	IsSystem bool   `json:"is_system"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func moneyMap(m map[string]decimal.Decimal) map[string]json.Number {
	out := make(map[string]json.Number, len(m))
	for k, v := range m {
		out[k] = money(v)
	}
	return out
}

func timestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func toTransactionDTO(tx core.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:            tx.ID,
		StudentID:     tx.StudentID,
		CategoryID:    tx.CategoryID,
		Date:          tx.Date,
		Type:          string(tx.Type),
		Amount:        money(tx.Amount),
		PaymentMethod: string(tx.PaymentMethod),
		Reference:     tx.Reference,
		Comment:       tx.Comment,
	}
	if !tx.CreatedAt.IsZero() {
		dto.CreatedAt = tx.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toTransactionDTOs(txs []core.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toEnrollmentDTO(e core.Enrollment) EnrollmentDTO {
	return EnrollmentDTO{
		ID:           e.ID,
		StudentID:    e.StudentID,
		StartDate:    e.StartDate,
		EndDate:      e.EndDate,
		Amount:       money(e.Amount),
		Status:       string(e.Status),
		NotifiedAt:   timestamp(e.NotifiedAt),
		TerminatedAt: timestamp(e.TerminatedAt),
	}
}

func toEnrollmentDTOs(es []core.Enrollment) []EnrollmentDTO {
	dtos := make([]EnrollmentDTO, len(es))
	for i, e := range es {
		dtos[i] = toEnrollmentDTO(e)
	}
	return dtos
}

func toCheckRunDTO(run *enrollment.Run) CheckRunDTO {
	notices := make([]NoticeDTO, len(run.Notices))
	for i, n := range run.Notices {
		notices[i] = NoticeDTO{
			EnrollmentID: n.EnrollmentID,
			StudentID:    n.StudentID,
			EndDate:      n.EndDate,
			DaysLeft:     n.DaysLeft,
		}
	}
	return CheckRunDTO{RunID: run.ID, Day: run.Day, Count: len(notices), Notified: notices}
}

func toMonthlyDTO(m report.Monthly) MonthlyReportDTO {
	return MonthlyReportDTO{
		Year:               m.Year,
		Month:              int(m.Month),
		Gains:              money(m.Gains),
		ExpensesByCategory: moneyMap(m.ExpensesByCategory),
		TotalExpenses:      money(m.TotalExpenses),
		ProfitLoss:         money(m.ProfitLoss),
		ActiveStudents:     m.ActiveStudents,
	}
}

func toAnnualDTO(a *report.Annual) AnnualReportDTO {
	months := make([]MonthlyReportDTO, len(a.Months))
	for i, m := range a.Months {
		months[i] = toMonthlyDTO(m)
	}
	return AnnualReportDTO{
		Year:               a.Year,
		Gains:              money(a.Gains),
		ExpensesByCategory: moneyMap(a.ExpensesByCategory),
		TotalExpenses:      money(a.TotalExpenses),
		ProfitLoss:         money(a.ProfitLoss),
		AvgActiveStudents:  money(a.AvgActiveStudents),
		Months:             months,
	}
}

func toAttendanceRows(rows []attendance.Row) []AttendanceRowDTO {
	out := make([]AttendanceRowDTO, len(rows))
	for i, r := range rows {
		out[i] = AttendanceRowDTO{
			Period:  r.Key,
			Total:   r.Total,
			Present: r.Present,
			Absent:  r.Absent,
			Excused: r.Excused,
		}
	}
	return out
}

func toStudentDTO(s core.Student) StudentDTO {
	return StudentDTO{
		ID:              s.ID,
		Firstname:       s.Firstname,
		Lastname:        s.Lastname,
		Birthdate:       s.Birthdate,
		Gender:          s.Gender,
		School:          s.School,
		InscriptionDate: s.InscriptionDate,
		LeaveDate:       s.LeaveDate,
		Status:          string(s.Status),
		Notes:           s.Notes,
	}
}

func toContactDTO(c core.ParentContact) ContactDTO {
	return ContactDTO{
		ID:          c.ID,
		StudentID:   c.StudentID,
		Type:        string(c.Type),
		Value:       c.Value,
		IsPrincipal: c.IsPrincipal,
		Firstname:   c.Firstname,
		Lastname:    c.Lastname,
		Relation:    string(c.Relation),
	}
}

func toStudentDetailDTO(d *sqlstore.StudentDetail) StudentDetailDTO {
	contacts := make([]ContactDTO, len(d.Contacts))
	for i, c := range d.Contacts {
		contacts[i] = toContactDTO(c)
	}
	return StudentDetailDTO{
		StudentDTO:   toStudentDTO(d.Student),
		Contacts:     contacts,
		Enrollments:  toEnrollmentDTOs(d.Enrollments),
		Transactions: toTransactionDTOs(d.Transactions),
	}
}

func toCategoryDTO(c core.TransactionCategory) CategoryDTO {
	return CategoryDTO{ID: c.ID, Label: c.Label, IsSystem: c.IsSystem}
}
