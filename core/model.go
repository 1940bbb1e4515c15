/*
model.go - Persistent records of the back office

PURPOSE:
  Row types shared by the services and the gorm store. Every row that
  belongs to a tenant carries OrganizationID and every query filters on it.

MONEY:
  Amounts are shopspring/decimal values stored as decimal(10,2). Expense
  transactions are stored negative so a balance is a plain sum.

DATES:
  Calendar days use calendar.Date; nullable days are *calendar.Date.
  Instants (notified_at, terminated_at, created_at) are UTC time.Time.

SEE ALSO:
  - status.go: Enumerations and their validation
  - store.go: Persistence contracts
*/
package core

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garderieflow/backoffice/calendar"
)

// Organization is a tenant: one daycare operator.
type Organization struct {
	ID          uint   `gorm:"primaryKey"`
	CompanyName string `gorm:"size:255;not null"`
	Email       string `gorm:"size:255"`
	CreatedAt   time.Time
}

// Student is an enrolled child.
type Student struct {
	ID              uint           `gorm:"primaryKey"`
	OrganizationID  uint           `gorm:"not null;index"`
	Firstname       string         `gorm:"size:100;not null"`
	Lastname        string         `gorm:"size:100;not null"`
	Birthdate       *calendar.Date
	Gender          string         `gorm:"size:10"`
	School          string         `gorm:"size:100"`
	InscriptionDate calendar.Date  `gorm:"not null"`
	LeaveDate       *calendar.Date
	Status          StudentStatus  `gorm:"size:20;not null;index"`
	Notes           string         `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ParentContact is a way to reach a student's family.
type ParentContact struct {
	ID          uint        `gorm:"primaryKey"`
	StudentID   uint        `gorm:"not null;index"`
	Type        ContactType `gorm:"size:20;not null"`
	Value       string      `gorm:"size:255;not null"`
	IsPrincipal bool        `gorm:"not null;default:false"`
	Firstname   string      `gorm:"size:100"`
	Lastname    string      `gorm:"size:100"`
	Relation    Relation    `gorm:"size:20"`
}

// Enrollment is a paid period of attendance for a student.
type Enrollment struct {
	ID             uint             `gorm:"primaryKey"`
	OrganizationID uint             `gorm:"not null;index:idx_enrollments_org_status"`
	StudentID      uint             `gorm:"not null;index"`
	StartDate      calendar.Date    `gorm:"not null"`
	EndDate        *calendar.Date   `gorm:"index"`
	Amount         decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	Status         EnrollmentStatus `gorm:"size:20;not null;index:idx_enrollments_org_status"`
	NotifiedAt     *time.Time
	TerminatedAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TransactionCategory groups expenses for reporting.
type TransactionCategory struct {
	ID             uint   `gorm:"primaryKey"`
	OrganizationID uint   `gorm:"not null;uniqueIndex:idx_categories_org_label"`
	Label          string `gorm:"size:50;not null;uniqueIndex:idx_categories_org_label"`
	IsSystem       bool   `gorm:"not null;default:false"`
}

// Transaction is one ledger line. Rows are never updated or deleted; only
// their student and category references can be cleared when those rows go.
type Transaction struct {
	ID             uint            `gorm:"primaryKey"`
	OrganizationID uint            `gorm:"not null;index"`
	StudentID      *uint           `gorm:"index"`
	CategoryID     *uint           `gorm:"index"`
	Date           calendar.Date   `gorm:"not null;index"`
	Type           TransactionType `gorm:"size:10;not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PaymentMethod  PaymentMethod   `gorm:"size:20"`
	Reference      string          `gorm:"size:100"`
	Comment        string          `gorm:"type:text"`
	CreatedAt      time.Time
}

// Attendance records one student's presence on one day.
type Attendance struct {
	ID             uint             `gorm:"primaryKey"`
	OrganizationID uint             `gorm:"not null;index"`
	StudentID      uint             `gorm:"not null;uniqueIndex:idx_attendance_student_date"`
	Date           calendar.Date    `gorm:"not null;uniqueIndex:idx_attendance_student_date"`
	Status         AttendanceStatus `gorm:"size:20;not null"`
	ArrivalTime    string           `gorm:"size:5"`
	DepartureTime  string           `gorm:"size:5"`
	Notes          string           `gorm:"type:text"`
}

func (Attendance) TableName() string { return "attendance" }

// SystemCategories are seeded for every new organization and cannot be deleted.
var SystemCategories = []string{"Tuition", "Salaries", "Rent", "Food", "Supplies", "Other"}
