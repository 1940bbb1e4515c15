/*
store.go - Persistence contracts used by the services

PURPOSE:
  Defines the interface between the domain logic and the database.
  Services depend on these interfaces; store/sqlstore implements them
  on gorm for SQLite and PostgreSQL.

KEY INTERFACES:
  Directory:       Tenant, student and category lookups (with row locks)
  EnrollmentStore: Enrollment reads and writes
  LedgerStore:     Append-only transaction log
  AttendanceStore: Daily attendance rows
  TxStore:         Runs a unit of work atomically

ORGANIZATION SCOPING:
  Every method takes the organization id explicitly. A row that exists
  under another organization is reported as not found.

LOCKING:
  Lock* methods take a row lock for the rest of the enclosing WithTx.
  Outside WithTx they behave like plain reads.

APPEND-ONLY CONTRACT:
  LedgerStore has no Update or Delete. Corrections are new transactions.

SEE ALSO:
  - store/sqlstore/store.go: gorm implementation
*/
package core

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/garderieflow/backoffice/calendar"
)

// =============================================================================
// FILTERS
// =============================================================================

// EnrollmentFilter narrows an enrollment listing. Zero fields are ignored.
type EnrollmentFilter struct {
	StudentID  *uint
	Status     EnrollmentStatus
	EndFrom    *calendar.Date // end_date >= EndFrom
	EndThrough *calendar.Date // end_date <= EndThrough
}

// TransactionFilter narrows a transaction listing. Zero fields are ignored.
type TransactionFilter struct {
	Type      TransactionType
	StudentID *uint
	From      *calendar.Date // inclusive
	To        *calendar.Date // inclusive
}

// ExpenseLine is one expense joined with its category label.
type ExpenseLine struct {
	Label  string
	Amount decimal.Decimal
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// Directory resolves tenant-scoped reference rows.
type Directory interface {
	// LockOrganization serializes organization-wide sweeps.
	LockOrganization(ctx context.Context, orgID uint) error

	// OrganizationIDs lists every tenant.
	OrganizationIDs(ctx context.Context) ([]uint, error)

	// LockStudent returns the student and locks its row.
	LockStudent(ctx context.Context, orgID, studentID uint) (*Student, error)

	GetStudent(ctx context.Context, orgID, studentID uint) (*Student, error)
	GetCategory(ctx context.Context, orgID, categoryID uint) (*TransactionCategory, error)
	CountStudents(ctx context.Context, orgID uint, status StudentStatus) (int64, error)
}

// EnrollmentStore persists enrollments.
type EnrollmentStore interface {
	CreateEnrollment(ctx context.Context, e *Enrollment) error
	SaveEnrollment(ctx context.Context, e *Enrollment) error

	// LockEnrollment returns the enrollment and locks its row.
	LockEnrollment(ctx context.Context, orgID, enrollmentID uint) (*Enrollment, error)

	// CurrentEnrollment returns the student's active enrollment with the
	// latest end date (open-ended last, then most recently updated), locked.
	// Returns nil, nil when there is none.
	CurrentEnrollment(ctx context.Context, orgID, studentID uint) (*Enrollment, error)

	ListEnrollments(ctx context.Context, orgID uint, filter EnrollmentFilter) ([]Enrollment, error)

	// ExpiringEnrollments returns active enrollments whose end date is set
	// and on or before through, locked.
	ExpiringEnrollments(ctx context.Context, orgID uint, through calendar.Date) ([]Enrollment, error)

	// LapsedEnrollments returns active enrollments ending strictly before day, locked.
	LapsedEnrollments(ctx context.Context, orgID uint, day calendar.Date) ([]Enrollment, error)

	// CountOccupiedStudents counts distinct students holding an active or
	// renewed enrollment with start <= through and (end >= from or open).
	CountOccupiedStudents(ctx context.Context, orgID uint, from, through calendar.Date) (int, error)
}

// LedgerStore is the append-only transaction log.
type LedgerStore interface {
	AppendTransaction(ctx context.Context, tx *Transaction) error
	Transactions(ctx context.Context, orgID uint, filter TransactionFilter) ([]Transaction, error)

	// ExpenseLines returns expenses dated inside w that have a category.
	ExpenseLines(ctx context.Context, orgID uint, w calendar.Window) ([]ExpenseLine, error)
}

// AttendanceStore persists daily attendance.
type AttendanceStore interface {
	// UpsertAttendance inserts or replaces the row for (student, date).
	UpsertAttendance(ctx context.Context, a *Attendance) error
	AttendanceBetween(ctx context.Context, orgID uint, from, to calendar.Date) ([]Attendance, error)
}

// Store is everything the services read and write.
type Store interface {
	Directory
	EnrollmentStore
	LedgerStore
	AttendanceStore
}

// TxStore runs fn inside one database transaction. The Store passed to fn
// is bound to that transaction; fn must not use the outer store.
// A failed commit caused by a competing writer returns ErrConcurrencyConflict.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
