package core

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive     EnrollmentStatus = "active"
	EnrollmentExpired    EnrollmentStatus = "expired"
	EnrollmentRenewed    EnrollmentStatus = "renewed"
	EnrollmentTerminated EnrollmentStatus = "terminated"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentExpired, EnrollmentRenewed, EnrollmentTerminated:
		return true
	}
	return false
}

// Occupying reports whether an enrollment in this status holds a place
// for occupancy counts.
func (s EnrollmentStatus) Occupying() bool {
	return s == EnrollmentActive || s == EnrollmentRenewed
}

// OccupyingStatuses lists the statuses counted as occupying a place.
var OccupyingStatuses = []EnrollmentStatus{EnrollmentActive, EnrollmentRenewed}

// TransactionType separates income from spending.
type TransactionType string

const (
	TxGain    TransactionType = "gain"
	TxExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TxGain || t == TxExpense
}

// PaymentMethod is how money changed hands.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentTransfer    PaymentMethod = "transfer"
	PaymentCard        PaymentMethod = "card"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentOther       PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentCard, PaymentMobileMoney, PaymentOther:
		return true
	}
	return false
}

// StudentStatus tracks whether a child is still attending.
type StudentStatus string

const (
	StudentActive   StudentStatus = "active"
	StudentLeft     StudentStatus = "left"
	StudentArchived StudentStatus = "archived"
)

func (s StudentStatus) Valid() bool {
	return s == StudentActive || s == StudentLeft || s == StudentArchived
}

// ContactType is the channel of a parent contact.
type ContactType string

const (
	ContactPhone    ContactType = "phone"
	ContactMobile   ContactType = "mobile"
	ContactEmail    ContactType = "email"
	ContactWhatsApp ContactType = "whatsapp"
	ContactOther    ContactType = "other"
)

func (c ContactType) Valid() bool {
	switch c {
	case ContactPhone, ContactMobile, ContactEmail, ContactWhatsApp, ContactOther:
		return true
	}
	return false
}

// Relation is the contact's relation to the child.
type Relation string

const (
	RelationFather      Relation = "father"
	RelationMother      Relation = "mother"
	RelationGrandparent Relation = "grandparent"
	RelationGuardian    Relation = "guardian"
	RelationOther       Relation = "other"
)

func (r Relation) Valid() bool {
	switch r {
	case "", RelationFather, RelationMother, RelationGrandparent, RelationGuardian, RelationOther:
		return true
	}
	return false
}

// AttendanceStatus is the outcome of a day.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceExcused AttendanceStatus = "excused"
)

func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent || s == AttendanceExcused
}
