package core

import "github.com/garderieflow/backoffice/calendar"

// StudentUpdate lists the student fields a client may change. Nil fields
// are left alone. OrganizationID, ID and timestamps are not updatable.
type StudentUpdate struct {
	Firstname       *string
	Lastname        *string
	Birthdate       *calendar.Date
	Gender          *string
	School          *string
	InscriptionDate *calendar.Date
	LeaveDate       *calendar.Date
	Status          *StudentStatus
	Notes           *string
}

// Apply validates the update and copies it onto st.
func (u StudentUpdate) Apply(st *Student) error {
	if u.Firstname != nil {
		if *u.Firstname == "" {
			return Invalid("firstname", "must not be empty")
		}
		st.Firstname = *u.Firstname
	}
	if u.Lastname != nil {
		if *u.Lastname == "" {
			return Invalid("lastname", "must not be empty")
		}
		st.Lastname = *u.Lastname
	}
	if u.Status != nil {
		if !u.Status.Valid() {
			return Invalid("status", "unknown student status %q", *u.Status)
		}
		st.Status = *u.Status
	}
	if u.Birthdate != nil {
		st.Birthdate = u.Birthdate
	}
	if u.Gender != nil {
		st.Gender = *u.Gender
	}
	if u.School != nil {
		st.School = *u.School
	}
	if u.InscriptionDate != nil {
		st.InscriptionDate = *u.InscriptionDate
	}
	if u.LeaveDate != nil {
		st.LeaveDate = u.LeaveDate
	}
	if u.Notes != nil {
		st.Notes = *u.Notes
	}
	return nil
}

// ContactUpdate lists the contact fields a client may change.
type ContactUpdate struct {
	Type        *ContactType
	Value       *string
	IsPrincipal *bool
	Firstname   *string
	Lastname    *string
	Relation    *Relation
}

func (u ContactUpdate) Apply(c *ParentContact) error {
	if u.Type != nil {
		if !u.Type.Valid() {
			return Invalid("type", "unknown contact type %q", *u.Type)
		}
		c.Type = *u.Type
	}
	if u.Value != nil {
		if *u.Value == "" {
			return Invalid("value", "must not be empty")
		}
		c.Value = *u.Value
	}
	if u.Relation != nil {
		if !u.Relation.Valid() {
			return Invalid("relation", "unknown relation %q", *u.Relation)
		}
		c.Relation = *u.Relation
	}
	if u.IsPrincipal != nil {
		c.IsPrincipal = *u.IsPrincipal
	}
	if u.Firstname != nil {
		c.Firstname = *u.Firstname
	}
	if u.Lastname != nil {
		c.Lastname = *u.Lastname
	}
	return nil
}
