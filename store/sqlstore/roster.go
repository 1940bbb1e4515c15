package sqlstore

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/garderieflow/backoffice/core"
)

// =============================================================================
// ORGANIZATIONS
// =============================================================================

// CreateOrganization inserts a tenant and seeds its system categories.
func (s *Store) CreateOrganization(ctx context.Context, org *core.Organization) error {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		categories := make([]core.TransactionCategory, 0, len(core.SystemCategories))
		for _, label := range core.SystemCategories {
			categories = append(categories, core.TransactionCategory{
				OrganizationID: org.ID,
				Label:          label,
				IsSystem:       true,
			})
		}
		return tx.Create(&categories).Error
	})
	return translate(err)
}

func (s *Store) GetOrganization(ctx context.Context, orgID uint) (*core.Organization, error) {
	var org core.Organization
	if err := s.conn(ctx).First(&org, orgID).Error; err != nil {
		return nil, notFound(err, "organization", orgID)
	}
	return &org, nil
}

// =============================================================================
// STUDENTS
// =============================================================================

// StudentQuery filters ListStudents. Search matches first or last name.
type StudentQuery struct {
	Status core.StudentStatus
	Search string
}

func (s *Store) ListStudents(ctx context.Context, orgID uint, q StudentQuery) ([]core.Student, error) {
	db := s.conn(ctx).Where("organization_id = ?", orgID)
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		db = db.Where("(LOWER(firstname) LIKE ? OR LOWER(lastname) LIKE ?)", pattern, pattern)
	}

	var out []core.Student
	if err := db.Order("lastname, firstname, id").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) CreateStudent(ctx context.Context, st *core.Student) error {
	return translate(s.conn(ctx).Create(st).Error)
}

// UpdateStudent applies an allow-listed update.
func (s *Store) UpdateStudent(ctx context.Context, orgID, studentID uint, u core.StudentUpdate) (*core.Student, error) {
	st, err := s.GetStudent(ctx, orgID, studentID)
	if err != nil {
		return nil, err
	}
	if err := u.Apply(st); err != nil {
		return nil, err
	}
	if err := s.conn(ctx).Save(st).Error; err != nil {
		return nil, translate(err)
	}
	return st, nil
}

// SetStudentStatus is used by archive and reactivate.
func (s *Store) SetStudentStatus(ctx context.Context, orgID, studentID uint, status core.StudentStatus) (*core.Student, error) {
	return s.UpdateStudent(ctx, orgID, studentID, core.StudentUpdate{Status: &status})
}

// DeleteStudent removes a student with its enrollments, contacts and
// attendance. Its transactions are kept with student_id cleared.
func (s *Store) DeleteStudent(ctx context.Context, orgID, studentID uint) error {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var st core.Student
		if err := tx.Where("id = ? AND organization_id = ?", studentID, orgID).First(&st).Error; err != nil {
			return err
		}
		if err := tx.Model(&core.Transaction{}).
			Where("organization_id = ? AND student_id = ?", orgID, studentID).
			Update("student_id", nil).Error; err != nil {
			return err
		}
		for _, model := range []any{&core.Enrollment{}, &core.Attendance{}} {
			if err := tx.Where("organization_id = ? AND student_id = ?", orgID, studentID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("student_id = ?", studentID).Delete(&core.ParentContact{}).Error; err != nil {
			return err
		}
		return tx.Delete(&st).Error
	})
	return notFound(err, "student", studentID)
}

// StudentDetail is a student with everything attached to it.
type StudentDetail struct {
	Student      core.Student
	Contacts     []core.ParentContact
	Enrollments  []core.Enrollment
	Transactions []core.Transaction
}

func (s *Store) GetStudentDetail(ctx context.Context, orgID, studentID uint) (*StudentDetail, error) {
	st, err := s.GetStudent(ctx, orgID, studentID)
	if err != nil {
		return nil, err
	}
	detail := &StudentDetail{Student: *st}

	if detail.Contacts, err = s.Contacts(ctx, orgID, studentID); err != nil {
		return nil, err
	}
	if detail.Enrollments, err = s.ListEnrollments(ctx, orgID, core.EnrollmentFilter{StudentID: &studentID}); err != nil {
		return nil, err
	}
	if detail.Transactions, err = s.Transactions(ctx, orgID, core.TransactionFilter{StudentID: &studentID}); err != nil {
		return nil, err
	}
	return detail, nil
}

// =============================================================================
// PARENT CONTACTS
// =============================================================================

func (s *Store) Contacts(ctx context.Context, orgID, studentID uint) ([]core.ParentContact, error) {
	if _, err := s.GetStudent(ctx, orgID, studentID); err != nil {
		return nil, err
	}
	var out []core.ParentContact
	if err := s.conn(ctx).Where("student_id = ?", studentID).Order("is_principal DESC, id").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) AddContact(ctx context.Context, orgID uint, c *core.ParentContact) error {
	if _, err := s.GetStudent(ctx, orgID, c.StudentID); err != nil {
		return err
	}
	return translate(s.conn(ctx).Create(c).Error)
}

func (s *Store) UpdateContact(ctx context.Context, orgID, studentID, contactID uint, u core.ContactUpdate) (*core.ParentContact, error) {
	c, err := s.findContact(ctx, orgID, studentID, contactID)
	if err != nil {
		return nil, err
	}
	if err := u.Apply(c); err != nil {
		return nil, err
	}
	if err := s.conn(ctx).Save(c).Error; err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (s *Store) DeleteContact(ctx context.Context, orgID, studentID, contactID uint) error {
	c, err := s.findContact(ctx, orgID, studentID, contactID)
	if err != nil {
		return err
	}
	return translate(s.conn(ctx).Delete(c).Error)
}

func (s *Store) findContact(ctx context.Context, orgID, studentID, contactID uint) (*core.ParentContact, error) {
	if _, err := s.GetStudent(ctx, orgID, studentID); err != nil {
		return nil, err
	}
	var c core.ParentContact
	err := s.conn(ctx).Where("id = ? AND student_id = ?", contactID, studentID).First(&c).Error
	if err != nil {
		return nil, notFound(err, "contact", contactID)
	}
	return &c, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (s *Store) Categories(ctx context.Context, orgID uint) ([]core.TransactionCategory, error) {
	var out []core.TransactionCategory
	if err := s.conn(ctx).Where("organization_id = ?", orgID).Order("label").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *core.TransactionCategory) error {
	return translate(s.conn(ctx).Create(c).Error)
}

func (s *Store) RenameCategory(ctx context.Context, orgID, categoryID uint, label string) (*core.TransactionCategory, error) {
	c, err := s.GetCategory(ctx, orgID, categoryID)
	if err != nil {
		return nil, err
	}
	c.Label = label
	if err := s.conn(ctx).Save(c).Error; err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// DeleteCategory removes a user category. System categories are refused.
// Transactions in the category keep their rows with category_id cleared.
func (s *Store) DeleteCategory(ctx context.Context, orgID, categoryID uint) error {
	errSystem := errors.New("system category")
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var c core.TransactionCategory
		if err := tx.Where("id = ? AND organization_id = ?", categoryID, orgID).First(&c).Error; err != nil {
			return err
		}
		if c.IsSystem {
			return errSystem
		}
		if err := tx.Model(&core.Transaction{}).
			Where("organization_id = ? AND category_id = ?", orgID, categoryID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
	if errors.Is(err, errSystem) {
		return &core.InvalidStateError{Kind: "category", ID: categoryID, Status: "system", Op: "delete"}
	}
	return notFound(err, "category", categoryID)
}
