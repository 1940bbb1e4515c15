package sqlstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/garderieflow/backoffice/core"
)

// forUpdate adds SELECT ... FOR UPDATE. The SQLite dialect drops the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// =============================================================================
// DIRECTORY (core.Directory interface)
// =============================================================================

func (s *Store) LockOrganization(ctx context.Context, orgID uint) error {
	var org core.Organization
	err := forUpdate(s.conn(ctx)).Select("id").First(&org, orgID).Error
	return notFound(err, "organization", orgID)
}

func (s *Store) OrganizationIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := s.conn(ctx).Model(&core.Organization{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

func (s *Store) LockStudent(ctx context.Context, orgID, studentID uint) (*core.Student, error) {
	return s.findStudent(forUpdate(s.conn(ctx)), orgID, studentID)
}

func (s *Store) GetStudent(ctx context.Context, orgID, studentID uint) (*core.Student, error) {
	return s.findStudent(s.conn(ctx), orgID, studentID)
}

func (s *Store) findStudent(db *gorm.DB, orgID, studentID uint) (*core.Student, error) {
	var st core.Student
	err := db.Where("id = ? AND organization_id = ?", studentID, orgID).First(&st).Error
	if err != nil {
		return nil, notFound(err, "student", studentID)
	}
	return &st, nil
}

func (s *Store) GetCategory(ctx context.Context, orgID, categoryID uint) (*core.TransactionCategory, error) {
	var c core.TransactionCategory
	err := s.conn(ctx).Where("id = ? AND organization_id = ?", categoryID, orgID).First(&c).Error
	if err != nil {
		return nil, notFound(err, "category", categoryID)
	}
	return &c, nil
}

func (s *Store) CountStudents(ctx context.Context, orgID uint, status core.StudentStatus) (int64, error) {
	var n int64
	q := s.conn(ctx).Model(&core.Student{}).Where("organization_id = ?", orgID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}
