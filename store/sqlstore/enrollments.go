package sqlstore

import (
	"context"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
)

// =============================================================================
// ENROLLMENT STORE (core.EnrollmentStore interface)
// =============================================================================

func (s *Store) CreateEnrollment(ctx context.Context, e *core.Enrollment) error {
	return translate(s.conn(ctx).Create(e).Error)
}

func (s *Store) SaveEnrollment(ctx context.Context, e *core.Enrollment) error {
	return translate(s.conn(ctx).Save(e).Error)
}

func (s *Store) LockEnrollment(ctx context.Context, orgID, enrollmentID uint) (*core.Enrollment, error) {
	var e core.Enrollment
	err := forUpdate(s.conn(ctx)).
		Where("id = ? AND organization_id = ?", enrollmentID, orgID).
		First(&e).Error
	if err != nil {
		return nil, notFound(err, "enrollment", enrollmentID)
	}
	return &e, nil
}

func (s *Store) CurrentEnrollment(ctx context.Context, orgID, studentID uint) (*core.Enrollment, error) {
	var found []core.Enrollment
	err := forUpdate(s.conn(ctx)).
		Where("organization_id = ? AND student_id = ? AND status = ?", orgID, studentID, core.EnrollmentActive).
		Order("end_date IS NULL, end_date DESC, updated_at DESC, id DESC").
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, translate(err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (s *Store) ListEnrollments(ctx context.Context, orgID uint, f core.EnrollmentFilter) ([]core.Enrollment, error) {
	q := s.conn(ctx).Where("organization_id = ?", orgID)
	if f.StudentID != nil {
		q = q.Where("student_id = ?", *f.StudentID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.EndFrom != nil {
		q = q.Where("end_date >= ?", *f.EndFrom)
	}
	if f.EndThrough != nil {
		q = q.Where("end_date <= ?", *f.EndThrough)
	}

	var out []core.Enrollment
	if err := q.Order("start_date DESC, id DESC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) ExpiringEnrollments(ctx context.Context, orgID uint, through calendar.Date) ([]core.Enrollment, error) {
	var out []core.Enrollment
	err := forUpdate(s.conn(ctx)).
		Where("organization_id = ? AND status = ?", orgID, core.EnrollmentActive).
		Where("end_date IS NOT NULL AND end_date <= ?", through).
		Order("end_date, id").
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) LapsedEnrollments(ctx context.Context, orgID uint, day calendar.Date) ([]core.Enrollment, error) {
	var out []core.Enrollment
	err := forUpdate(s.conn(ctx)).
		Where("organization_id = ? AND status = ?", orgID, core.EnrollmentActive).
		Where("end_date IS NOT NULL AND end_date < ?", day).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) CountOccupiedStudents(ctx context.Context, orgID uint, from, through calendar.Date) (int, error) {
	var n int64
	err := s.conn(ctx).Model(&core.Enrollment{}).
		Where("organization_id = ? AND status IN ?", orgID, core.OccupyingStatuses).
		Where("start_date <= ?", through).
		Where("(end_date >= ? OR end_date IS NULL)", from).
		Distinct("student_id").
		Count(&n).Error
	if err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}
