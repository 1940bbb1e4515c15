package sqlstore

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
)

func (s *Store) UpsertAttendance(ctx context.Context, a *core.Attendance) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "arrival_time", "departure_time", "notes"}),
	}).Create(a).Error
	return translate(err)
}

func (s *Store) AttendanceBetween(ctx context.Context, orgID uint, from, to calendar.Date) ([]core.Attendance, error) {
	var out []core.Attendance
	err := s.conn(ctx).
		Where("organization_id = ? AND date >= ? AND date <= ?", orgID, from, to).
		Order("date, student_id").
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}
