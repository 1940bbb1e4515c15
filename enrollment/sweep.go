package enrollment

import (
	"context"
	"log"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
)

// ExpireLapsed moves every active enrollment whose end date has passed to
// expired and returns their ids. Open-ended enrollments never lapse.
func (s *Service) ExpireLapsed(ctx context.Context, orgID uint) ([]uint, error) {
	today := calendar.Today(s.Clock)

	var expired []uint
	err := s.Store.WithTx(ctx, func(st core.Store) error {
		if err := st.LockOrganization(ctx, orgID); err != nil {
			return err
		}
		lapsed, err := st.LapsedEnrollments(ctx, orgID, today)
		if err != nil {
			return err
		}
		for i := range lapsed {
			e := &lapsed[i]
			if err := transition(e, core.EnrollmentExpired, "expire"); err != nil {
				return err
			}
			if err := st.SaveEnrollment(ctx, e); err != nil {
				return err
			}
			expired = append(expired, e.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(expired) > 0 {
		log.Printf("[Sweep] org=%d day=%s: %d enrollment(s) expired", orgID, today, len(expired))
	}
	return expired, nil
}
