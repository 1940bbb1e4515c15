package enrollment

import "github.com/garderieflow/backoffice/core"

// Transition is a status change of an enrollment.
type Transition struct {
	From core.EnrollmentStatus
	To   core.EnrollmentStatus
}

// validTransitions lists every allowed status change. Terminated has no
// outgoing edge.
var validTransitions = map[Transition]bool{
	{core.EnrollmentActive, core.EnrollmentRenewed}:     true,
	{core.EnrollmentExpired, core.EnrollmentRenewed}:    true,
	{core.EnrollmentRenewed, core.EnrollmentRenewed}:    true,
	{core.EnrollmentActive, core.EnrollmentExpired}:     true,
	{core.EnrollmentActive, core.EnrollmentTerminated}:  true,
	{core.EnrollmentRenewed, core.EnrollmentTerminated}: true,
	{core.EnrollmentExpired, core.EnrollmentTerminated}: true,
}

// CanTransition reports whether an enrollment may move from one status to another.
func CanTransition(from, to core.EnrollmentStatus) bool {
	return validTransitions[Transition{From: from, To: to}]
}

// transition moves e to status to, or returns an *core.InvalidStateError
// naming op.
func transition(e *core.Enrollment, to core.EnrollmentStatus, op string) error {
	if !CanTransition(e.Status, to) {
		return &core.InvalidStateError{
			Kind:   "enrollment",
			ID:     e.ID,
			Status: string(e.Status),
			Op:     op,
		}
	}
	e.Status = to
	return nil
}
