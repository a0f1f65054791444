package app

import "time"

// Recurrence yields the next firing strictly after the given instant, or the
// zero time when there is none. cron.Schedule has the same shape.
type Recurrence interface {
	Next(time.Time) time.Time
}

type TriggerID int

// TriggerEngine runs jobs on recurrences. Cancel on an unknown ID is a no-op.
type TriggerEngine interface {
	Arm(r Recurrence, job func()) TriggerID
	ArmOnce(at time.Time, job func()) TriggerID
	Cancel(id TriggerID)
}

// jobTimeout bounds a fired job's context, covering every retry attempt.
const jobTimeout = 5 * time.Minute
