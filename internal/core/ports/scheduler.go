package ports

import "time"

type SchedulerService interface {
	Start()
	Stop()
	// ScheduleTaskOnce runs task once at the given unix time, or right away
	// if the time is already past. The tag identifies the task for CancelTask.
	ScheduleTaskOnce(tag string, at int64, task func()) error
	// CancelTask drops the pending task with the given tag. Cancelling a task
	// that already ran or was never scheduled is a no-op.
	CancelTask(tag string) error
}

type Clock interface {
	Now() time.Time
}
