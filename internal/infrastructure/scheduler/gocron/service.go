package timescheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/lockbox-labs/lockd/internal/core/ports"
)

type service struct {
	scheduler *gocron.Scheduler
	clock     ports.Clock
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewScheduler returns a wall-clock scheduler. An optional clock can be given
// to compute the delay of scheduled tasks.
func NewScheduler(clock ...ports.Clock) ports.SchedulerService {
	svc := &service{gocron.NewScheduler(time.UTC), systemClock{}}
	if len(clock) > 0 && clock[0] != nil {
		svc.clock = clock[0]
	}
	return svc
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
	s.scheduler.Clear()
}

// ScheduleTaskOnce runs the task at the given unix timestamp (in seconds).
// Tasks scheduled in the past run immediately.
func (s *service) ScheduleTaskOnce(tag string, at int64, task func()) error {
	delay := time.Unix(at, 0).Sub(s.clock.Now())
	if delay <= 0 {
		go task()
		return nil
	}

	if _, err := s.scheduler.Every(delay).Tag(tag).WaitForSchedule().LimitRunsTo(1).Do(task); err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", tag, err)
	}
	return nil
}

func (s *service) CancelTask(tag string) error {
	if err := s.scheduler.RemoveByTag(tag); err != nil {
		if errors.Is(err, gocron.ErrJobNotFoundWithTag) {
			return nil
		}
		return fmt.Errorf("failed to cancel task %s: %w", tag, err)
	}
	return nil
}
