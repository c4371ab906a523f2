package schedule

import (
	"fmt"

	"github.com/open-crosspost/scheduler-service/internal/store"
)

// ValidateScheduleFields checks that exactly the schedule fields required by
// job.ScheduleType are populated, per spec.md §3's invariant. It does not
// compute next_run; callers combine this with RepeatPlanFor/NextRun to
// reject schedules that parse but can never fire (spec.md §4.5 step 2/5).
func ValidateScheduleFields(job *store.Job) error {
	switch job.ScheduleType {
	case store.ScheduleCron:
		if job.CronExpression == "" {
			return fmt.Errorf("cron_expression is required for schedule_type CRON")
		}
		if !IsValidCron(job.CronExpression) {
			return fmt.Errorf("invalid cron expression: %q", job.CronExpression)
		}

	case store.ScheduleSpecificTime:
		if job.SpecificTime == nil {
			return fmt.Errorf("specific_time is required for schedule_type SPECIFIC_TIME")
		}

	case store.ScheduleRecurring:
		if job.IntervalValue <= 0 {
			return fmt.Errorf("interval_value must be positive")
		}
		switch job.IntervalUnit {
		case store.IntervalMinute, store.IntervalHour, store.IntervalDay,
			store.IntervalWeek, store.IntervalMonth, store.IntervalYear:
		default:
			return fmt.Errorf("invalid interval: %q", job.IntervalUnit)
		}

	default:
		return fmt.Errorf("invalid schedule_type: %q", job.ScheduleType)
	}
	return nil
}
