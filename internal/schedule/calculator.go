// Package schedule implements the pure, side-effect-free mapping from a
// schedule specification to dispatch instants (spec.md §4.1). Nothing here
// touches the Job Store or the Dispatch Queue.
package schedule

import (
	"time"

	"github.com/open-crosspost/scheduler-service/internal/store"
)

// RepeatPlan is the Dispatch Queue's repeating-registration description:
// either a cron expression or a fixed period. At most one field is set; the
// zero value (see IsZero) means no repeating registration.
type RepeatPlan struct {
	Cron  string
	Every time.Duration
}

// IsZero reports whether the plan carries neither a cron expression nor a
// fixed period — i.e. the schedule cannot be expressed as a repeat_plan and
// must instead be re-enqueued per dispatch (spec.md §9, MONTH/YEAR).
func (p RepeatPlan) IsZero() bool {
	return p.Cron == "" && p.Every == 0
}

// NextOccurrence computes the instant after from that a repeating queue entry
// should next fire, for the Dispatch Queue to re-arm itself once the current
// occurrence has been claimed (spec.md §4.3: "repeating registrations re-emit
// on their next occurrence"). Callers must not invoke this on a zero plan.
func (p RepeatPlan) NextOccurrence(from time.Time) (time.Time, error) {
	if p.Cron != "" {
		return NextCronTick(p.Cron, from)
	}
	return from.Add(p.Every), nil
}

// InitialDelay returns the delay until the first dispatch for a SPECIFIC_TIME
// job, or nil if the schedule doesn't use an initial delay (spec.md §4.1).
// A specific_time of exactly now or in the past yields nil.
func InitialDelay(job *store.Job, now time.Time) *time.Duration {
	if job.ScheduleType != store.ScheduleSpecificTime {
		return nil
	}
	if job.SpecificTime == nil {
		return nil
	}
	d := job.SpecificTime.Sub(now)
	if d <= 0 {
		return nil
	}
	return &d
}

// RepeatPlanFor computes the Dispatch Queue repeating registration for a
// job, or the zero RepeatPlan if the schedule needs per-dispatch
// re-enqueueing (CRON parse failure, SPECIFIC_TIME, RECURRING with
// MONTH/YEAR, or an invalid interval).
func RepeatPlanFor(job *store.Job) RepeatPlan {
	switch job.ScheduleType {
	case store.ScheduleCron:
		if !IsValidCron(job.CronExpression) {
			return RepeatPlan{}
		}
		return RepeatPlan{Cron: job.CronExpression}

	case store.ScheduleRecurring:
		if job.IntervalValue <= 0 {
			return RepeatPlan{}
		}
		unit, ok := fixedDurationUnit(job.IntervalUnit)
		if !ok {
			// MONTH/YEAR: no fixed-duration representation (spec.md §9).
			return RepeatPlan{}
		}
		return RepeatPlan{Every: time.Duration(job.IntervalValue) * unit}

	default: // SPECIFIC_TIME
		return RepeatPlan{}
	}
}

// fixedDurationUnit maps an Interval to a time.Duration unit when the
// interval has a fixed-duration representation. MONTH and YEAR do not,
// since month/year lengths vary with calendar arithmetic.
func fixedDurationUnit(unit store.Interval) (time.Duration, bool) {
	switch unit {
	case store.IntervalMinute:
		return time.Minute, true
	case store.IntervalHour:
		return time.Hour, true
	case store.IntervalDay:
		return 24 * time.Hour, true
	case store.IntervalWeek:
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// NextRun returns the first dispatch instant strictly after from consistent
// with the job's schedule, or nil if the schedule has no future occurrence
// (spec.md §4.1). The reference instant is used exclusively — no rounding up
// to the next whole minute beyond what a cron expression already implies.
func NextRun(job *store.Job, from time.Time) (*time.Time, error) {
	switch job.ScheduleType {
	case store.ScheduleSpecificTime:
		if job.SpecificTime == nil || !job.SpecificTime.After(from) {
			return nil, nil
		}
		t := *job.SpecificTime
		return &t, nil

	case store.ScheduleCron:
		next, err := NextCronTick(job.CronExpression, from)
		if err != nil {
			return nil, err
		}
		return &next, nil

	case store.ScheduleRecurring:
		if job.IntervalValue <= 0 {
			return nil, nil
		}
		next := addInterval(from, job.IntervalUnit, job.IntervalValue)
		return &next, nil

	default:
		return nil, nil
	}
}

// addInterval adds interval_value × interval to t using calendar arithmetic,
// so MONTH/YEAR respect month lengths and year boundaries and WEEK is 7
// calendar days (spec.md §4.1).
func addInterval(t time.Time, unit store.Interval, value int) time.Time {
	switch unit {
	case store.IntervalMinute:
		return t.Add(time.Duration(value) * time.Minute)
	case store.IntervalHour:
		return t.Add(time.Duration(value) * time.Hour)
	case store.IntervalDay:
		return t.AddDate(0, 0, value)
	case store.IntervalWeek:
		return t.AddDate(0, 0, value*7)
	case store.IntervalMonth:
		return t.AddDate(0, value, 0)
	case store.IntervalYear:
		return t.AddDate(value, 0, 0)
	default:
		return t
	}
}
