package schedule

import (
	"testing"
	"time"

	"github.com/open-crosspost/scheduler-service/internal/store"
)

func jobWith(mutate func(*store.Job)) *store.Job {
	j := &store.Job{ScheduleType: store.ScheduleSpecificTime}
	mutate(j)
	return j
}

func TestInitialDelay_SpecificTimeFuture(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(1 * time.Second)
	job := jobWith(func(j *store.Job) { j.SpecificTime = &future })

	d := InitialDelay(job, now)
	if d == nil || *d != 1*time.Second {
		t.Fatalf("expected 1s delay, got %v", d)
	}
}

func TestInitialDelay_SpecificTimeExactlyNow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	job := jobWith(func(j *store.Job) { j.SpecificTime = &now })

	if d := InitialDelay(job, now); d != nil {
		t.Fatalf("specific_time == now should be treated as past, got %v", d)
	}
}

func TestInitialDelay_NonSpecificTimeIsNil(t *testing.T) {
	job := &store.Job{ScheduleType: store.ScheduleRecurring}
	if d := InitialDelay(job, time.Now()); d != nil {
		t.Fatalf("expected nil for non-SPECIFIC_TIME schedule, got %v", d)
	}
}

func TestRepeatPlanFor_Cron(t *testing.T) {
	job := &store.Job{ScheduleType: store.ScheduleCron, CronExpression: "* * * * *"}
	plan := RepeatPlanFor(job)
	if plan.Cron != "* * * * *" || plan.Every != 0 {
		t.Fatalf("expected cron plan, got %+v", plan)
	}
}

func TestRepeatPlanFor_InvalidCronIsZero(t *testing.T) {
	job := &store.Job{ScheduleType: store.ScheduleCron, CronExpression: "not a cron"}
	if plan := RepeatPlanFor(job); !plan.IsZero() {
		t.Fatalf("expected zero plan for invalid cron, got %+v", plan)
	}
}

func TestRepeatPlanFor_RecurringFixedUnits(t *testing.T) {
	job := &store.Job{ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalHour, IntervalValue: 3}
	plan := RepeatPlanFor(job)
	if plan.Every != 3*time.Hour {
		t.Fatalf("expected 3h period, got %+v", plan)
	}
}

func TestRepeatPlanFor_MonthYearIsZero(t *testing.T) {
	for _, unit := range []store.Interval{store.IntervalMonth, store.IntervalYear} {
		job := &store.Job{ScheduleType: store.ScheduleRecurring, IntervalUnit: unit, IntervalValue: 1}
		if plan := RepeatPlanFor(job); !plan.IsZero() {
			t.Errorf("expected zero plan for %s, got %+v", unit, plan)
		}
	}
}

func TestRepeatPlanFor_SpecificTimeIsZero(t *testing.T) {
	now := time.Now()
	job := &store.Job{ScheduleType: store.ScheduleSpecificTime, SpecificTime: &now}
	if plan := RepeatPlanFor(job); !plan.IsZero() {
		t.Fatalf("expected zero plan for SPECIFIC_TIME, got %+v", plan)
	}
}

func TestNextRun_AlwaysStrictlyAfterFrom(t *testing.T) {
	from := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	cases := []*store.Job{
		{ScheduleType: store.ScheduleCron, CronExpression: "*/5 * * * *"},
		{ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalMinute, IntervalValue: 1},
		{ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalMonth, IntervalValue: 1},
		{ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalYear, IntervalValue: 1},
	}

	for i, job := range cases {
		next, err := NextRun(job, from)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if next == nil || !next.After(from) {
			t.Errorf("case %d: expected next strictly after %v, got %v", i, from, next)
		}
	}
}

func TestNextRun_MonthRespectsCalendarArithmetic(t *testing.T) {
	from := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	job := &store.Job{ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalMonth, IntervalValue: 1}

	next, err := NextRun(job, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// time.Time.AddDate(0,1,0) normalizes Jan 31 + 1 month to Mar 3 (Feb has 28 days in 2026).
	if next.Month() != time.March {
		t.Errorf("expected calendar-normalized rollover into March, got %v", next)
	}
}

func TestNextRun_SpecificTimePastIsNil(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past := from.Add(-time.Hour)
	job := &store.Job{ScheduleType: store.ScheduleSpecificTime, SpecificTime: &past}

	next, err := NextRun(job, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != nil {
		t.Fatalf("expected nil next_run for past specific_time, got %v", next)
	}
}

func TestIsValidCron_FieldCount(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"* * * * *", true},
		{"* * * * * *", true},
		{"* * * *", false},      // 4 fields
		{"* * * * * * *", false}, // 7 fields
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidCron(tt.expr); got != tt.want {
			t.Errorf("IsValidCron(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}
