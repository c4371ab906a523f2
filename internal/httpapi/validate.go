package httpapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/open-crosspost/scheduler-service/internal/engine"
	"github.com/open-crosspost/scheduler-service/internal/store"
)

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// jobRequest is the wire shape for POST /jobs and PUT /jobs/:id.
type jobRequest struct {
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	Target         string              `json:"target"`
	Payload        json.RawMessage     `json:"payload,omitempty"`
	ScheduleType   store.ScheduleType  `json:"schedule_type"`
	CronExpression string              `json:"cron_expression,omitempty"`
	SpecificTime   *string             `json:"specific_time,omitempty"`
	Interval       store.Interval      `json:"interval,omitempty"`
	IntervalValue  int                 `json:"interval_value,omitempty"`
	Status         store.Status        `json:"status,omitempty"`
}

// toInput parses the request's specific_time (RFC 3339) and maps the wire
// shape onto engine.Input. Time parsing is the one bit of validation the
// REST layer itself must do, since engine.Input takes a *time.Time.
func (req jobRequest) toInput() (engine.Input, error) {
	in := engine.Input{
		Name:           req.Name,
		Description:    req.Description,
		Target:         req.Target,
		Payload:        req.Payload,
		ScheduleType:   req.ScheduleType,
		CronExpression: req.CronExpression,
		IntervalUnit:   req.Interval,
		IntervalValue:  req.IntervalValue,
		Status:         req.Status,
	}

	if req.SpecificTime != nil {
		t, err := parseRFC3339(*req.SpecificTime)
		if err != nil {
			return engine.Input{}, fmt.Errorf("specific_time: %w", err)
		}
		in.SpecificTime = &t
	}
	return in, nil
}
