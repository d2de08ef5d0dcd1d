// internal/provision/shifts.go
//
// Shift windows and hour-session generation.
//
// Context
// -------
// Each admission cycle is configured with one or more shifts (morning,
// afternoon, night), given as HH:MM windows.  A shift decomposes into
// numbered hour sessions: 40 minutes of class followed by a 5-minute
// break, so a well-formed window is a whole number of 45-minute periods.
// Sessions are generated here once, at provisioning time, and become the
// grid the schedule tables reference.
package provision

import (
	"errors"
	"fmt"
	"time"
)

const (
	sessionLen = 40 * time.Minute
	breakLen   = 5 * time.Minute
	periodLen  = sessionLen + breakLen
)

// ErrInvalidShift classifies malformed shift windows so the orchestrator
// can reject them as validation errors, before any side effect.
var ErrInvalidShift = errors.New("provision: invalid shift window")

// ClassToArea asks for a number of monitor-led classes in one area
// during one shift.
type ClassToArea struct {
	Area            string `json:"area" validate:"required"`
	QuantityClasses int    `json:"quantityClasses" validate:"required,min=1"`
}

// ShiftConfig is the operator-supplied window for one shift, with the
// classes to open inside it.
type ShiftConfig struct {
	Name           string        `json:"name" validate:"required,max=32"`
	StartTime      string        `json:"startTime" validate:"required,datetime=15:04"`
	EndTime        string        `json:"endTime" validate:"required,datetime=15:04"`
	ClassesToAreas []ClassToArea `json:"classesToAreas" validate:"omitempty,dive"`
}

// Config is the baseline-seed configuration attached to a provisioning
// request.  CreateSchedules is tri-state: nil defers to the deployment
// default (admission.seed_schedules).
type Config struct {
	EmailDomain     string        `json:"emailDomain" validate:"omitempty,startswith=@,contains=."`
	CreateSchedules *bool         `json:"createSchedules"`
	Shifts          []ShiftConfig `json:"shifts" validate:"required,min=1,dive"`
}

// Shift is a validated window with its assigned identifier and class
// plan.
type Shift struct {
	ID      int16
	Name    string
	Start   time.Time
	End     time.Time
	Classes []ClassToArea
}

// HourSession is one 40-minute teaching block inside a shift.
type HourSession struct {
	ID      int16
	ShiftID int16
	Period  int16
	Start   time.Time
	End     time.Time
}

// BuildShifts validates every configured window and assigns sequential
// identifiers.  It is called during the orchestrator's validate step, so
// a malformed window fails the whole request with no side effects.
func BuildShifts(cfgs []ShiftConfig) ([]Shift, error) {
	shifts := make([]Shift, 0, len(cfgs))
	seen := make(map[string]struct{}, len(cfgs))
	for i, c := range cfgs {
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate shift %q", ErrInvalidShift, c.Name)
		}
		seen[c.Name] = struct{}{}

		start, err := time.Parse("15:04", c.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %q start %q", ErrInvalidShift, c.Name, c.StartTime)
		}
		end, err := time.Parse("15:04", c.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %q end %q", ErrInvalidShift, c.Name, c.EndTime)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("%w: %q end time must be after start time", ErrInvalidShift, c.Name)
		}
		// A window plus the trailing break must decompose into whole
		// 45-minute periods.
		if (end.Sub(start)+breakLen)%periodLen != 0 {
			return nil, fmt.Errorf("%w: %q span does not decompose into 45-minute periods", ErrInvalidShift, c.Name)
		}

		// Class plans must target known areas, once each.
		areas := referenceAreaNames()
		seenArea := make(map[string]struct{}, len(c.ClassesToAreas))
		for _, cta := range c.ClassesToAreas {
			if _, ok := areas[cta.Area]; !ok {
				return nil, fmt.Errorf("%w: %q targets unknown area %q", ErrInvalidShift, c.Name, cta.Area)
			}
			if _, dup := seenArea[cta.Area]; dup {
				return nil, fmt.Errorf("%w: %q lists area %q twice", ErrInvalidShift, c.Name, cta.Area)
			}
			seenArea[cta.Area] = struct{}{}
			if cta.QuantityClasses < 1 {
				return nil, fmt.Errorf("%w: %q area %q needs at least one class", ErrInvalidShift, c.Name, cta.Area)
			}
		}

		shifts = append(shifts, Shift{
			ID:      int16(i + 1),
			Name:    c.Name,
			Start:   start,
			End:     end,
			Classes: c.ClassesToAreas,
		})
	}
	return shifts, nil
}

// HourSessions expands one shift into its numbered sessions.  Identifiers
// are assigned by the caller across all shifts.
func HourSessions(s Shift) []HourSession {
	var out []HourSession
	current := s.Start
	for period := int16(1); current.Before(s.End); period++ {
		end := current.Add(sessionLen)
		out = append(out, HourSession{
			ShiftID: s.ID,
			Period:  period,
			Start:   current,
			End:     end,
		})
		current = end.Add(breakLen)
	}
	return out
}
