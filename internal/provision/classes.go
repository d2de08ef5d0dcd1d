// internal/provision/classes.go
//
// Monitor, class, and weekly-schedule seeding.
//
// Context
// -------
// A provisioning request may ask for classes per area per shift.  Each
// class gets a generated monitor account whose email encodes the shift
// and area (shift 1, Biomédicas, third class → 103b@<domain>), matching
// the convention operators already know from earlier cycles.  When the
// request (or the deployment default) enables schedule seeding, every
// class also receives a full weekly grid: its area's courses spread over
// the shift's hour sessions, Monday through Friday, proportionally to
// the weekly hour totals in area_course_hours.
package provision

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const defaultEmailDomain = "@sigedu.pe"

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

// classPlan is one generated class with its monitor account.
type classPlan struct {
	ClassID   uuid.UUID
	MonitorID uuid.UUID
	UserID    uuid.UUID
	Email     string
	FullName  string
	ClassName string
	Area      string
	ShiftID   int16
}

// classPlans expands every shift's class plan into concrete rows.
// Deterministic apart from the generated identifiers: email numbering
// starts at shift*100+1 and the class code prefixes the area initial.
func classPlans(shifts []Shift, domain string) []classPlan {
	if domain == "" {
		domain = defaultEmailDomain
	}
	var out []classPlan
	for _, s := range shifts {
		for _, cta := range s.Classes {
			initial := areaInitial(cta.Area)
			base := int(s.ID)*100 + 1
			for i := 0; i < cta.QuantityClasses; i++ {
				code := base + i
				out = append(out, classPlan{
					ClassID:   uuid.New(),
					MonitorID: uuid.New(),
					UserID:    uuid.New(),
					Email:     fmt.Sprintf("%d%c%s", code, unicode.ToLower(initial), domain),
					FullName:  fmt.Sprintf("Monitor %c-%d", unicode.ToUpper(initial), code),
					ClassName: fmt.Sprintf("%c-%d %s", unicode.ToUpper(initial), code, cta.Area),
					Area:      cta.Area,
					ShiftID:   s.ID,
				})
			}
		}
	}
	return out
}

func areaInitial(area string) rune {
	for _, r := range strings.TrimSpace(area) {
		return r
	}
	return 'x'
}

// seedClasses inserts the monitor users, monitors, and classes for every
// plan.  Classes are placed at the first sede.
func seedClasses(ctx context.Context, tx *sqlx.Tx, refs *refSet, plans []classPlan) error {
	if len(plans) == 0 {
		return nil
	}
	if len(refs.sedeIDs) == 0 {
		return fmt.Errorf("provision: no sede to place classes at")
	}
	sedeID := refs.sedeIDs[0]

	for _, p := range plans {
		areaID, ok := refs.areaIDs[p.Area]
		if !ok {
			return fmt.Errorf("provision: class plan references unknown area %q", p.Area)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email, full_name, role) VALUES ($1, $2, $3, $4)`,
			p.UserID, p.Email, p.FullName, "monitor"); err != nil {
			return fmt.Errorf("provision: seed monitor user %s: %w", p.Email, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO monitors (id, user_id) VALUES ($1, $2)`,
			p.MonitorID, p.UserID); err != nil {
			return fmt.Errorf("provision: seed monitor %s: %w", p.Email, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO classes (id, name, area_id, shift_id, sede_id, monitor_id) VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ClassID, p.ClassName, areaID, p.ShiftID, sedeID, p.MonitorID); err != nil {
			return fmt.Errorf("provision: seed class %s: %w", p.ClassName, err)
		}
	}
	return nil
}

// scheduleRow is one filled slot of a class's weekly grid.
type scheduleRow struct {
	ClassID       uuid.UUID
	CourseID      int16
	HourSessionID int16
	Weekday       string
}

// weeklyGrid fills every (weekday, hour session) slot of one class by
// cycling its area's courses, each repeated by its weekly hour total, so
// the filled week respects the area_course_hours proportions.
func weeklyGrid(plan classPlan, refs *refSet, sessionIDs []int16) []scheduleRow {
	areaID := refs.areaIDs[plan.Area]
	var queue []int16
	for _, h := range refs.hours {
		if h.areaID != areaID {
			continue
		}
		for i := 0; i < h.total; i++ {
			queue = append(queue, h.courseID)
		}
	}
	if len(queue) == 0 || len(sessionIDs) == 0 {
		return nil
	}

	rows := make([]scheduleRow, 0, len(weekdays)*len(sessionIDs))
	slot := 0
	for _, day := range weekdays {
		for _, sid := range sessionIDs {
			rows = append(rows, scheduleRow{
				ClassID:       plan.ClassID,
				CourseID:      queue[slot%len(queue)],
				HourSessionID: sid,
				Weekday:       day,
			})
			slot++
		}
	}
	return rows
}

// seedSchedules writes the weekly grid for every class.
func seedSchedules(ctx context.Context, tx *sqlx.Tx, refs *refSet, plans []classPlan, sessions map[int16][]int16) error {
	for _, p := range plans {
		for _, row := range weeklyGrid(p, refs, sessions[p.ShiftID]) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schedules (class_id, course_id, hour_session_id, weekday) VALUES ($1, $2, $3, $4)`,
				row.ClassID, row.CourseID, row.HourSessionID, row.Weekday); err != nil {
				return fmt.Errorf("provision: seed schedule for class %s: %w", p.ClassName, err)
			}
		}
	}
	return nil
}
