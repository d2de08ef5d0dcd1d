// internal/provision/seed.go
//
// Baseline reference-data seeding.
//
// Context
// -------
// The reference data every new cycle starts from—staff users, areas,
// sedes, the course catalog, and the per-area weekly hour totals—ships
// embedded with the binary.  Numeric identifiers are assigned here in
// file order (the new schema is empty, so there is nothing to collide
// with); staff users get fresh UUIDs per cycle.
//
// Notes
// -----
//   - Seeding runs inside the provisioning transaction; a failure rolls
//     back the whole schema.
//   - Course names in area_course_hours.json must match courses.json
//     exactly; an unmatched name aborts provisioning rather than seeding
//     a partial grid.
package provision

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schemaSQL string

//go:embed data/*.json
var dataFS embed.FS

type seedUser struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type seedNamed struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type seedCourse struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type seedInitial struct {
	Users []seedUser  `json:"users"`
	Areas []seedNamed `json:"areas"`
	Sedes []seedNamed `json:"sedes"`
}

type seedCourseHours struct {
	Course string `json:"course"`
	Total  string `json:"total"`
}

type seedAreaCourse struct {
	Area  string            `json:"area"`
	Hours []seedCourseHours `json:"hours"`
}

// refSet carries the identifiers assigned during the reference seed so
// the class and schedule seeds can reference them without re-querying
// the half-built schema.
type refSet struct {
	areaIDs   map[string]int16
	courseIDs map[string]int16
	sedeIDs   []int16
	hours     []hourEntry
}

type hourEntry struct {
	areaID   int16
	courseID int16
	total    int
}

var (
	areaNamesOnce sync.Once
	areaNames     map[string]struct{}
)

// referenceAreaNames exposes the embedded area catalog so request
// validation can reject class plans against areas that will not exist.
func referenceAreaNames() map[string]struct{} {
	areaNamesOnce.Do(func() {
		areaNames = make(map[string]struct{})
		var initial seedInitial
		if err := loadJSON("initial.json", &initial); err != nil {
			return
		}
		for _, a := range initial.Areas {
			areaNames[a.Name] = struct{}{}
		}
	})
	return areaNames
}

func loadJSON(name string, v any) error {
	raw, err := dataFS.ReadFile("data/" + name)
	if err != nil {
		return fmt.Errorf("provision: read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("provision: parse %s: %w", name, err)
	}
	return nil
}

// seedReference inserts users, sedes, areas, courses, and the area-course
// hour grid, and returns the assigned identifiers for the seeds that
// follow.  Shifts and sessions are seeded separately because they depend
// on request configuration.
func seedReference(ctx context.Context, tx *sqlx.Tx) (*refSet, error) {
	var initial seedInitial
	if err := loadJSON("initial.json", &initial); err != nil {
		return nil, err
	}
	var courseFile struct {
		Courses []seedCourse `json:"courses"`
	}
	if err := loadJSON("courses.json", &courseFile); err != nil {
		return nil, err
	}
	var hoursFile struct {
		AreaCourse []seedAreaCourse `json:"areaCourse"`
	}
	if err := loadJSON("area_course_hours.json", &hoursFile); err != nil {
		return nil, err
	}

	refs := &refSet{
		areaIDs:   make(map[string]int16, len(initial.Areas)),
		courseIDs: make(map[string]int16, len(courseFile.Courses)),
	}

	for _, u := range initial.Users {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email, full_name, role) VALUES ($1, $2, $3, $4)`,
			uuid.New(), u.Email, u.FullName, u.Role); err != nil {
			return nil, fmt.Errorf("provision: seed user %s: %w", u.Email, err)
		}
	}

	for i, a := range initial.Areas {
		id := int16(i + 1)
		refs.areaIDs[a.Name] = id
		var desc *string
		if a.Description != "" {
			desc = &a.Description
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO areas (id, name, description) VALUES ($1, $2, $3)`,
			id, a.Name, desc); err != nil {
			return nil, fmt.Errorf("provision: seed area %s: %w", a.Name, err)
		}
	}

	for i, s := range initial.Sedes {
		id := int16(i + 1)
		refs.sedeIDs = append(refs.sedeIDs, id)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sedes (id, name) VALUES ($1, $2)`,
			id, s.Name); err != nil {
			return nil, fmt.Errorf("provision: seed sede %s: %w", s.Name, err)
		}
	}

	for i, c := range courseFile.Courses {
		id := int16(i + 1)
		refs.courseIDs[c.Name] = id
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO courses (id, name, color) VALUES ($1, $2, $3)`,
			id, c.Name, c.Color); err != nil {
			return nil, fmt.Errorf("provision: seed course %s: %w", c.Name, err)
		}
	}

	for _, ac := range hoursFile.AreaCourse {
		areaID, ok := refs.areaIDs[ac.Area]
		if !ok {
			return nil, fmt.Errorf("provision: area_course_hours references unknown area %q", ac.Area)
		}
		for _, h := range ac.Hours {
			courseID, ok := refs.courseIDs[h.Course]
			if !ok {
				return nil, fmt.Errorf("provision: area %q references unknown course %q", ac.Area, h.Course)
			}
			total, err := strconv.Atoi(h.Total)
			if err != nil {
				return nil, fmt.Errorf("provision: area %q course %q hours %q: %w", ac.Area, h.Course, h.Total, err)
			}
			refs.hours = append(refs.hours, hourEntry{areaID: areaID, courseID: courseID, total: total})
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO area_course_hours (area_id, course_id, total_hours) VALUES ($1, $2, $3)`,
				areaID, courseID, total); err != nil {
				return nil, fmt.Errorf("provision: seed hours %s/%s: %w", ac.Area, h.Course, err)
			}
		}
	}
	return refs, nil
}

// seedShifts inserts the validated shift windows and their generated hour
// sessions, and returns the session identifiers keyed by shift so the
// schedule seed can fill the weekly grid.
func seedShifts(ctx context.Context, tx *sqlx.Tx, shifts []Shift) (map[int16][]int16, error) {
	const timeLayout = "15:04:05"
	sessions := make(map[int16][]int16, len(shifts))
	var sessionID int16
	for _, s := range shifts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shifts (id, name, start_time, end_time) VALUES ($1, $2, $3, $4)`,
			s.ID, s.Name, s.Start.Format(timeLayout), s.End.Format(timeLayout)); err != nil {
			return nil, fmt.Errorf("provision: seed shift %s: %w", s.Name, err)
		}
		for _, hs := range HourSessions(s) {
			sessionID++
			sessions[s.ID] = append(sessions[s.ID], sessionID)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO hour_sessions (id, shift_id, period, start_time, end_time) VALUES ($1, $2, $3, $4, $5)`,
				sessionID, hs.ShiftID, hs.Period,
				hs.Start.Format(timeLayout), hs.End.Format(timeLayout)); err != nil {
				return nil, fmt.Errorf("provision: seed session %d of shift %s: %w", hs.Period, s.Name, err)
			}
		}
	}
	return sessions, nil
}
