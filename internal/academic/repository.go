// internal/academic/repository.go
//
// Tenant-scoped reference-data reads.
//
// Context
// -------
// Every query here implicitly targets the schema carried by the request
// context: the repository asks the registry for `ForContext(ctx)` and
// never names a schema itself.  A request with no X-Admission-Schema
// header reads the current cycle through the main slot; one carrying a
// past cycle's name reads that cycle's schema instead, through a cached
// pool.  This is the only way the CRUD layer reaches the core.
package academic

import (
	"context"

	"github.com/sigedu/admision/internal/tenancy"
)

// Area is one admission area (Biomédicas, Ingenierías, …).
type Area struct {
	ID          int16   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
}

// Course is one catalog entry.
type Course struct {
	ID    int16  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Color string `db:"color" json:"color"`
}

// Shift is one configured teaching window.
type Shift struct {
	ID        int16  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	StartTime string `db:"start_time" json:"startTime"`
	EndTime   string `db:"end_time" json:"endTime"`
}

// CourseLoad is the weekly hour total of one course within one area.
type CourseLoad struct {
	Area       string `db:"area" json:"area"`
	Course     string `db:"course" json:"course"`
	TotalHours int16  `db:"total_hours" json:"totalHours"`
}

// Repository reads reference data from whichever cycle the context names.
type Repository struct {
	registry *tenancy.Registry
}

// New wraps the registry.
func New(registry *tenancy.Registry) *Repository {
	return &Repository{registry: registry}
}

// Areas lists the cycle's areas.
func (r *Repository) Areas(ctx context.Context) ([]Area, error) {
	db, err := r.registry.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	var out []Area
	err = db.SelectContext(ctx, &out, `SELECT id, name, description FROM areas ORDER BY id`)
	return out, err
}

// Courses lists the cycle's course catalog.
func (r *Repository) Courses(ctx context.Context) ([]Course, error) {
	db, err := r.registry.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	var out []Course
	err = db.SelectContext(ctx, &out, `SELECT id, name, color FROM courses ORDER BY id`)
	return out, err
}

// Shifts lists the cycle's teaching windows.
func (r *Repository) Shifts(ctx context.Context) ([]Shift, error) {
	db, err := r.registry.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	var out []Shift
	err = db.SelectContext(ctx, &out,
		`SELECT id, name, start_time::text AS start_time, end_time::text AS end_time FROM shifts ORDER BY id`)
	return out, err
}

// CourseLoads lists the per-area weekly hour grid.
func (r *Repository) CourseLoads(ctx context.Context) ([]CourseLoad, error) {
	db, err := r.registry.ForContext(ctx)
	if err != nil {
		return nil, err
	}
	var out []CourseLoad
	err = db.SelectContext(ctx, &out, `
	    SELECT a.name AS area, c.name AS course, ach.total_hours
	    FROM   area_course_hours ach
	    JOIN   areas   a ON a.id = ach.area_id
	    JOIN   courses c ON c.id = ach.course_id
	    ORDER  BY a.id, ach.total_hours DESC, c.id`)
	return out, err
}
