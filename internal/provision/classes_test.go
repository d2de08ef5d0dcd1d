// internal/provision/classes_test.go

package provision

import (
	"errors"
	"testing"
)

func planShifts(t *testing.T, cfgs []ShiftConfig) []Shift {
	t.Helper()
	shifts, err := BuildShifts(cfgs)
	if err != nil {
		t.Fatalf("BuildShifts error: %v", err)
	}
	return shifts
}

func TestClassPlansNamingConvention(t *testing.T) {
	shifts := planShifts(t, []ShiftConfig{
		{Name: "Mañana", StartTime: "08:00", EndTime: "12:25", ClassesToAreas: []ClassToArea{
			{Area: "Biomédicas", QuantityClasses: 2},
			{Area: "Ingenierías", QuantityClasses: 1},
		}},
		{Name: "Tarde", StartTime: "14:00", EndTime: "17:40", ClassesToAreas: []ClassToArea{
			{Area: "Sociales", QuantityClasses: 1},
		}},
	})

	plans := classPlans(shifts, "")
	if len(plans) != 4 {
		t.Fatalf("want 4 plans, got %d", len(plans))
	}

	want := []struct {
		email, class, full string
		shiftID            int16
	}{
		{"101b@sigedu.pe", "B-101 Biomédicas", "Monitor B-101", 1},
		{"102b@sigedu.pe", "B-102 Biomédicas", "Monitor B-102", 1},
		{"101i@sigedu.pe", "I-101 Ingenierías", "Monitor I-101", 1},
		{"201s@sigedu.pe", "S-201 Sociales", "Monitor S-201", 2},
	}
	for i, w := range want {
		p := plans[i]
		if p.Email != w.email || p.ClassName != w.class || p.FullName != w.full || p.ShiftID != w.shiftID {
			t.Errorf("plan %d: got %q/%q/%q shift %d, want %q/%q/%q shift %d",
				i, p.Email, p.ClassName, p.FullName, p.ShiftID, w.email, w.class, w.full, w.shiftID)
		}
	}

	// Every generated identifier must be distinct; a duplicate would
	// collide on insert.
	seen := make(map[string]struct{}, 3*len(plans))
	for _, p := range plans {
		for _, id := range []string{p.ClassID.String(), p.MonitorID.String(), p.UserID.String()} {
			if _, dup := seen[id]; dup {
				t.Fatalf("duplicate generated id %s", id)
			}
			seen[id] = struct{}{}
		}
	}
}

func TestClassPlansCustomDomain(t *testing.T) {
	shifts := planShifts(t, []ShiftConfig{
		{Name: "Mañana", StartTime: "08:00", EndTime: "12:25", ClassesToAreas: []ClassToArea{
			{Area: "Biomédicas", QuantityClasses: 1},
		}},
	})
	plans := classPlans(shifts, "@uni.edu")
	if len(plans) != 1 || plans[0].Email != "101b@uni.edu" {
		t.Fatalf("custom domain not applied: %+v", plans)
	}
}

func TestWeeklyGridFillsEverySlotProportionally(t *testing.T) {
	refs := &refSet{
		areaIDs: map[string]int16{"Biomédicas": 1},
		hours: []hourEntry{
			{areaID: 1, courseID: 7, total: 4},
			{areaID: 1, courseID: 9, total: 2},
			{areaID: 2, courseID: 3, total: 8}, // other area, must not leak in
		},
	}
	plan := classPlan{Area: "Biomédicas", ShiftID: 1}
	sessions := []int16{1, 2, 3}

	rows := weeklyGrid(plan, refs, sessions)
	if len(rows) != len(weekdays)*len(sessions) {
		t.Fatalf("want %d filled slots, got %d", len(weekdays)*len(sessions), len(rows))
	}

	counts := make(map[int16]int)
	perDay := make(map[string]int)
	for _, r := range rows {
		counts[r.CourseID]++
		perDay[r.Weekday]++
	}
	if counts[3] != 0 {
		t.Errorf("grid picked up another area's course: %v", counts)
	}
	// The 4:2 hour split cycles as four slots of course 7 then two of
	// course 9; over 15 slots that lands on 11 and 4.
	if counts[7] != 11 || counts[9] != 4 {
		t.Errorf("proportions off: %v", counts)
	}
	for _, day := range weekdays {
		if perDay[day] != len(sessions) {
			t.Errorf("weekday %s has %d slots, want %d", day, perDay[day], len(sessions))
		}
	}
}

func TestWeeklyGridEmptyWithoutHours(t *testing.T) {
	refs := &refSet{areaIDs: map[string]int16{"Sociales": 2}}
	if rows := weeklyGrid(classPlan{Area: "Sociales"}, refs, []int16{1, 2}); rows != nil {
		t.Fatalf("want no rows for an area with no hour grid, got %d", len(rows))
	}
}

func TestBuildShiftsClassPlanRejections(t *testing.T) {
	cases := []struct {
		name string
		ctas []ClassToArea
	}{
		{"unknown area", []ClassToArea{{Area: "Astrología", QuantityClasses: 1}}},
		{"duplicate area", []ClassToArea{
			{Area: "Biomédicas", QuantityClasses: 1},
			{Area: "Biomédicas", QuantityClasses: 2},
		}},
		{"zero classes", []ClassToArea{{Area: "Biomédicas", QuantityClasses: 0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildShifts([]ShiftConfig{
				{Name: "Mañana", StartTime: "08:00", EndTime: "12:25", ClassesToAreas: tc.ctas},
			})
			if !errors.Is(err, ErrInvalidShift) {
				t.Fatalf("want ErrInvalidShift, got %v", err)
			}
		})
	}
}

func TestBuildShiftsCarriesClassPlan(t *testing.T) {
	shifts := planShifts(t, []ShiftConfig{
		{Name: "Mañana", StartTime: "08:00", EndTime: "12:25", ClassesToAreas: []ClassToArea{
			{Area: "Sociales", QuantityClasses: 3},
		}},
	})
	if len(shifts[0].Classes) != 1 || shifts[0].Classes[0].QuantityClasses != 3 {
		t.Fatalf("class plan lost in validation: %+v", shifts[0])
	}
}
