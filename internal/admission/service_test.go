// internal/admission/service_test.go
//
// Orchestrator tests.  The directory side runs against sqlmock; the
// tenant registry gets an opener that either hands out mock pools or
// fails, which is enough to drive every saga branch short of real DDL.

package admission

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/sigedu/admision/internal/directory"
	"github.com/sigedu/admision/internal/provision"
	"github.com/sigedu/admision/internal/tenancy"
)

func mockDir(t *testing.T) (*directory.Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return directory.New(sqlx.NewDb(db, "sqlmock")), mock
}

func brokenRegistry(t *testing.T) *tenancy.Registry {
	t.Helper()
	reg := tenancy.New(func(schema string) (*sqlx.DB, error) {
		return nil, errors.New("connect refused")
	}, time.Minute, 4)
	t.Cleanup(reg.Close)
	return reg
}

func validInput() ProvisionInput {
	return ProvisionInput{
		Name:     "Ciclo Verano",
		Year:     2025,
		Started:  time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		Finished: time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
		Config: provision.Config{Shifts: []provision.ShiftConfig{
			{Name: "Mañana", StartTime: "08:00", EndTime: "12:25"},
		}},
	}
}

func TestProvisionRejectsBadInput(t *testing.T) {
	dir, _ := mockDir(t)
	svc := NewService(dir, brokenRegistry(t), Defaults{})

	cases := []struct {
		name   string
		mutate func(*ProvisionInput)
	}{
		{"missing name", func(in *ProvisionInput) { in.Name = "" }},
		{"year out of range", func(in *ProvisionInput) { in.Year = 1999 }},
		{"dates inverted", func(in *ProvisionInput) { in.Started, in.Finished = in.Finished, in.Started }},
		{"no shifts", func(in *ProvisionInput) { in.Config.Shifts = nil }},
		{"ragged shift window", func(in *ProvisionInput) { in.Config.Shifts[0].EndTime = "12:00" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.Provision(context.Background(), in)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestProvisionDuplicateNameAbortsBeforeProvisioning(t *testing.T) {
	dir, mock := mockDir(t)
	svc := NewService(dir, brokenRegistry(t), Defaults{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE admission_processes SET is_current = FALSE WHERE is_current`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO admission_processes`)).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := svc.Provision(context.Background(), validInput())
	require.ErrorIs(t, err, directory.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionFailureSweepsSchemaAndRollsBack(t *testing.T) {
	dir, mock := mockDir(t)
	// Opening the cycle's pool fails, which aborts provisioning before
	// any DDL runs.  The saga must drop the schema and roll back the
	// directory tx, leaving the demote undone and nothing promoted.
	svc := NewService(dir, brokenRegistry(t), Defaults{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE admission_processes SET is_current = FALSE WHERE is_current`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO admission_processes`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "year", "is_current", "started", "finished", "description", "created_at",
		}).AddRow(int16(1), "ciclo_verano_2025", int16(2025), false,
			time.Now(), time.Now(), nil, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`DROP SCHEMA IF EXISTS`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Provision(context.Background(), validInput())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

// seededRegistry hands the first opened pool to provisioning and plain
// pools to every later open (the main-slot swap).  afterOpen runs on
// each open call with its one-based sequence number.
func seededRegistry(t *testing.T, tenant *sqlx.DB, afterOpen func(call int)) *tenancy.Registry {
	t.Helper()
	var calls int
	reg := tenancy.New(func(schema string) (*sqlx.DB, error) {
		calls++
		if afterOpen != nil {
			afterOpen(calls)
		}
		if calls == 1 {
			return tenant, nil
		}
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		return sqlx.NewDb(db, "sqlmock"), nil
	}, time.Minute, 4)
	t.Cleanup(reg.Close)
	return reg
}

func TestProvisionSuccessPromotesThenSwitchesMain(t *testing.T) {
	dir, mock := mockDir(t)

	// Tenant side: one transaction of DDL plus seed inserts.  The seed
	// row counts track the embedded catalogs, so the exec expectations
	// are a generous unordered pool; Begin and Commit anchor the shape.
	tdb, tmock, err := sqlmock.New()
	require.NoError(t, err)
	tmock.MatchExpectationsInOrder(false)
	tmock.ExpectBegin()
	for i := 0; i < 256; i++ {
		tmock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	tmock.ExpectCommit()

	// The second open is the main-slot swap; by then the directory tx
	// must already be committed.
	reg := seededRegistry(t, sqlx.NewDb(tdb, "sqlmock"), func(call int) {
		if call == 2 {
			require.NoError(t, mock.ExpectationsWereMet(),
				"main pool swapped before the directory tx committed")
		}
	})
	svc := NewService(dir, reg, Defaults{})

	now := time.Now()
	rows := func(current bool) *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "name", "year", "is_current", "started", "finished", "description", "created_at",
		}).AddRow(int16(1), "ciclo_verano_2025", int16(2025), current, now, now, nil, now)
	}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE admission_processes SET is_current = FALSE WHERE is_current`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO admission_processes`)).
		WillReturnRows(rows(false))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE admission_processes SET is_current = TRUE`)).
		WillReturnRows(rows(true))
	mock.ExpectCommit()

	res, err := svc.Provision(context.Background(), validInput())
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "ciclo_verano_2025", res.TenantName)
	require.Equal(t, "ciclo_verano_2025", reg.MainTenant())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionSeedFailureDropsSchemaWithoutPromoting(t *testing.T) {
	dir, mock := mockDir(t)

	// Tenant side fails mid-seed: the first user insert errors, so the
	// tenant tx must roll back and nothing after it may run.
	tdb, tmock, err := sqlmock.New()
	require.NoError(t, err)
	tmock.ExpectBegin()
	tmock.ExpectExec(`CREATE SCHEMA`).WillReturnResult(sqlmock.NewResult(0, 0))
	tmock.ExpectExec(`CREATE TABLE`).WillReturnResult(sqlmock.NewResult(0, 0))
	tmock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(errors.New("disk full"))
	tmock.ExpectRollback()

	reg := seededRegistry(t, sqlx.NewDb(tdb, "sqlmock"), nil)
	svc := NewService(dir, reg, Defaults{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE admission_processes SET is_current = FALSE WHERE is_current`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO admission_processes`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "year", "is_current", "started", "finished", "description", "created_at",
		}).AddRow(int16(1), "ciclo_verano_2025", int16(2025), false,
			time.Now(), time.Now(), nil, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`DROP SCHEMA IF EXISTS`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = svc.Provision(context.Background(), validInput())
	require.ErrorContains(t, err, "disk full")
	require.Empty(t, reg.MainTenant())
	require.NoError(t, mock.ExpectationsWereMet())
	require.NoError(t, tmock.ExpectationsWereMet())
}

func TestListMemoizes(t *testing.T) {
	dir, mock := mockDir(t)
	svc := NewService(dir, brokenRegistry(t), Defaults{})

	mock.ExpectQuery(regexp.QuoteMeta(`FROM admission_processes ORDER BY year DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "year", "is_current", "started", "finished", "description", "created_at",
		}).AddRow(int16(1), "ciclo_2025", int16(2025), true,
			time.Now(), time.Now(), nil, time.Now()))
	mock.ExpectQuery(`FROM\s+observations`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "admission_process_id", "description", "created_at"}))

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Second call must be served from the memo; sqlmock would reject an
	// unexpected second query.
	second, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.NoError(t, mock.ExpectationsWereMet())
}
