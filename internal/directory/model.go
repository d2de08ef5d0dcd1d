// internal/directory/model.go
//
// `admission_processes` table row model.
//
// Context
// -------
// The `Record` struct mirrors one row in the persistent
// **admission_processes** table, the system of record for which admission
// cycles exist and which one is current.  The table lives in the public
// schema; the cycles themselves live in schemas named after `Name`.
//
// Schema reference
//
//	CREATE TABLE admission_processes (
//	    id          SMALLSERIAL PRIMARY KEY,
//	    name        VARCHAR(48)  NOT NULL,
//	    year        SMALLINT     NOT NULL CHECK (year BETWEEN 2020 AND 2100),
//	    is_current  BOOLEAN      NOT NULL DEFAULT FALSE,
//	    started     DATE         NOT NULL DEFAULT CURRENT_DATE,
//	    finished    DATE         NOT NULL DEFAULT CURRENT_DATE,
//	    description VARCHAR(255),
//	    created_at  TIMESTAMP    NOT NULL DEFAULT NOW()
//	);
//	CREATE UNIQUE INDEX admission_process_name_unique ON admission_processes (name);
//
// Notes
// -----
// • At most one row carries `is_current = TRUE`; the repository enforces
//   the cross-row invariant by always demoting before promoting, inside
//   one transaction.
// • Rows are never physically deleted here; a failed provisioning run may
//   leave a non-current row behind for operators to retry or remove.
// • This struct contains no behaviour—pure data model for sqlx scans.
package directory

import "time"

// Record mirrors one row in the `admission_processes` table.  The
// repository's read paths fill Observations from the companion table.
type Record struct {
	ID          int16     `db:"id" json:"-"`
	Name        string    `db:"name" json:"name"`
	Year        int16     `db:"year" json:"year"`
	IsCurrent   bool      `db:"is_current" json:"isCurrent"`
	Started     time.Time `db:"started" json:"started"`
	Finished    time.Time `db:"finished" json:"finished"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"-"`

	Observations []Observation `db:"-" json:"observations"`
}

// Observation is one operator note attached to a cycle (audit trail of
// date changes, incident remarks, and the like).
//
//	CREATE TABLE observations (
//	    id                    SERIAL PRIMARY KEY,
//	    admission_process_id  SMALLINT NOT NULL
//	        REFERENCES admission_processes (id) ON DELETE CASCADE,
//	    description           VARCHAR(500),
//	    created_at            TIMESTAMP NOT NULL DEFAULT NOW()
//	);
type Observation struct {
	ID          int32     `db:"id" json:"-"`
	ProcessID   int16     `db:"admission_process_id" json:"-"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
