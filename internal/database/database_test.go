// internal/database/database_test.go

package database

import (
	"net/url"
	"strings"
	"testing"
)

func TestForSchemaURLStyle(t *testing.T) {
	dsn, err := ForSchema("postgres://admision:pw@localhost:5432/admision?sslmode=disable", "ciclo_verano_2025")
	if err != nil {
		t.Fatalf("ForSchema error: %v", err)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("result does not parse: %v", err)
	}
	if got := u.Query().Get("search_path"); got != "ciclo_verano_2025" {
		t.Errorf("search_path = %q", got)
	}
	if got := u.Query().Get("sslmode"); got != "disable" {
		t.Errorf("existing parameter lost: sslmode = %q", got)
	}
}

func TestForSchemaOverwritesPrevious(t *testing.T) {
	dsn, err := ForSchema("postgres://localhost/admision?search_path=old", "new")
	if err != nil {
		t.Fatalf("ForSchema error: %v", err)
	}
	u, _ := url.Parse(dsn)
	if got := u.Query().Get("search_path"); got != "new" {
		t.Errorf("search_path = %q, want new", got)
	}
}

func TestForSchemaKeyValueStyle(t *testing.T) {
	dsn, err := ForSchema("host=localhost dbname=admision sslmode=disable", "ciclo_verano_2025")
	if err != nil {
		t.Fatalf("ForSchema error: %v", err)
	}
	if !strings.HasSuffix(dsn, " search_path=ciclo_verano_2025") {
		t.Errorf("parameter not appended: %q", dsn)
	}
}
