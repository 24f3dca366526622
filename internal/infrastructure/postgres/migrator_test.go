package postgres

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestMigratorRejectsMissingSource(t *testing.T) {
	m := NewMigrator("postgres://loanledger@127.0.0.1:1/loans?sslmode=disable", "/nonexistent/migrations", zerolog.Nop())

	if err := m.Up(); err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
	if _, _, err := m.Version(); err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
}
