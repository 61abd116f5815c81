package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"postgres unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "ux_sessions_active_table"}, true},
		{"wrapped postgres unique violation", fmt.Errorf("insert session: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres check violation", &pgconn.PgError{Code: "23514", Message: "duplicate key value violates unique constraint"}, false},
		{"postgres message only", errors.New(`ERROR: duplicate key value violates unique constraint "ux_sessions_active_table" (SQLSTATE 23505)`), true},
		{"sqlite", errors.New("constraint failed: UNIQUE constraint failed: sessions.org_id, sessions.table_id (2067)"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}
