package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestDuplicateLinkDetection(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "uq_gl_document_links"}
	require.True(t, isDuplicateLink(dup))
	require.True(t, isDuplicateLink(fmt.Errorf("exec: %w", dup)))

	require.False(t, isDuplicateLink(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_code_key"}))
	require.False(t, isDuplicateLink(errors.New("connection reset")))
	require.False(t, isDuplicateLink(nil))
}
