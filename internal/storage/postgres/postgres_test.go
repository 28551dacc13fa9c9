package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	assert.Equal(t, "'plain'", Quote("plain"))
	assert.Equal(t, "'it''s'", Quote("it's"))
	assert.Equal(t, ` E'a\\b'`, Quote(`a\b`))
}

func TestErrorCode(t *testing.T) {
	err := fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"})
	assert.Equal(t, "42P01", errorCode(err))
	assert.Equal(t, "", errorCode(errors.New("other")))
}

func TestCreateStatements(t *testing.T) {
	stmts := createStatements()
	require.NotEmpty(t, stmts)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE mt_cds_object"))
	assert.Equal(t, "SELECT setval('mt_cds_object_id_seq', 1)", stmts[len(stmts)-1],
		"the sequence must move past the seeded ids last")
}

func TestDialect(t *testing.T) {
	d := Dialect()
	assert.Equal(t, "postgres", d.Name)
	assert.True(t, d.InsertReturning)
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	require.Error(t, err)
}
