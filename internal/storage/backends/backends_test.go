package backends

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-directory/internal/storage/sqlite"
)

func TestOpenSQLite(t *testing.T) {
	for _, driver := range []string{"", "sqlite3", "SQLite"} {
		t.Run("driver="+driver, func(t *testing.T) {
			s, err := Open(context.Background(), Config{
				Driver: driver,
				SQLite: sqlite.Options{Path: filepath.Join(t.TempDir(), "cds.db"), BackupInterval: time.Hour},
			}, nil)
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, "sqlite3", s.Backend().Name())
			_, ok := s.Backend().(*sqlite.Engine)
			assert.True(t, ok)
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":           DriverSQLite,
		"sqlite":     DriverSQLite,
		" SQLITE3 ":  DriverSQLite,
		"mariadb":    DriverMySQL,
		"MySQL":      DriverMySQL,
		"postgresql": DriverPostgres,
		"pgx":        DriverPostgres,
	}
	for in, want := range tests {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Normalize("oracle")
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{DriverSQLite, `'it''s'`},
		{DriverMySQL, `'it\'s'`},
		{DriverPostgres, `'it''s'`},
	}
	for _, tt := range tests {
		quote, err := Quote(tt.driver)
		require.NoError(t, err)
		assert.Equal(t, tt.want, quote("it's"), tt.driver)
	}

	_, err := Quote("oracle")
	assert.Error(t, err)
}
