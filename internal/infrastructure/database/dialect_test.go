package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("postgres")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	d, err = ParseDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestRewritePostgres(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
	}{
		{
			name: "no placeholders",
			in:   "SELECT 1",
			want: "SELECT 1",
		},
		{
			name: "single placeholder",
			in:   "SELECT * FROM publications WHERE id = ?",
			want: "SELECT * FROM publications WHERE id = $1",
		},
		{
			name: "numbered in order",
			in:   "INSERT INTO images (id, url, sort_order) VALUES (?, ?, ?)",
			want: "INSERT INTO images (id, url, sort_order) VALUES ($1, $2, $3)",
		},
		{
			name: "question mark inside single-quoted literal is kept",
			in:   "SELECT * FROM publications WHERE title = '?' AND id = ?",
			want: "SELECT * FROM publications WHERE title = '?' AND id = $1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DialectPostgres.Rewrite(tt.in))
		})
	}
}

func TestRewriteSQLitePassthrough(t *testing.T) {
	q := "UPDATE publications SET state = ? WHERE id = ?"
	assert.Equal(t, q, DialectSQLite.Rewrite(q))
}
