package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djb258/client-sub001/internal/errs"
)

func TestParseDriver(t *testing.T) {
	for _, name := range []string{"postgres", "mysql", "sqlite"} {
		d, err := ParseDriver(name)
		require.NoError(t, err)
		assert.Equal(t, Driver(name), d)
	}

	_, err := ParseDriver("oracle")
	assert.True(t, errs.IsConfig(err))
}

func TestSchema_AddColumn(t *testing.T) {
	var s Schema
	s.AddColumn("leads", &ColumnInfo{Name: "id"})
	s.AddColumn("leads", &ColumnInfo{Name: "email"})
	s.AddColumn("notes", &ColumnInfo{Name: "body"})

	require.Len(t, s.Tables, 2)
	assert.Equal(t, "leads", s.Tables["leads"].Name)
	require.Len(t, s.Tables["leads"].Columns, 2)
	assert.Equal(t, "email", s.Tables["leads"].Columns[1].Name)
}
