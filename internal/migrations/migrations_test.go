package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionNumber(t *testing.T) {
	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"V1__documents.sql", 1, true},
		{"V12__add_index.sql", 12, true},
		{"sql/V3__x.sql", 3, true},
		{"1__documents.sql", 0, false},
		{"Vx__documents.sql", 0, false},
		{"V4.sql", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseVersionNumber(tt.name)
		assert.Equal(t, tt.wantOK, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestListMigrations_SortsByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"V10__later.sql": {Data: []byte("SELECT 1")},
		"V2__second.sql": {Data: []byte("SELECT 1")},
		"V1__first.sql":  {Data: []byte("SELECT 1")},
		"README.md":      {Data: []byte("docs")},
	}
	migs, err := listMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migs, 3)
	assert.Equal(t, "V1__first.sql", migs[0].Name)
	assert.Equal(t, "V2__second.sql", migs[1].Name)
	assert.Equal(t, "V10__later.sql", migs[2].Name)
}

func TestListMigrations_RejectsBadNames(t *testing.T) {
	_, err := listMigrations(fstest.MapFS{"create.sql": {Data: []byte("SELECT 1")}})
	require.Error(t, err)

	_, err = listMigrations(fstest.MapFS{
		"V1__a.sql": {Data: []byte("SELECT 1")},
		"V1__b.sql": {Data: []byte("SELECT 1")},
	})
	require.Error(t, err)
}

func TestEmbeddedFiles(t *testing.T) {
	migs, err := listMigrations(Files)
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	assert.Equal(t, 1, migs[0].Version)
}
