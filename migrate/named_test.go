package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeta(t *testing.T) {
	content := `-- migration: 003_add_user_avatar
-- depends: 001_init, 002_add_users
-- author: orion

ALTER TABLE users ADD COLUMN avatar text;
`
	meta, ok := ParseMeta(content)
	require.True(t, ok)
	assert.Equal(t, "003_add_user_avatar", meta.Name)
	assert.Equal(t, []string{"001_init", "002_add_users"}, meta.Depends)
	assert.Equal(t, "orion", meta.Author)
}

func TestParseMetaStopsAtContent(t *testing.T) {
	content := `-- migration: 001_init
SELECT 1;
-- depends: should_not_be_seen
`
	meta, ok := ParseMeta(content)
	require.True(t, ok)
	assert.Empty(t, meta.Depends)
}

func TestParseMetaAbsent(t *testing.T) {
	_, ok := ParseMeta("CREATE TABLE t (id int);")
	assert.False(t, ok)
}

func TestMetaHeaderRoundTrip(t *testing.T) {
	meta := Meta{Name: "004_x", Depends: []string{"003_y"}, Author: "dev"}
	parsed, ok := ParseMeta(meta.Header())
	require.True(t, ok)
	assert.Equal(t, meta.Name, parsed.Name)
	assert.Equal(t, meta.Depends, parsed.Depends)
	assert.Equal(t, meta.Author, parsed.Author)
}

func TestSortByDependencies(t *testing.T) {
	migrations := []Meta{
		{Name: "003_c", Depends: []string{"002_b"}},
		{Name: "001_a"},
		{Name: "002_b", Depends: []string{"001_a"}},
	}
	sorted, err := SortByDependencies(migrations)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a", "002_b", "003_c"},
		[]string{sorted[0].Name, sorted[1].Name, sorted[2].Name})
}

func TestSortMissingDependencyIsFatal(t *testing.T) {
	_, err := SortByDependencies([]Meta{
		{Name: "002_b", Depends: []string{"001_missing"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_missing")
}

func TestSortCycleIsFatal(t *testing.T) {
	_, err := SortByDependencies([]Meta{
		{Name: "a", Depends: []string{"b"}},
		{Name: "b", Depends: []string{"a"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}
