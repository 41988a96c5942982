package util

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformSlice(t *testing.T) {
	got := TransformSlice([]int{1, 2, 3}, strconv.Itoa)
	assert.Equal(t, []string{"1", "2", "3"}, got)
	assert.Empty(t, TransformSlice(nil, strconv.Itoa))
}

func TestCanonicalMapIter(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	var keys []string
	for k, v := range CanonicalMapIter(m) {
		keys = append(keys, k)
		assert.Equal(t, m[k], v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestBuildPostgresConstraintName(t *testing.T) {
	assert.Equal(t, "users_email_idx", BuildPostgresConstraintName("users", "email", "idx"))

	long := BuildPostgresConstraintName(
		"a_very_long_table_name_that_keeps_going_and_going_here",
		"a_similarly_long_column",
		"idx")
	assert.LessOrEqual(t, len(long), 63)
}
