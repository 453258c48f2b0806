package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestList_ZeroValue(t *testing.T) {
	var l List
	assert.True(t, l.Empty())
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, "", l.Summary())
}

func TestList_AddAndSummary(t *testing.T) {
	var l List
	l.Add(KindDiscovery, "routines/missing.sql", "file does not exist")
	l.Add(KindConflict, "routines/a.sql", "wrapper name %q is not unique", "GetA")
	l.Add(KindLoad, "routines/b.sql", "invalid definition")

	assert.False(t, l.Empty())
	assert.Equal(t, 3, l.Len())

	summary := l.Summary()
	assert.Contains(t, summary, "3 error(s) occurred")
	assert.Contains(t, summary, "[discovery] routines/missing.sql: file does not exist")
	assert.Contains(t, summary, `[conflict] routines/a.sql: wrapper name "GetA" is not unique`)
	assert.Contains(t, summary, "[load] routines/b.sql: invalid definition")
}

func TestList_PathsDeduplicated(t *testing.T) {
	var l List
	l.Add(KindConflict, "a.sql", "conflict")
	l.Add(KindConflict, "b.sql", "conflict")
	l.Add(KindLoad, "a.sql", "load failed")

	assert.Equal(t, []string{"a.sql", "b.sql"}, l.Paths())
}
