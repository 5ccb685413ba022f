package subagent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupCache_ExactMatch(t *testing.T) {
	c := NewDedupCache(time.Minute)
	p := c.Start("refactor the auth module")
	c.RecordChange(p, "renamed AuthService to Authenticator")
	c.Finish(p)

	dup, found := c.Check("refactor the auth module")
	require.True(t, found)
	assert.Equal(t, "refactor the auth module", dup.Task)
	assert.Contains(t, dup.Changes, "renamed AuthService to Authenticator")
}

func TestDedupCache_SimilarTextMatchesViaJaccard(t *testing.T) {
	c := NewDedupCache(time.Minute)
	p := c.Start("refactor the authentication module to use JWT tokens")
	c.Finish(p)

	_, found := c.Check("refactor the authentication module to use JWT")
	assert.True(t, found, "near-identical phrasing should be caught by similarity, not just exact match")
}

func TestDedupCache_UnrelatedTaskNotDeduped(t *testing.T) {
	c := NewDedupCache(time.Minute)
	p := c.Start("refactor the authentication module")
	c.Finish(p)

	_, found := c.Check("write release notes for version 2.0")
	assert.False(t, found)
}

func TestDedupCache_ExpiredEntryNotMatched(t *testing.T) {
	c := NewDedupCache(10 * time.Millisecond)
	p := c.Start("refactor the auth module")
	c.Finish(p)

	time.Sleep(20 * time.Millisecond)

	_, found := c.Check("refactor the auth module")
	assert.False(t, found, "entries past the dedup window must not match")
}

func TestDuplicateSpawnHeader_ListsQueuedChanges(t *testing.T) {
	header := DuplicateSpawnHeader(&Duplicate{Task: "add tests", Changes: []string{"added foo_test.go"}})
	assert.Contains(t, header, "DUPLICATE SPAWN PREVENTED")
	assert.Contains(t, header, "add tests")
	assert.Contains(t, header, "added foo_test.go")
}
