// Package subagent implements the spawner that creates, runs, and bubbles
// results from child agents: spawn deduplication, budget-pool allocation,
// graceful-timeout lifecycle, and structured closure reports.
package subagent

import (
	"strings"
	"sync"
	"time"
)

// DefaultDedupWindow is how long a completed spawn remains eligible to
// dedupe an incoming request against (spec.md §4.2).
const DefaultDedupWindow = 60 * time.Second

// DefaultJaccardThreshold is the similarity at or above which two spawn
// requests are treated as duplicates even without an exact text match.
const DefaultJaccardThreshold = 0.75

// pendingSpawn is one outstanding or recently-completed spawn tracked for
// dedup purposes.
type pendingSpawn struct {
	task      string
	tokens    map[string]struct{}
	changes   []string // queued/applied change descriptions, for the prevented-duplicate header
	expiresAt time.Time
}

// DedupCache tracks recent spawn requests so a second, near-identical
// request against the same task is rejected rather than re-run.
type DedupCache struct {
	mu      sync.Mutex
	window  time.Duration
	entries []*pendingSpawn
}

// NewDedupCache constructs a cache with the given window (0 selects
// DefaultDedupWindow).
func NewDedupCache(window time.Duration) *DedupCache {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &DedupCache{window: window}
}

func tokenize(task string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(task))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Duplicate is a near-identical spawn request found in the window, along
// with the changes already queued or applied under it.
type Duplicate struct {
	Task    string
	Changes []string
}

// Check reports whether task duplicates a recent or outstanding spawn
// (exact match or Jaccard similarity at or above the threshold), reaping
// expired entries first.
func (c *DedupCache) Check(task string) (*Duplicate, bool) {
	now := time.Now()
	tokens := tokenize(task)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reapLocked(now)

	for _, p := range c.entries {
		if p.task == task || jaccard(tokens, p.tokens) >= DefaultJaccardThreshold {
			return &Duplicate{Task: p.task, Changes: append([]string{}, p.changes...)}, true
		}
	}
	return nil, false
}

// Start registers task as outstanding, returning a handle used to record
// changes as they are queued and to mark completion.
func (c *DedupCache) Start(task string) *pendingSpawn {
	p := &pendingSpawn{task: task, tokens: tokenize(task), expiresAt: time.Now().Add(c.window)}
	c.mu.Lock()
	c.entries = append(c.entries, p)
	c.mu.Unlock()
	return p
}

// RecordChange appends a queued/applied change description to a pending
// spawn's dedup record, visible to later duplicate-detection headers.
func (c *DedupCache) RecordChange(p *pendingSpawn, change string) {
	c.mu.Lock()
	p.changes = append(p.changes, change)
	c.mu.Unlock()
}

// Finish marks task as complete; it stays in the cache until the window
// expires so a late duplicate request still gets deduped.
func (c *DedupCache) Finish(p *pendingSpawn) {
	c.mu.Lock()
	p.expiresAt = time.Now().Add(c.window)
	c.mu.Unlock()
}

func (c *DedupCache) reapLocked(now time.Time) {
	live := c.entries[:0:0]
	for _, p := range c.entries {
		if now.Before(p.expiresAt) {
			live = append(live, p)
		}
	}
	c.entries = live
}

// DuplicateSpawnHeader formats the "prevented duplicate" notice a spawn
// tool returns to the model in place of running a near-identical request
// again (spec.md §4.2).
func DuplicateSpawnHeader(dup *Duplicate) string {
	var b strings.Builder
	b.WriteString("DUPLICATE SPAWN PREVENTED\n")
	b.WriteString("An equivalent task is already in progress or recently completed: ")
	b.WriteString(dup.Task)
	b.WriteString("\n")
	if len(dup.Changes) > 0 {
		b.WriteString("Changes already queued or applied under it:\n")
		for _, c := range dup.Changes {
			b.WriteString("  - ")
			b.WriteString(c)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
