// Package substrate implements the shared coordination surface that
// parallel agents read and write through: a findings blackboard with a
// file-claim table, a content-addressed file cache, and a budget pool.
// All three are safe for concurrent use by many agents at once.
package substrate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// FindingType classifies a blackboard entry.
type FindingType string

const (
	FindingDiscovery FindingType = "discovery"
	FindingAnalysis  FindingType = "analysis"
	FindingProgress  FindingType = "progress"
	FindingClaim     FindingType = "claim"
)

// Finding is one blackboard entry.
type Finding struct {
	ID         string
	AgentID    string
	Topic      string
	Type       FindingType
	Content    string
	Confidence float64
	Timestamp  time.Time
	Metadata   map[string]any
}

func dedupeKey(topic, agentID, content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s|%s|%s", topic, agentID, hex.EncodeToString(sum[:8]))
}

// ClaimMode is the access mode of a file claim.
type ClaimMode string

const (
	ClaimRead  ClaimMode = "read"
	ClaimWrite ClaimMode = "write"
)

// Claim grants an agent access to a file path for a bounded time.
type Claim struct {
	Path      string
	AgentID   string
	Mode      ClaimMode
	ExpiresAt time.Time
	Intent    string
}

func (c Claim) expired(now time.Time) bool { return now.After(c.ExpiresAt) }

// DefaultClaimTTL is the default lifetime of a write claim (spec.md §4.4).
const DefaultClaimTTL = 2 * time.Minute

// DefaultFindingsCap bounds the findings set via LRU-style eviction of the
// oldest entry once the cap is reached.
const DefaultFindingsCap = 2000

// QueryOptions filters a blackboard query.
type QueryOptions struct {
	Types        []FindingType
	Topics       []string
	MinConfidence float64
	Limit        int
}

// Blackboard is the concurrent findings store plus claim table described in
// spec.md §4.6. Zero value is not usable; construct with NewBlackboard.
type Blackboard struct {
	mu sync.Mutex

	findingsCap int
	findings    []*Finding         // insertion order, oldest first
	seen        map[string]struct{} // dedupe key -> present

	// claims maps path -> list of currently-held claims on that path. A
	// write claim excludes every other claim; multiple read claims may
	// coexist.
	claims map[string][]*Claim
}

// NewBlackboard constructs an empty blackboard with the given findings cap
// (0 selects DefaultFindingsCap).
func NewBlackboard(findingsCap int) *Blackboard {
	if findingsCap <= 0 {
		findingsCap = DefaultFindingsCap
	}
	return &Blackboard{
		findingsCap: findingsCap,
		seen:        make(map[string]struct{}),
		claims:      make(map[string][]*Claim),
	}
}

// Post adds a finding, deduplicating by (topic, agent, content-hash). A
// duplicate post is a silent no-op, matching spec.md's dedup invariant.
func (b *Blackboard) Post(f Finding) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := dedupeKey(f.Topic, f.AgentID, f.Content)
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	b.findings = append(b.findings, &f)

	if len(b.findings) > b.findingsCap {
		evicted := b.findings[0]
		b.findings = b.findings[1:]
		delete(b.seen, dedupeKey(evicted.Topic, evicted.AgentID, evicted.Content))
	}
}

// Query returns findings matching the filter, most recent last.
func (b *Blackboard) Query(opts QueryOptions) []*Finding {
	b.mu.Lock()
	defer b.mu.Unlock()

	typeSet := make(map[FindingType]struct{}, len(opts.Types))
	for _, t := range opts.Types {
		typeSet[t] = struct{}{}
	}
	topicSet := make(map[string]struct{}, len(opts.Topics))
	for _, t := range opts.Topics {
		topicSet[t] = struct{}{}
	}

	var out []*Finding
	for _, f := range b.findings {
		if len(typeSet) > 0 {
			if _, ok := typeSet[f.Type]; !ok {
				continue
			}
		}
		if len(topicSet) > 0 {
			if _, ok := topicSet[f.Topic]; !ok {
				continue
			}
		}
		if f.Confidence < opts.MinConfidence {
			continue
		}
		out = append(out, f)
	}

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[len(out)-opts.Limit:]
	}
	return out
}

// ClaimConflictError is returned when a claim request cannot be granted
// because another agent already holds an incompatible claim.
type ClaimConflictError struct {
	Path   string
	Holder string
}

func (e *ClaimConflictError) Error() string {
	return fmt.Sprintf("claim on %q already held by %q", e.Path, e.Holder)
}

// Claim attempts to grant agent a claim on path in the given mode, expiring
// after ttl (0 selects DefaultClaimTTL for write claims). Expired claims on
// the path are reaped first.
func (b *Blackboard) Claim(path, agentID string, mode ClaimMode, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	existing := b.reapLocked(path, now)

	for _, c := range existing {
		if c.AgentID == agentID {
			continue
		}
		if c.Mode == ClaimWrite || mode == ClaimWrite {
			return &ClaimConflictError{Path: path, Holder: c.AgentID}
		}
	}

	b.claims[path] = append(existing, &Claim{
		Path:      path,
		AgentID:   agentID,
		Mode:      mode,
		ExpiresAt: now.Add(ttl),
	})
	return nil
}

// reapLocked drops expired claims on path and returns the survivors. Caller
// must hold b.mu.
func (b *Blackboard) reapLocked(path string, now time.Time) []*Claim {
	existing := b.claims[path]
	live := existing[:0:0]
	for _, c := range existing {
		if !c.expired(now) {
			live = append(live, c)
		}
	}
	return live
}

// Release drops agent's claim on path, if any.
func (b *Blackboard) Release(path, agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing := b.claims[path]
	live := existing[:0:0]
	for _, c := range existing {
		if c.AgentID != agentID {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		delete(b.claims, path)
	} else {
		b.claims[path] = live
	}
}

// ReleaseAll drops every claim held by agent, across all paths. Called on
// agent cleanup (spec.md §3 Lifecycle).
func (b *Blackboard) ReleaseAll(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for path, existing := range b.claims {
		live := existing[:0:0]
		for _, c := range existing {
			if c.AgentID != agentID {
				live = append(live, c)
			}
		}
		if len(live) == 0 {
			delete(b.claims, path)
		} else {
			b.claims[path] = live
		}
	}
}

// UnsubscribeAgent is the cleanup hook for any future subscription model
// (spec.md §4.6's operation list names it explicitly even though this
// blackboard has no push-subscription yet); it currently just releases the
// agent's claims.
func (b *Blackboard) UnsubscribeAgent(agentID string) {
	b.ReleaseAll(agentID)
}

// HolderOf returns the agent ID currently holding a live claim on path, and
// whether one exists. Used to build the "held by X" error message for
// callers that need it outside of a failed Claim call.
func (b *Blackboard) HolderOf(path string) (agentID string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	live := b.reapLocked(path, time.Now())
	b.claims[path] = live
	if len(live) == 0 {
		return "", false
	}
	return live[0].AgentID, true
}
