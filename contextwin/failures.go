package contextwin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// FailureRecord is one entry in the failure tracker (spec.md §3).
type FailureRecord struct {
	Action       string
	ArgsHash     string
	ErrorCategory string
	Timestamp    time.Time
}

// DefaultFailureWindow bounds how many failures the tracker retains.
const DefaultFailureWindow = 50

// FailureTracker is an append-only, bounded log of recent tool failures,
// consulted before retries and surfaced to the model as avoidance guidance
// (spec.md §3, §4.1 step 8).
type FailureTracker struct {
	mu      sync.Mutex
	window  int
	records []FailureRecord
}

// NewFailureTracker constructs a tracker bounded to window entries (0
// selects DefaultFailureWindow).
func NewFailureTracker(window int) *FailureTracker {
	if window <= 0 {
		window = DefaultFailureWindow
	}
	return &FailureTracker{window: window}
}

// Record appends a failure, evicting the oldest entry if the window is full.
func (ft *FailureTracker) Record(action string, args map[string]any, category string) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]any, len(args))
	for _, k := range keys {
		ordered[k] = args[k]
	}
	b, _ := json.Marshal(ordered)
	sum := sha256.Sum256(b)

	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.records = append(ft.records, FailureRecord{
		Action:        action,
		ArgsHash:      hex.EncodeToString(sum[:8]),
		ErrorCategory: category,
		Timestamp:     time.Now(),
	})
	if len(ft.records) > ft.window {
		ft.records = ft.records[len(ft.records)-ft.window:]
	}
}

// Recent returns the n most recent failures, most recent last (n<=0
// returns the whole window).
func (ft *FailureTracker) Recent(n int) []FailureRecord {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if n <= 0 || n > len(ft.records) {
		n = len(ft.records)
	}
	out := make([]FailureRecord, n)
	copy(out, ft.records[len(ft.records)-n:])
	return out
}

// Summary renders the tracker's recent entries as the compact guidance
// block inserted before the last user message (spec.md §4.1 step 8).
func (ft *FailureTracker) Summary(n int) string {
	recent := ft.Recent(n)
	if len(recent) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[Recent failures — avoid repeating these]\n")
	for _, r := range recent {
		fmt.Fprintf(&b, "  - %s (%s): %s\n", r.Action, r.ArgsHash, r.ErrorCategory)
	}
	return strings.TrimRight(b.String(), "\n")
}
