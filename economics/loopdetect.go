package economics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Fingerprint canonicalises a tool call into a comparable string: the tool
// name plus a stable hash of its arguments. Two calls with the same name and
// semantically identical arguments (key order does not matter) fingerprint
// identically.
func Fingerprint(toolName string, args map[string]any) string {
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
	return fmt.Sprintf("%s:%s", toolName, hex.EncodeToString(sum[:8]))
}

// Phase labels the agent's behavioural mode for exploration-saturation
// detection: an agent reading many files without writing is "exploring";
// once it starts modifying files it is "acting".
type Phase string

const (
	PhaseExploring Phase = "exploring"
	PhaseActing    Phase = "acting"
)

// DefaultDoomLoopWindow and DefaultDoomLoopThreshold implement spec.md's
// "same fingerprint appeared >= K of the last W calls" rule (K=3, W=6).
const (
	DefaultDoomLoopWindow    = 6
	DefaultDoomLoopThreshold = 3

	// DefaultExplorationFileThreshold is the number of unique file reads
	// (with zero writes) after which the engine pushes the agent toward
	// the acting phase.
	DefaultExplorationFileThreshold = 8

	// DefaultStuckIterations is the number of iterations without a
	// progress signal before a stuck-detection nudge fires.
	DefaultStuckIterations = 4
)

// loopState is the rolling window bookkeeping consulted on every tool
// dispatch. Every dispatch enters the doom-loop window; a read with a file
// path also enters the file-read set.
type loopState struct {
	window           []string        // last W tool fingerprints, oldest first
	windowSize       int
	doomThreshold    int
	uniqueFileReads  map[string]struct{}
	fileWritten      bool
	phase            Phase
	idleIterations   int
	explorationLimit int
	stuckLimit       int
}

func newLoopState() *loopState {
	return &loopState{
		windowSize:       DefaultDoomLoopWindow,
		doomThreshold:    DefaultDoomLoopThreshold,
		uniqueFileReads:  make(map[string]struct{}),
		phase:            PhaseExploring,
		explorationLimit: DefaultExplorationFileThreshold,
		stuckLimit:       DefaultStuckIterations,
	}
}

// recordToolCall feeds one dispatch into every relevant window and reports
// whether a doom loop or exploration-saturation condition now holds.
func (s *loopState) recordToolCall(toolName string, args map[string]any, isRead, isWrite bool, filePath string) (doomLoop bool, repeated string, saturated bool) {
	fp := Fingerprint(toolName, args)

	s.window = append(s.window, fp)
	if len(s.window) > s.windowSize {
		s.window = s.window[len(s.window)-s.windowSize:]
	}
	s.idleIterations = 0

	count := 0
	for _, w := range s.window {
		if w == fp {
			count++
		}
	}
	if count >= s.doomThreshold {
		doomLoop = true
		repeated = fmt.Sprintf("%s(%v)", toolName, args)
	}

	if isRead && filePath != "" {
		s.uniqueFileReads[filePath] = struct{}{}
	}
	if isWrite {
		s.fileWritten = true
		s.phase = PhaseActing
	}
	if !s.fileWritten && len(s.uniqueFileReads) >= s.explorationLimit {
		saturated = true
		s.phase = PhaseActing
	}

	return doomLoop, repeated, saturated
}

// recordProgress resets the idle counter; called on every tool call and
// every LLM response (spec.md: "progress signals include every tool call and
// LLM response").
func (s *loopState) recordProgress() {
	s.idleIterations = 0
}

// tickIdle advances the idle counter by one iteration and reports whether
// the agent is now considered stuck.
func (s *loopState) tickIdle() (stuck bool) {
	s.idleIterations++
	return s.idleIterations >= s.stuckLimit
}
