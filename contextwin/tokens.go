package contextwin

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter provides accurate per-model token accounting, backed by
// tiktoken-go with a cl100k_base fallback for models tiktoken does not
// recognise by name.
type TokenCounter struct {
	mu       sync.RWMutex
	encoding *tiktoken.Tiktoken
	model    string
}

var (
	encodingCache   = make(map[string]*tiktoken.Tiktoken)
	encodingCacheMu sync.RWMutex
)

// NewTokenCounter constructs a counter for model, reusing a cached
// tiktoken encoding when one has already been loaded for that model.
func NewTokenCounter(model string) (*TokenCounter, error) {
	encodingCacheMu.RLock()
	cached, ok := encodingCache[model]
	encodingCacheMu.RUnlock()
	if ok {
		return &TokenCounter{encoding: cached, model: model}, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load token encoding: %w", err)
		}
	}

	encodingCacheMu.Lock()
	encodingCache[model] = enc
	encodingCacheMu.Unlock()

	return &TokenCounter{encoding: enc, model: model}, nil
}

// Count returns the token count of a single string.
func (tc *TokenCounter) Count(text string) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.encoding.Encode(text, nil, nil))
}

// CountMessages counts tokens across a message list, including the
// per-message role/framing overhead OpenAI's guidance accounts for.
func (tc *TokenCounter) CountMessages(messages []Message) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	const tokensPerMessage = 3
	total := 0
	for _, m := range messages {
		total += tokensPerMessage
		total += len(tc.encoding.Encode(string(m.Role), nil, nil))
		total += len(tc.encoding.Encode(m.Text(), nil, nil))
	}
	total += 3 // reply priming
	return total
}

// Model returns the model this counter was constructed for.
func (tc *TokenCounter) Model() string { return tc.model }
