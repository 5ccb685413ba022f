package contextwin

import "testing"

func TestNewTokenCounter(t *testing.T) {
	tests := []struct {
		name  string
		model string
	}{
		{name: "gpt-4o model", model: "gpt-4o"},
		{name: "gpt-4 model", model: "gpt-4"},
		{name: "unknown model falls back to cl100k_base", model: "claude-3-5-sonnet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter, err := NewTokenCounter(tt.model)
			if err != nil {
				t.Fatalf("NewTokenCounter() error = %v", err)
			}
			if counter.Model() != tt.model {
				t.Errorf("Model() = %v, want %v", counter.Model(), tt.model)
			}
		})
	}
}

func TestTokenCounter_CountIncreasesWithLength(t *testing.T) {
	counter, err := NewTokenCounter("gpt-4o")
	if err != nil {
		t.Fatalf("Failed to create token counter: %v", err)
	}

	short := counter.Count("hello")
	long := counter.Count("hello, this is a much longer sentence with many more tokens in it")

	if long <= short {
		t.Errorf("expected longer text to have more tokens: short=%d long=%d", short, long)
	}
}

func TestTokenCounter_CountMessagesIncludesFraming(t *testing.T) {
	counter, err := NewTokenCounter("gpt-4o")
	if err != nil {
		t.Fatalf("Failed to create token counter: %v", err)
	}

	msgs := []Message{NewText(RoleUser, "hi")}
	total := counter.CountMessages(msgs)
	bare := counter.Count("hi") + counter.Count(string(RoleUser))

	if total <= bare {
		t.Errorf("expected message framing overhead: total=%d bare=%d", total, bare)
	}
}
