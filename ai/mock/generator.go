package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var promptPattern = regexp.MustCompile(`Generate (\d+) synthetic product reviews about (.+?) in strict JSON`)

var mockSentiments = []string{"Positive", "Neutral", "Negative"}

// MockGenerator is a test double for ai.Generator.
//
// By default it reads the requested count and topic back out of the prompt
// and answers with a well-formed JSON array of that many reviews.
type MockGenerator struct {
	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	mu         sync.Mutex
	callCount  int
	lastPrompt string
}

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// NewStaticGenerator returns a mock generator that always answers with out.
func NewStaticGenerator(out string) *MockGenerator {
	return &MockGenerator{
		CompleteFunc: func(context.Context, string) (string, error) {
			return out, nil
		},
	}
}

// Complete returns synthetic review JSON for the prompt.
func (m *MockGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastPrompt = prompt
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}

	match := promptPattern.FindStringSubmatch(prompt)
	if match == nil {
		return "[]", nil
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return "", err
	}
	return Reviews(match[2], n), nil
}

// Reviews renders n deterministic reviews about topic as a JSON array using
// the key names the generation prompt asks for.
func Reviews(topic string, n int) string {
	items := make([]map[string]string, n)
	for i := range n {
		sentiment := mockSentiments[i%len(mockSentiments)]
		items[i] = map[string]string{
			"Product Name": fmt.Sprintf("%s Model %d", topic, i+1),
			"Review":       fmt.Sprintf("Review %d of this %s: overall %s experience.", i+1, strings.ToLower(topic), strings.ToLower(sentiment)),
			"Sentiment":    sentiment,
		}
	}
	out, _ := json.Marshal(items)
	return string(out)
}

// CallCount returns the number of times Complete was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the most recent prompt passed to Complete.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// Reset clears the call count and custom functions.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastPrompt = ""
	m.CompleteFunc = nil
}
