package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeCall records one request received by FakeClient.
type FakeCall struct {
	System string
	Prompt string
}

// FakeClient returns deterministic text for offline runs and tests. Failures
// can be scripted by call number or by a substring of the system prompt.
type FakeClient struct {
	mu       sync.Mutex
	calls    []FakeCall
	byCall   map[int]error
	bySystem map[string]error
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		byCall:   map[int]error{},
		bySystem: map[string]error{},
	}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// FailOn makes the n-th call (1-based) return err.
func (f *FakeClient) FailOn(n int, err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byCall[n] = err
	return f
}

// FailFor makes every call whose system instruction contains substr return err.
func (f *FakeClient) FailFor(substr string, err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bySystem[substr] = err
	return f
}

// Calls returns a copy of the received requests in arrival order.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *FakeClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{System: system, Prompt: prompt})
	n := len(f.calls)
	err := f.byCall[n]
	if err == nil {
		for substr, e := range f.bySystem {
			if strings.Contains(system, substr) {
				err = e
				break
			}
		}
	}
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	if strings.Contains(prompt, "Product Requirements Document") {
		return fakeDocument, nil
	}
	return fmt.Sprintf("Fake perspective #%d. %s", n, firstLine(system)), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".\n"); i >= 0 {
		return s[:i+1]
	}
	return s
}

const fakeDocument = `1. OVERVIEW:
Fake overview of the product.

2. PROBLEM STATEMENT:
Fake problem statement.

3. DEBATE SUMMARY (AGENT PERSPECTIVES):
Fake debate summary.

4. OBJECTIVES:
- Fake objective

5. SCOPE:
In-Scope: fake core. Out-of-Scope: fake extras.

6. REQUIREMENTS:
- System must behave like a fake.

7. USER STORIES:
- As a tester, I want fake output, so that runs are offline.

8. TRADE-OFFS & DECISIONS:
- Fake speed over fake depth.

9. NEXT STEPS:
- Replace the fake model.

10. SUCCESS METRICS:
- Fake metric at 100%.
`
