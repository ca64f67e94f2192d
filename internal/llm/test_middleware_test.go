package llm

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"focalai/internal/tester"
)

type slowClient struct{ d time.Duration }

func (s *slowClient) Name() string { return "slow" }
func (s *slowClient) Close() error { return nil }
func (s *slowClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	select {
	case <-time.After(s.d):
		return "late", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type recordingHook struct {
	before []string
	after  []string
}

func (r *recordingHook) Before(_ context.Context, phase, system, prompt string) {
	r.before = append(r.before, phase+":"+prompt)
}
func (r *recordingHook) After(_ context.Context, phase, text string, err error) {
	r.after = append(r.after, phase+":"+text)
}

type tagging struct {
	next Client
	tag  string
	log  *[]string
}

func (t *tagging) Name() string { return t.next.Name() }
func (t *tagging) Close() error { return t.next.Close() }
func (t *tagging) Complete(ctx context.Context, system, prompt string) (string, error) {
	*t.log = append(*t.log, t.tag)
	return t.next.Complete(ctx, system, prompt)
}

func TestWrapOrder(t *testing.T) {
	var order []string
	mw := func(tag string) Middleware {
		return func(next Client) Client { return &tagging{next: next, tag: tag, log: &order} }
	}
	cli := Wrap(&fastClient{}, mw("A"), nil, mw("B"))
	_, err := cli.Complete(context.Background(), "s", "p")
	tester.NoErr(t, err)
	tester.Eq(t, order, []string{"A", "B"}, "left-to-right, nil skipped")
}

func TestWithTimeout(t *testing.T) {
	cli := WithTimeout(20 * time.Millisecond)(&slowClient{d: time.Second})
	_, err := cli.Complete(context.Background(), "s", "p")
	tester.True(t, err != nil, "expected timeout")
	tester.ErrIs(t, err, context.DeadlineExceeded)
	tester.False(t, IsQuotaExceeded(err), "timeouts are not quota failures")

	passthrough := WithTimeout(0)(&fastClient{})
	_, ok := passthrough.(*fastClient)
	tester.True(t, ok, "zero timeout leaves client unwrapped")
}

func TestWithHooksAndPhase(t *testing.T) {
	hook := &recordingHook{}
	ctx := ContextWithHook(WithPhase(context.Background(), "design_lead"), hook)
	cli := Wrap(&fastClient{}, WithHooks())
	text, err := cli.Complete(ctx, "sys", "prompt")
	tester.NoErr(t, err)
	tester.Eq(t, text, "ok")
	tester.Eq(t, hook.before, []string{"design_lead:prompt"})
	tester.Eq(t, hook.after, []string{"design_lead:ok"})
	tester.Eq(t, PhaseFrom(context.Background()), "unknown")
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	fake := NewFakeClient().FailOn(2, errors.New("boom"))
	cli := Wrap(fake, WithLogging(logger))
	ctx := WithPhase(context.Background(), "aggregate")

	_, err := cli.Complete(ctx, "s", "p")
	tester.NoErr(t, err)
	_, err = cli.Complete(ctx, "s", "p")
	tester.True(t, err != nil, "second call scripted to fail")

	out := buf.String()
	tester.Contains(t, out, "LLM request (aggregate via FakeLLM)")
	tester.Contains(t, out, "LLM error (aggregate): boom")
	tester.Eq(t, strings.Count(out, "LLM response"), 1)
}

func TestFakeClientScripting(t *testing.T) {
	fake := NewFakeClient().FailFor("Design Lead", ErrQuotaExceeded)
	_, err := fake.Complete(context.Background(), "You are a Design Lead focused on UX.", "p")
	tester.ErrIs(t, err, ErrQuotaExceeded)

	text, err := fake.Complete(context.Background(), "You are a Product Manager.", "p")
	tester.NoErr(t, err)
	tester.Contains(t, text, "Product Manager")

	doc, err := fake.Complete(context.Background(), "", "write the Product Requirements Document")
	tester.NoErr(t, err)
	tester.Contains(t, doc, "10. SUCCESS METRICS:")
	tester.Eq(t, fake.CallCount(), 3)
	tester.Eq(t, fake.Calls()[1].System, "You are a Product Manager.")
}

func TestNewProvider(t *testing.T) {
	cli, err := New(context.Background(), Config{Provider: "fake", Logger: log.New(&bytes.Buffer{}, "", 0)})
	tester.NoErr(t, err)
	tester.Eq(t, cli.Name(), "FakeLLM")

	_, err = New(context.Background(), Config{Provider: "nope"})
	tester.True(t, err != nil, "unknown provider")

	_, err = New(context.Background(), Config{Provider: "openai"})
	tester.True(t, err != nil, "openai requires a key")
}
