package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"focalai/internal/prd"
	"focalai/internal/tester"
)

const fitnessIdea = "A mobile app that helps people find and book local fitness classes"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	root := NewRoot()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPersonasJSON(t *testing.T) {
	out, err := run(t, "personas", "--format", "json")
	tester.NoErr(t, err)
	var rows []personaRow
	tester.NoErr(t, json.Unmarshal([]byte(out), &rows))
	tester.Len(t, rows, 5)
	tester.Eq(t, rows[0].Name, "Product Manager")
	tester.Eq(t, rows[4].Name, "Business Manager")
}

func TestRefineJSON(t *testing.T) {
	out, err := run(t, "refine", "--provider", "fake", "--rounds", "1", "--format", "json", fitnessIdea)
	tester.NoErr(t, err)
	var s Session
	tester.NoErr(t, json.Unmarshal([]byte(out), &s))
	tester.True(t, s.Success, "success")
	tester.Eq(t, s.Idea, fitnessIdea)
	tester.Len(t, s.Log, 5)
	tester.Len(t, s.History, 5)
	tester.Eq(t, s.CallsMade, 6)
	tester.True(t, s.Sections.Complete(), "sections parsed")
}

func TestRefineZeroCeilingText(t *testing.T) {
	out, err := run(t, "refine", "--provider", "fake", "--ceiling", "0", fitnessIdea)
	tester.NoErr(t, err)
	tester.Contains(t, out, "Round 1")
	tester.Contains(t, out, "(fallback)")
	tester.Contains(t, out, "1. OVERVIEW:")
}

func TestRefineExportThenFeedback(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "refine", "--provider", "fake", "--rounds", "1", "--format", "json", "--out", dir, fitnessIdea)
	tester.NoErr(t, err)
	var first Session
	tester.NoErr(t, json.Unmarshal([]byte(out), &first))

	iter0 := filepath.Join(dir, first.IdeaID, "iteration-0")
	for _, name := range []string{"document.md", "document.html", "document.yaml", "session.json"} {
		_, statErr := os.Stat(filepath.Join(iter0, name))
		tester.NoErr(t, statErr, name)
	}

	out, err = run(t, "feedback", "--provider", "fake", "--feedback-rounds", "1", "--format", "json",
		"--from", filepath.Join(iter0, "session.json"), "--out", dir, "Focus on yoga studios")
	tester.NoErr(t, err)
	var next Session
	tester.NoErr(t, json.Unmarshal([]byte(out), &next))
	tester.Eq(t, next.IdeaID, first.IdeaID)
	tester.Eq(t, next.Iteration, 1)
	tester.Eq(t, next.Feedback, "Focus on yoga studios")
	tester.Eq(t, next.Log.Rounds(), []int{2})
	tester.Len(t, next.History, 10)

	_, statErr := os.Stat(filepath.Join(dir, first.IdeaID, "iteration-1", "document.md"))
	tester.NoErr(t, statErr)

	out, err = run(t, "sections", "--format", "json", filepath.Join(dir, first.IdeaID, "iteration-1", "document.yaml"))
	tester.NoErr(t, err)
	var sections prd.Sections
	tester.NoErr(t, json.Unmarshal([]byte(out), &sections))
	tester.True(t, sections.Complete(), "yaml export round-trips")
}

func TestSectionsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	tester.NoErr(t, os.WriteFile(path, []byte("1. OVERVIEW:\nA thing.\n\n10. SUCCESS METRICS:\n- users\n"), 0o644))
	out, err := run(t, "sections", path)
	tester.NoErr(t, err)
	tester.Contains(t, out, "1. OVERVIEW:")
	tester.Contains(t, out, "(8 chars)")
}

func TestUnknownFormat(t *testing.T) {
	_, err := run(t, "personas", "--format", "xml")
	tester.True(t, err != nil, "xml is rejected")
	tester.Contains(t, err.Error(), "unknown format")
}

func TestFeedbackRequiresFrom(t *testing.T) {
	_, err := run(t, "feedback", "--provider", "fake", "more detail")
	tester.True(t, err != nil, "missing --from")
}
