package debate

import (
	"testing"

	"focalai/internal/tester"
)

func TestLogSortByRoundThenSeq(t *testing.T) {
	l := Log{
		{PersonaName: "c", Round: 2, Seq: 5},
		{PersonaName: "a", Round: 1, Seq: 1},
		{PersonaName: "b", Round: 1, Seq: 0},
	}
	l.Sort()
	tester.Eq(t, l[0].PersonaName, "b")
	tester.Eq(t, l[1].PersonaName, "a")
	tester.Eq(t, l[2].PersonaName, "c")
}

func TestLogHelpers(t *testing.T) {
	l := Log{
		{PersonaName: "PM", Response: "one", Round: 1, Seq: 0},
		{PersonaName: "DL", Response: "two", Round: 1, Seq: 1, Fallback: true},
		{PersonaName: "PM", Response: "three", Round: 2, Seq: 2},
	}
	tester.Eq(t, l.MaxRound(), 2)
	tester.Eq(t, l.MaxSeq(), 2)
	tester.Eq(t, l.Rounds(), []int{1, 2})
	tester.Len(t, l.ByRound(1), 2)
	tester.True(t, l.UsedFallback(), "fallback present")
	tester.Eq(t, l.ByRound(1).Context(), "PM: one\n\nDL: two")
	tester.Eq(t, l.Transcript(), "PM (Round 1): one\n\nDL (Round 1): two\n\nPM (Round 2): three")
	tester.Len(t, l.Statements(), 3)
	tester.Eq(t, Log(nil).MaxSeq(), -1)
	tester.Eq(t, Log(nil).Context(), "")
}

func TestLogCloneIsIndependent(t *testing.T) {
	l := Log{{Response: "a"}}
	c := l.Clone()
	c[0].Response = "b"
	tester.Eq(t, l[0].Response, "a")
	tester.True(t, Log(nil).Clone() == nil, "nil stays nil")
}
