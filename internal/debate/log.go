package debate

import (
	"fmt"
	"sort"
	"strings"

	"focalai/internal/fallback"
)

// Entry is one persona response within one round.
type Entry struct {
	PersonaKey  string `json:"persona_key"`
	PersonaName string `json:"agent"`
	Response    string `json:"response"`
	Round       int    `json:"round"`
	Fallback    bool   `json:"fallback"`
	Seq         int    `json:"seq"`
}

// Log is the ordered record of a debate. Canonical order is (Round, Seq).
type Log []Entry

// Sort restores canonical order in place.
func (l Log) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		if l[i].Round != l[j].Round {
			return l[i].Round < l[j].Round
		}
		return l[i].Seq < l[j].Seq
	})
}

// MaxRound returns the highest round number present, or 0.
func (l Log) MaxRound() int {
	max := 0
	for _, e := range l {
		if e.Round > max {
			max = e.Round
		}
	}
	return max
}

// MaxSeq returns the highest sequence index present, or -1 for an empty log.
func (l Log) MaxSeq() int {
	max := -1
	for _, e := range l {
		if e.Seq > max {
			max = e.Seq
		}
	}
	return max
}

// Rounds returns the distinct round numbers in ascending order.
func (l Log) Rounds() []int {
	seen := map[int]bool{}
	out := make([]int, 0, 4)
	for _, e := range l {
		if !seen[e.Round] {
			seen[e.Round] = true
			out = append(out, e.Round)
		}
	}
	sort.Ints(out)
	return out
}

// ByRound returns the entries of round r in log order.
func (l Log) ByRound(r int) Log {
	out := make(Log, 0, 5)
	for _, e := range l {
		if e.Round == r {
			out = append(out, e)
		}
	}
	return out
}

// UsedFallback reports whether any entry is a fallback response.
func (l Log) UsedFallback() bool {
	for _, e := range l {
		if e.Fallback {
			return true
		}
	}
	return false
}

// Context flattens the log as "Name: response" blocks separated by blank
// lines. This is what a persona sees of earlier turns.
func (l Log) Context() string {
	parts := make([]string, 0, len(l))
	for _, e := range l {
		parts = append(parts, e.PersonaName+": "+e.Response)
	}
	return strings.Join(parts, "\n\n")
}

// Transcript flattens the log with round labels for aggregation.
func (l Log) Transcript() string {
	parts := make([]string, 0, len(l))
	for _, e := range l {
		parts = append(parts, fmt.Sprintf("%s (Round %d): %s", e.PersonaName, e.Round, e.Response))
	}
	return strings.Join(parts, "\n\n")
}

// Clone returns a copy that shares no backing array with l.
func (l Log) Clone() Log {
	if l == nil {
		return nil
	}
	out := make(Log, len(l))
	copy(out, l)
	return out
}

// Statements converts the log into speaker/text pairs for the fallback
// aggregator.
func (l Log) Statements() []fallback.Statement {
	out := make([]fallback.Statement, 0, len(l))
	for _, e := range l {
		out = append(out, fallback.Statement{Speaker: e.PersonaName, Text: e.Response})
	}
	return out
}
