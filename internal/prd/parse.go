package prd

import (
	"bufio"
	"strings"
)

// Heading is one row of the heading table: a line containing any of
// Patterns (case-insensitively) switches the scanner to Key.
type Heading struct {
	Patterns []string
	Key      SectionKey
}

// Headings is checked top to bottom; the first matching row wins.
var Headings = []Heading{
	{[]string{"1. OVERVIEW"}, Overview},
	{[]string{"2. PROBLEM STATEMENT"}, ProblemStatement},
	{[]string{"3. DEBATE SUMMARY"}, DebateSummary},
	{[]string{"4. OBJECTIVES"}, Objectives},
	{[]string{"5. SCOPE"}, Scope},
	{[]string{"6. REQUIREMENTS"}, Requirements},
	{[]string{"7. USER STORIES"}, UserStories},
	{[]string{"8. TRADE-OFFS", "8. TRADE OFFS"}, TradeOffs},
	{[]string{"9. NEXT STEPS"}, NextSteps},
	{[]string{"10. SUCCESS METRICS"}, SuccessMetrics},
}

// MatchHeading reports which section, if any, line introduces. A pattern
// matches anywhere in the line, case-insensitively, so body lines such as
// "Step 1. Overview" or "11. Overview of pricing" also count as headings.
func MatchHeading(line string) (SectionKey, bool) {
	upper := strings.ToUpper(line)
	for _, h := range Headings {
		for _, p := range h.Patterns {
			if strings.Contains(upper, p) {
				return h.Key, true
			}
		}
	}
	return "", false
}

// ParseSections scans text line by line. Heading lines switch the current
// section and are dropped; other non-blank lines are appended with a
// trailing newline to the current section. Text before the first heading is
// dropped. The result always holds all ten keys.
func ParseSections(text string) Sections {
	out := NewSections()
	var current SectionKey
	var active bool

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if key, ok := MatchHeading(line); ok {
			current, active = key, true
			continue
		}
		if active {
			out[current] += line + "\n"
		}
	}
	return out
}
