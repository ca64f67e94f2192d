// Package prd turns a debate log into a ten-section product requirements
// document and parses generated documents back into a fixed section map.
package prd

import (
	"strconv"
	"strings"
)

// SectionKey names one of the ten canonical document sections.
type SectionKey string

const (
	Overview         SectionKey = "overview"
	ProblemStatement SectionKey = "problem_statement"
	DebateSummary    SectionKey = "debate_summary"
	Objectives       SectionKey = "objectives"
	Scope            SectionKey = "scope"
	Requirements     SectionKey = "requirements"
	UserStories      SectionKey = "user_stories"
	TradeOffs        SectionKey = "trade_offs_decisions"
	NextSteps        SectionKey = "next_steps"
	SuccessMetrics   SectionKey = "success_metrics"
)

// Section describes one canonical section in document order.
type Section struct {
	Number int
	Title  string
	Key    SectionKey
}

// Heading returns the numbered heading written into generated documents.
func (s Section) Heading() string {
	return strconv.Itoa(s.Number) + ". " + strings.ToUpper(s.Title) + ":"
}

// Canonical lists the ten sections in their fixed order.
var Canonical = []Section{
	{1, "Overview", Overview},
	{2, "Problem Statement", ProblemStatement},
	{3, "Debate Summary (Agent Perspectives)", DebateSummary},
	{4, "Objectives", Objectives},
	{5, "Scope", Scope},
	{6, "Requirements", Requirements},
	{7, "User Stories", UserStories},
	{8, "Trade-offs & Decisions", TradeOffs},
	{9, "Next Steps", NextSteps},
	{10, "Success Metrics", SuccessMetrics},
}

// Keys returns the ten keys in document order.
func Keys() []SectionKey {
	out := make([]SectionKey, len(Canonical))
	for i, s := range Canonical {
		out[i] = s.Key
	}
	return out
}

// Sections maps every canonical key to its accumulated text.
type Sections map[SectionKey]string

// NewSections returns a map holding all ten keys with empty text.
func NewSections() Sections {
	s := make(Sections, len(Canonical))
	for _, c := range Canonical {
		s[c.Key] = ""
	}
	return s
}

// Missing lists the keys whose text is empty, in document order.
func (s Sections) Missing() []SectionKey {
	var out []SectionKey
	for _, c := range Canonical {
		if strings.TrimSpace(s[c.Key]) == "" {
			out = append(out, c.Key)
		}
	}
	return out
}

// Complete reports whether all ten sections carry text.
func (s Sections) Complete() bool { return len(s.Missing()) == 0 }
