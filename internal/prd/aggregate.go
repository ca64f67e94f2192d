package prd

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"focalai/internal/debate"
	"focalai/internal/fallback"
	"focalai/internal/llm"
	"focalai/internal/quota"
)

// PhaseAggregate tags the synthesis call for hooks and logs.
const PhaseAggregate = "aggregate"

const strategistSystem = "You are an expert product strategist who can synthesize multiple stakeholder perspectives into a comprehensive Product Requirements Document (PRD)."

// ErrorPrefix marks an inline error standing in for the document.
const ErrorPrefix = "Error aggregating results: "

// Aggregator issues the single synthesis call of a run. It shares the run's
// tracker with the debate orchestrator.
type Aggregator struct {
	client  llm.Client
	tracker *quota.Tracker
	logger  *log.Logger
}

type AggregatorOption func(*Aggregator)

func WithLogger(l *log.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAggregator(client llm.Client, tracker *quota.Tracker, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{client: client, tracker: tracker, logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(a)
	}
	if a.tracker == nil {
		a.tracker = quota.New(quota.DefaultCeiling)
	}
	return a
}

// Aggregate returns the document text and whether it came from the
// fallback template. Non-quota failures are returned inline as text.
func (a *Aggregator) Aggregate(ctx context.Context, idea string, l debate.Log) (string, bool) {
	if a.client == nil || !a.tracker.TryConsume() {
		return fallback.Aggregate(idea, l.Statements()), true
	}
	text, err := a.client.Complete(llm.WithPhase(ctx, PhaseAggregate), strategistSystem, aggregatePrompt(idea, l))
	if err == nil {
		return text, false
	}
	if llm.IsQuotaExceeded(err) {
		a.tracker.Latch()
		a.logger.Printf("prd: quota signal during aggregation: %v", err)
		return fallback.Aggregate(idea, l.Statements()), true
	}
	a.logger.Printf("prd: aggregation failed: %v", err)
	return ErrorPrefix + err.Error(), false
}

func aggregatePrompt(idea string, l debate.Log) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product Idea: %s\n\n", idea)
	fmt.Fprintf(&b, "Stakeholder Debate Summary:\n%s\n\n", l.Transcript())
	b.WriteString("Based on this multi-stakeholder debate, create a comprehensive Product Requirements Document (PRD) with the following 10 sections:\n\n")
	for _, s := range Canonical {
		b.WriteString(s.Heading())
		b.WriteString("\n")
		for _, line := range guidance[s.Key] {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Format your response clearly with these 10 numbered sections, using the headings exactly as written above. Each section should be comprehensive and actionable.")
	return b.String()
}

var guidance = map[SectionKey][]string{
	Overview: {
		"Give an overview about the product, what it intends to do, and its purpose",
		"Provide a clear, concise description of the product vision",
	},
	ProblemStatement: {
		"What problem are we solving and how does it improve or facilitate the user's life or workflow",
		"Clearly articulate the pain points and value proposition",
	},
	DebateSummary: {
		"Capture the perspectives of all key stakeholders (Product, Design, Engineering, Marketing & Sales, Business)",
		"Summarize their concerns, priorities, and any conflicts, followed by the final consensus or decision",
	},
	Objectives: {
		"List the high-level goals of the product",
		"These are guiding principles that describe what success looks like and how the product will deliver value to users and the business",
	},
	Scope: {
		"Define what will be delivered in this product version (in-scope) and what will not be delivered (out-of-scope)",
		"Include both In-Scope and Out-of-Scope sections",
	},
	Requirements: {
		"Functional Requirements: features the product must have to work as intended (e.g. \"system must allow users to...\")",
		"Non-Functional Requirements: qualities such as performance, scalability, security, or usability standards",
	},
	UserStories: {
		"Describe the product from the end-user's perspective using the format: \"As a [role], I want [feature], so that [benefit].\"",
	},
	TradeOffs: {
		"Document any compromises made during discussions",
		"Which features were deprioritized, what was postponed to a later version, and why those choices were made",
	},
	NextSteps: {
		"List concrete action items after the PRD is agreed upon",
		"These could include development milestones, design deliverables, testing timelines, or launch preparations",
	},
	SuccessMetrics: {
		"Define how success will be measured",
		"KPIs or benchmarks that indicate whether the product achieved its goals",
	},
}
