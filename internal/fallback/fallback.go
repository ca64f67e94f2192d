// Package fallback produces the deterministic stand-in texts used when no
// further completion calls are allowed. Nothing here can fail.
package fallback

import (
	"fmt"
	"strings"

	"focalai/internal/persona"
)

const (
	ideaEcho     = 100
	keyPointMin  = 50
	keyPointEcho = 200
)

// Statement is one thing a panel member said.
type Statement struct {
	Speaker string
	Text    string
}

var personaTemplates = map[string]string{
	persona.KeyProductManager: `As a Product Manager, I see potential in this idea: %s

Key considerations: Product vision, strategy, feature prioritization, and roadmap.

Challenges: Balancing competing priorities and creating a successful product roadmap.

Suggestions: Define clear success metrics, prioritize features based on user value, and iterate based on feedback.`,

	persona.KeyDesignLead: `As a Design Lead, I'm thinking about the user experience for: %s

Key considerations: Usability, aesthetics, user experience, and accessibility.

Challenges: Creating intuitive and engaging user interactions.

Suggestions: Focus on user research, create wireframes, and test with real users.`,

	persona.KeyEngineeringLead: `As an Engineering Lead, I'm analyzing the technical feasibility of: %s

Key considerations: Technical feasibility, architecture, scalability, and development timeline.

Challenges: Ensuring robust architecture and meeting performance requirements.

Suggestions: Start with MVP approach, choose proven technologies, and plan for scalability.`,

	persona.KeyMarketingSalesHead: `As a Marketing & Sales Head, I'm considering if this product would be valuable: %s

Key considerations: Market positioning, customer acquisition, go-to-market strategy.

Challenges: Understanding if this addresses actual user needs and pain points.

Suggestions: Validate with target users, focus on core value proposition, and ensure ease of use.`,

	persona.KeyBusinessManager: `As a Business Manager, I'm evaluating the product strategy for: %s

Key considerations: Profitability, scalability, revenue model, and long-term sustainability.

Challenges: Balancing competing priorities and creating a successful product roadmap.

Suggestions: Define clear success metrics, prioritize features based on user value, and iterate based on feedback.`,
}

// PersonaResponse returns the canned paragraph for p with a truncated echo
// of the idea.
func PersonaResponse(p persona.Persona, idea string) string {
	echo := Truncate(idea, ideaEcho) + "..."
	if tpl, ok := personaTemplates[p.Key]; ok {
		return fmt.Sprintf(tpl, echo)
	}
	return fmt.Sprintf("Analysis from %s: %s", p.Name, echo)
}

// Aggregate returns a complete ten-section document built from templates.
// Statements longer than 50 runes contribute a key point to the debate
// summary.
func Aggregate(idea string, said []Statement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the stakeholder analysis of: %s...\n\n", Truncate(idea, ideaEcho))
	b.WriteString(overviewThroughSummary)
	if points := keyPoints(said); len(points) > 0 {
		b.WriteString("\nKey points raised:\n")
		for _, p := range points {
			b.WriteString("- ")
			b.WriteString(p)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(objectivesThroughMetrics)
	return b.String()
}

func keyPoints(said []Statement) []string {
	out := make([]string, 0, len(said))
	for _, s := range said {
		if len([]rune(s.Text)) <= keyPointMin {
			continue
		}
		text := strings.Join(strings.Fields(Truncate(s.Text, keyPointEcho)), " ")
		out = append(out, s.Speaker+": "+text+"...")
	}
	return out
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

const overviewThroughSummary = `1. OVERVIEW:
This product aims to address the identified market need through a comprehensive solution that balances user needs, technical feasibility, and business viability. The product will serve as a platform that connects users with the value they seek while maintaining sustainable business operations.

2. PROBLEM STATEMENT:
The core problem being solved is the gap between user needs and available solutions in the market. Users currently face challenges with existing tools and processes, leading to inefficiencies and unmet expectations. This product will streamline workflows and provide a more intuitive, effective solution.

3. DEBATE SUMMARY (AGENT PERSPECTIVES):
Product Manager: Focuses on product vision, strategy, feature prioritization, and roadmap.
Design Lead: Prioritizes usability, aesthetics, user experience, and accessibility.
Engineering Lead: Considers technical feasibility, architecture, scalability, and development timeline.
Marketing & Sales Head: Considers market positioning, customer acquisition, go-to-market strategy.
Business Manager: Analyzes profitability, scalability, revenue model, and long-term sustainability.
`

const objectivesThroughMetrics = `4. OBJECTIVES:
- Deliver a user-centric solution that addresses identified pain points
- Establish a sustainable business model with clear revenue streams
- Create a scalable, maintainable technical architecture
- Provide an intuitive, accessible user experience
- Achieve market differentiation and competitive advantage

5. SCOPE:
In-Scope: Core functionality, essential user features, basic integration capabilities, fundamental security measures, and primary user workflows.
Out-of-Scope: Advanced features, third-party integrations beyond core requirements, extensive customization options, and platform-specific optimizations for initial release.

6. REQUIREMENTS:
Functional Requirements:
- System must allow users to perform core tasks efficiently
- System must provide clear feedback and status updates
- System must support basic data management and retrieval
- System must ensure data security and privacy

Non-Functional Requirements:
- Performance: Response times under 2 seconds for key operations
- Scalability: Support for 10x user growth without major rearchitecture
- Security: Industry-standard encryption and authentication
- Usability: Intuitive interface requiring minimal training

7. USER STORIES:
- As a primary user, I want to complete my main tasks quickly, so that I can be more productive
- As a business user, I want to track my usage and results, so that I can measure value
- As a technical user, I want reliable performance, so that I can depend on the system
- As a new user, I want an intuitive interface, so that I can get started without extensive training

8. TRADE-OFFS & DECISIONS:
- Speed to market vs. comprehensive feature set: Prioritizing core functionality for initial release
- Technical complexity vs. user experience: Ensuring usability while maintaining robust architecture
- Cost vs. quality: Balancing development resources with user expectations
- Scalability vs. development time: Planning for growth while maintaining development velocity

9. NEXT STEPS:
- Week 1-2: Finalize technical specifications and architecture
- Week 3-4: Create detailed design mockups and user flows
- Week 5-6: Develop MVP prototype with core functionality
- Week 7-8: Conduct user testing and gather feedback
- Week 9-10: Iterate based on feedback and prepare for development

10. SUCCESS METRICS:
- User Adoption: 80% of target users successfully complete onboarding
- Performance: 95% of operations complete within 2 seconds
- User Satisfaction: Average rating of 4.5/5 on usability surveys
- Business Metrics: Achieve 20% month-over-month user growth
- Technical Metrics: 99.9% uptime and <1% error rate

Note: This analysis was generated using fallback responses due to API quota limitations. For more detailed AI-powered analysis, please try again later when quota resets.`
