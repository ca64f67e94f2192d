// Package persona holds the fixed stakeholder panel that debates every idea.
package persona

// Persona is one simulated stakeholder role and its prompting contract.
type Persona struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Focus        string `json:"focus"`
	SystemPrompt string `json:"system_prompt"`
}

const (
	KeyProductManager     = "product_manager"
	KeyDesignLead         = "design_lead"
	KeyEngineeringLead    = "engineering_lead"
	KeyMarketingSalesHead = "marketing_sales_head"
	KeyBusinessManager    = "business_manager"
)

// PanelSize is the number of personas speaking in every round.
const PanelSize = 5

// panel is assembled once; registry order is the tie-break for entries
// sharing a round, so it must stay a slice.
var panel = [PanelSize]Persona{
	{
		Key:   KeyProductManager,
		Name:  "Product Manager",
		Focus: "product vision, strategy, feature prioritization, roadmap",
		SystemPrompt: "You are a Product Manager focused on defining product vision and strategy. " +
			"Frame discussions, clarify goals, and balance trade-offs between design, engineering, marketing, and business needs. " +
			"Prioritize features, align the team around user value, and outline a clear product roadmap.",
	},
	{
		Key:   KeyDesignLead,
		Name:  "Design Lead",
		Focus: "usability, aesthetics, user experience, accessibility",
		SystemPrompt: "You are a Design Lead focused on user experience and visual design. " +
			"Consider usability, accessibility, aesthetics, and how users will interact with the product. " +
			"Propose intuitive user flows, wireframes, and interface principles that ensure a delightful experience.",
	},
	{
		Key:   KeyEngineeringLead,
		Name:  "Engineering Lead",
		Focus: "technical feasibility, architecture, scalability, development timeline",
		SystemPrompt: "You are an Engineering Lead focused on technical feasibility and system architecture. " +
			"Evaluate implementation complexity, scalability, performance, and security. " +
			"Suggest technology stacks, break down development milestones, and estimate realistic timelines.",
	},
	{
		Key:   KeyMarketingSalesHead,
		Name:  "Marketing & Sales Head",
		Focus: "market positioning, customer acquisition, go-to-market strategy",
		SystemPrompt: "You are the Marketing & Sales Head focused on market adoption and growth. " +
			"Consider customer acquisition channels, target audience, competition, and branding. " +
			"Propose go-to-market strategies, pricing models, and sales approaches that ensure adoption and revenue.",
	},
	{
		Key:   KeyBusinessManager,
		Name:  "Business Manager",
		Focus: "profitability, scalability, revenue model, long-term sustainability",
		SystemPrompt: "You are a Business Manager focused on profitability and scalability. " +
			"Analyze revenue models, cost structures, market opportunities, and competitive advantages. " +
			"Ensure the product can be financially sustainable and scalable in the long term.",
	},
}

// List returns the panel in registry order. The returned slice is a copy.
func List() []Persona {
	out := make([]Persona, len(panel))
	copy(out, panel[:])
	return out
}

// Lookup finds a persona by key.
func Lookup(key string) (Persona, bool) {
	for _, p := range panel {
		if p.Key == key {
			return p, true
		}
	}
	return Persona{}, false
}

// ByName finds a persona by display name. Stored debate history only keeps
// display names, so this is how keys are recovered on reload.
func ByName(name string) (Persona, bool) {
	for _, p := range panel {
		if p.Name == name {
			return p, true
		}
	}
	return Persona{}, false
}

// Index reports the registry position of key, or -1.
func Index(key string) int {
	for i, p := range panel {
		if p.Key == key {
			return i
		}
	}
	return -1
}
