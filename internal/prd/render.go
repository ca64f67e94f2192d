package prd

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

// Markdown renders the parsed sections as a markdown document in canonical
// order. Empty sections keep their heading.
func Markdown(title string, s Sections) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	for _, c := range Canonical {
		fmt.Fprintf(&b, "## %d. %s\n\n", c.Number, c.Title)
		if body := strings.TrimSpace(s[c.Key]); body != "" {
			b.WriteString(body)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// RenderHTML converts markdown into an HTML fragment.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// ExportSection is one section in a structured export.
type ExportSection struct {
	Number  int        `yaml:"number" json:"number"`
	Title   string     `yaml:"title" json:"title"`
	Key     SectionKey `yaml:"key" json:"key"`
	Content string     `yaml:"content" json:"content"`
}

// Export is the structured form of a document, written as YAML next to the
// markdown and HTML renderings.
type Export struct {
	Idea         string          `yaml:"idea" json:"idea"`
	Iteration    int             `yaml:"iteration" json:"iteration"`
	Feedback     string          `yaml:"feedback,omitempty" json:"feedback,omitempty"`
	UsedFallback bool            `yaml:"used_fallback" json:"used_fallback"`
	GeneratedAt  string          `yaml:"generated_at" json:"generated_at"`
	Sections     []ExportSection `yaml:"sections" json:"sections"`
}

// NewExport orders s canonically into an Export.
func NewExport(idea string, iteration int, feedback string, usedFallback bool, s Sections) Export {
	e := Export{
		Idea:         idea,
		Iteration:    iteration,
		Feedback:     feedback,
		UsedFallback: usedFallback,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Sections:     make([]ExportSection, 0, len(Canonical)),
	}
	for _, c := range Canonical {
		e.Sections = append(e.Sections, ExportSection{
			Number:  c.Number,
			Title:   c.Title,
			Key:     c.Key,
			Content: strings.TrimRight(s[c.Key], "\n"),
		})
	}
	return e
}

// YAML marshals the export.
func (e Export) YAML() ([]byte, error) {
	data, err := yaml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

// SectionsFromYAML reads an export back into a section map.
func SectionsFromYAML(data []byte) (Sections, error) {
	var e Export
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal export: %w", err)
	}
	out := NewSections()
	for _, s := range e.Sections {
		if _, ok := out[s.Key]; !ok {
			continue
		}
		if s.Content != "" {
			out[s.Key] = s.Content + "\n"
		}
	}
	return out, nil
}
