package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"focalai/internal/debate"
	"focalai/internal/prd"
)

// entryPrinter streams entries in text mode, printing a header at each new
// round.
func entryPrinter(w io.Writer) func(debate.Entry) {
	lastRound := 0
	return func(e debate.Entry) {
		if e.Round != lastRound {
			lastRound = e.Round
			fmt.Fprintln(w, roundStyle.Render(fmt.Sprintf("Round %d", e.Round)))
		}
		name := personaStyle.Render(e.PersonaName)
		if e.Fallback {
			name += " " + fallbackStyle.Render("(fallback)")
		}
		fmt.Fprintf(w, "%s\n%s\n\n", name, strings.TrimSpace(e.Response))
	}
}

func writeSession(w io.Writer, format string, s *Session) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		data, err := prd.NewExport(s.Idea, s.Iteration, s.Feedback, s.UsedFallback, s.Sections).YAML()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	if !s.Success {
		fmt.Fprintln(w, errorStyle.Render("Refinement failed: "+s.Error))
		return nil
	}
	fmt.Fprintln(w, titleStyle.Render("Product Requirements Document"))
	fmt.Fprintln(w, documentStyle.Render(strings.TrimSpace(s.Document)))
	status := successStyle.Render("all sections present")
	if missing := s.Sections.Missing(); len(missing) > 0 {
		status = fallbackStyle.Render(fmt.Sprintf("missing sections: %v", missing))
	}
	fmt.Fprintf(w, "%s  %s\n", mutedStyle.Render(fmt.Sprintf("iteration %d, %d LLM calls", s.Iteration, s.CallsMade)), status)
	if s.UsedFallback {
		fmt.Fprintln(w, fallbackStyle.Render("Some responses are canned fallbacks because the call budget ran out."))
	}
	return nil
}

func writeSections(w io.Writer, format string, s prd.Sections) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		data, err := prd.NewExport("", 0, "", false, s).YAML()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	for _, c := range prd.Canonical {
		body := strings.TrimSpace(s[c.Key])
		mark := successStyle.Render("✓")
		if body == "" {
			mark = errorStyle.Render("✗")
		}
		fmt.Fprintf(w, "%s %s %s\n", mark, c.Heading(), mutedStyle.Render(fmt.Sprintf("(%d chars)", len(body))))
	}
	return nil
}
