package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"focalai/internal/persona"
)

type personaRow struct {
	Key   string `json:"key" yaml:"key"`
	Name  string `json:"name" yaml:"name"`
	Focus string `json:"focus" yaml:"focus"`
}

func PersonasCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the debate panel in speaking order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([]personaRow, 0, persona.PanelSize)
			for _, p := range persona.List() {
				rows = append(rows, personaRow{Key: p.Key, Name: p.Name, Focus: p.Focus})
			}
			w := cmd.OutOrStdout()
			switch opts.format {
			case FormatJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			case FormatYAML:
				return yaml.NewEncoder(w).Encode(rows)
			}
			for i, r := range rows {
				fmt.Fprintf(w, "%d. %s %s\n", i+1, personaStyle.Render(r.Name), mutedStyle.Render(r.Focus))
			}
			return nil
		},
	}
}
