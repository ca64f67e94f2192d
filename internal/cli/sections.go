package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"focalai/internal/prd"
)

func SectionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sections <file>",
		Short: "Parse a document (text or exported YAML) into its ten sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var s prd.Sections
			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".yaml", ".yml":
				s, err = prd.SectionsFromYAML(raw)
				if err != nil {
					return err
				}
			default:
				s = prd.ParseSections(string(raw))
			}
			return writeSections(cmd.OutOrStdout(), opts.format, s)
		},
	}
}
