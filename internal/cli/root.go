// Package cli is the focal command line: run debates locally, continue them
// with feedback, inspect documents and serve the gateway.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"focalai/internal/gateway/config"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

func Execute() error {
	return NewRoot().Execute()
}

// options is shared by every subcommand. Values come from flags first and
// the environment second.
type options struct {
	v       *viper.Viper
	format  string
	verbose bool
}

func (o *options) config() *config.Config {
	return config.FromViper(o.v)
}

func (o *options) logger(cmd *cobra.Command) *log.Logger {
	if !o.verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(cmd.ErrOrStderr(), "focal: ", log.LstdFlags)
}

func (o *options) validate() error {
	switch o.format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json or yaml)", o.format)
}

func NewRoot() *cobra.Command {
	opts := &options{v: config.NewViper()}
	root := &cobra.Command{
		Use:           "focal",
		Short:         "Turn a product idea into a requirements document through a persona debate",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.format = strings.ToLower(strings.TrimSpace(opts.format))
			return opts.validate()
		},
	}

	pf := root.PersistentFlags()
	pf.String("provider", "", "LLM provider: gemini, openai or fake")
	pf.String("model", "", "model name (provider default when empty)")
	pf.Int("rounds", 0, "debate rounds for a new idea")
	pf.Int("feedback-rounds", 0, "debate rounds after feedback")
	pf.Int("ceiling", 0, "maximum LLM calls per run")
	pf.Int("parallel", 0, "personas allowed to call out at once within a round")
	pf.StringVar(&opts.format, "format", FormatText, "output format: text, json or yaml")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity to stderr")

	bind := map[string]string{
		"llm_provider":    "provider",
		"llm_model":       "model",
		"debate_rounds":   "rounds",
		"feedback_rounds": "feedback-rounds",
		"quota_ceiling":   "ceiling",
		"debate_parallel": "parallel",
	}
	for key, flag := range bind {
		_ = opts.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		RefineCmd(opts),
		FeedbackCmd(opts),
		PersonasCmd(opts),
		SectionsCmd(opts),
		ServeCmd(opts),
	)
	return root
}

// Main runs the CLI and exits non-zero on error.
func Main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}
