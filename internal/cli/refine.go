package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	artifactcache "focalai/internal/cache/artifact"
	"focalai/internal/debate"
	"focalai/internal/gateway/entity"
	artifactrepo "focalai/internal/gateway/repository/artifact"
	"focalai/internal/gateway/service/refinement"
)

func RefineCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "refine <idea>",
		Short: "Debate an idea and print the resulting requirements document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idea := strings.TrimSpace(strings.Join(args, " "))
			return runSession(cmd, opts, out, &Session{IdeaID: uuid.NewString(), Idea: idea}, "")
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory to export document.md, document.html, document.yaml and session.json into")
	return cmd
}

func FeedbackCmd(opts *options) *cobra.Command {
	var (
		from string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "feedback --from <session.json> <feedback>",
		Short: "Continue a saved debate with user feedback",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, err := readSession(from)
			if err != nil {
				return err
			}
			if prev.IdeaID == "" {
				prev.IdeaID = uuid.NewString()
			}
			next := &Session{
				IdeaID:    prev.IdeaID,
				Idea:      prev.Idea,
				Iteration: prev.Iteration + 1,
				History:   prev.History,
			}
			return runSession(cmd, opts, out, next, strings.TrimSpace(strings.Join(args, " ")))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "session file written by refine --format json or --out")
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory to export the new iteration into")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

// runSession runs one engine call for s. An empty feedback means a fresh
// debate; otherwise s.History is the previous debate.
func runSession(cmd *cobra.Command, opts *options, out string, s *Session, feedback string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var observer func(debate.Entry)
	if opts.format == FormatText {
		observer = entryPrinter(cmd.OutOrStdout())
	}
	engine, client, err := newEngine(ctx, opts.config(), opts.logger(cmd), observer)
	if err != nil {
		return err
	}
	defer client.Close()
	if opts.format == FormatText {
		fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("model: "+client.Name()))
	}

	if feedback == "" {
		s.Result = engine.Refine(ctx, s.Idea)
	} else {
		s.Feedback = feedback
		s.Result = engine.RefineWithFeedback(ctx, s.Idea, s.History, feedback)
	}
	history := s.History.Clone()
	s.History = append(history, s.Result.Log...)

	if err := writeSession(cmd.OutOrStdout(), opts.format, s); err != nil {
		return err
	}
	if !s.Success {
		return fmt.Errorf("refinement failed: %s", s.Error)
	}
	if out != "" {
		paths, err := exportSession(ctx, artifactcache.NewDiskStore(out), s)
		if err != nil {
			return err
		}
		if opts.format == FormatText {
			for _, p := range paths {
				fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("wrote "+p))
			}
		}
	}
	return nil
}

// exportSession writes the rendered document and the session file under
// <ideaID>/iteration-<n>/ and returns the file locations.
func exportSession(ctx context.Context, store artifactrepo.Store, s *Session) ([]string, error) {
	idea := entity.NewIdea(entity.DemoUserID, s.Idea)
	idea.ID = s.IdeaID
	files, err := refinement.Render(idea, entity.Document{
		IdeaID:       s.IdeaID,
		Iteration:    s.Iteration,
		Feedback:     s.Feedback,
		Content:      s.Document,
		Sections:     s.Sections,
		UsedFallback: s.UsedFallback,
		CallsMade:    s.CallsMade,
	})
	if err != nil {
		return nil, err
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	files = append(files, artifactrepo.File{Name: "session.json", Content: raw})

	paths, err := artifactrepo.PutDocument(ctx, store, s.IdeaID, s.Iteration, files)
	if err != nil {
		return nil, err
	}
	locations := make([]string, 0, len(paths))
	for _, p := range paths {
		loc, err := store.GetURL(ctx, s.IdeaID, p)
		if err != nil || loc == "" {
			loc = p
		}
		locations = append(locations, loc)
	}
	return locations, nil
}
