package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmhart/storyarc/internal/framework"
	"github.com/jmhart/storyarc/internal/narrative"
	"github.com/jmhart/storyarc/internal/render"
	"github.com/jmhart/storyarc/internal/store"
)

var (
	storyFramework string
	storyStyle     string
	storyArchetype string
	storyPrompt    string
	storyDebug     bool
	journalNotes   string
)

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Generate and manage narratives",
}

var storyGenerateCmd = &cobra.Command{
	Use:   "generate <cluster-id>",
	Short: "Generate a narrative for a cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		opts, err := storyOptions()
		if err != nil {
			return err
		}

		outcome, st, err := app.stories.GenerateForCluster(
			context.Background(), app.cfg.UserID, args[0], app.persona, opts)
		if err != nil {
			return err
		}
		reportOutcome(outcome, st)
		return nil
	},
}

var storyRegenerateCmd = &cobra.Command{
	Use:   "regenerate <story-id>",
	Short: "Re-run generation for an existing story, replacing its sections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		opts, err := storyOptions()
		if err != nil {
			return err
		}

		outcome, st, err := app.stories.Regenerate(
			context.Background(), app.cfg.UserID, args[0], app.persona, opts)
		if err != nil {
			return err
		}
		reportOutcome(outcome, st)
		return nil
	},
}

var storyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stories",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		stories, err := app.store.ListStories(app.cfg.UserID)
		if err != nil {
			return err
		}
		for _, st := range stories {
			fmt.Printf("%s  [%s/%s]  %s\n", st.ID, st.Framework, st.Tier, st.Title)
		}
		return nil
	},
}

var storyShowCmd = &cobra.Command{
	Use:   "show <story-id>",
	Short: "Print a story as markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		st, err := app.store.GetStory(app.cfg.UserID, args[0])
		if err != nil {
			return err
		}
		fmt.Print(render.Story(st))
		return nil
	},
}

var storyDeleteCmd = &cobra.Command{
	Use:   "delete <story-id>",
	Short: "Delete a story (its derivations keep their snapshots)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.store.DeleteStory(app.cfg.UserID, args[0])
	},
}

var journalCmd = &cobra.Command{
	Use:   "journal <cluster-id>",
	Short: "Attach free-text notes to a cluster for model-tier generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if journalNotes == "" {
			return fmt.Errorf("nothing to save: pass --notes")
		}

		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if _, err := app.store.GetCluster(app.cfg.UserID, args[0]); err != nil {
			return err
		}
		return app.store.UpsertJournalEntry(&store.JournalEntry{
			UserID:    app.cfg.UserID,
			ClusterID: args[0],
			Notes:     journalNotes,
		})
	},
}

func storyOptions() (narrative.Options, error) {
	fw, ok := framework.Parse(storyFramework)
	if !ok {
		names := make([]string, 0, len(framework.All()))
		for _, f := range framework.All() {
			names = append(names, string(f))
		}
		sort.Strings(names)
		return narrative.Options{}, fmt.Errorf("unknown framework %q (known: %s)",
			storyFramework, strings.Join(names, ", "))
	}
	return narrative.Options{
		Framework:    fw,
		Style:        storyStyle,
		Archetype:    storyArchetype,
		CustomPrompt: storyPrompt,
		Debug:        storyDebug,
	}, nil
}

func reportOutcome(outcome *narrative.Outcome, st *store.Story) {
	if outcome.Accepted {
		fmt.Printf("accepted (%s tier, %s): %s\n", outcome.Tier, outcome.Elapsed.Round(time.Millisecond), st.ID)
	} else {
		rej := outcome.Rejection
		fmt.Printf("rejected (%s tier): gates failed: %s\n",
			outcome.Tier, strings.Join(rej.FailedGates, ", "))
		fmt.Printf("evidence: %d distinct activities referenced, need %d\n",
			rej.EvidenceCount, rej.EvidenceNeed)
		fmt.Println("add more activities or journal notes, then retry")
	}
	for _, a := range outcome.Attempts {
		fmt.Printf("  tier %-8s %s\n", a.Tier, a.Result)
	}
}

func init() {
	for _, cmd := range []*cobra.Command{storyGenerateCmd, storyRegenerateCmd} {
		cmd.Flags().StringVar(&storyFramework, "framework", "", "Narrative framework (STAR, CAR, PAR, SOAR, ...)")
		cmd.Flags().StringVar(&storyStyle, "style", "", "Writing style hint for the model tier")
		cmd.Flags().StringVar(&storyArchetype, "archetype", "", "Story archetype tag")
		cmd.Flags().StringVar(&storyPrompt, "prompt", "", "Extra guidance for the model tier")
		cmd.Flags().BoolVar(&storyDebug, "debug", false, "Show per-tier attempt results")
	}
	journalCmd.Flags().StringVar(&journalNotes, "notes", "", "Free-text notes describing the work")

	storyCmd.AddCommand(storyGenerateCmd, storyRegenerateCmd, storyListCmd,
		storyShowCmd, storyDeleteCmd)
	rootCmd.AddCommand(storyCmd, journalCmd)
}
