package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmhart/storyarc/internal/derive"
	"github.com/jmhart/storyarc/internal/export"
	"github.com/jmhart/storyarc/internal/render"
)

var (
	deriveType   string
	deriveTone   string
	derivePrompt string
	deriveFrom   string
	deriveTo     string
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Render stories into audience-specific artifacts (costs credits)",
}

var deriveSingleCmd = &cobra.Command{
	Use:   "single <story-id>",
	Short: "Derive one artifact from one story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		d, err := app.derive.Single(context.Background(), app.cfg.UserID, args[0],
			deriveType, derive.Options{Tone: deriveTone, CustomPrompt: derivePrompt})
		if err != nil {
			return err
		}
		fmt.Printf("created %s (%d words, ~%ds spoken, %d credits)\n",
			d.ID, d.WordCount, d.SpeakSeconds, d.CreditCost)
		return nil
	},
}

var derivePacketCmd = &cobra.Command{
	Use:   "packet <story-id>...",
	Short: "Derive one combined artifact from 2-10 stories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		opts := derive.Options{Tone: deriveTone, CustomPrompt: derivePrompt}
		if opts.From, err = parseDate(deriveFrom); err != nil {
			return err
		}
		if opts.To, err = parseDate(deriveTo); err != nil {
			return err
		}

		d, err := app.derive.Packet(context.Background(), app.cfg.UserID, args,
			deriveType, opts)
		if err != nil {
			return err
		}
		fmt.Printf("created %s (%d stories, %d words, %d credits)\n",
			d.ID, len(d.StoryIDs), d.WordCount, d.CreditCost)
		return nil
	},
}

var deriveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List derivations",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		derivations, err := app.store.ListDerivations(app.cfg.UserID)
		if err != nil {
			return err
		}
		for _, d := range derivations {
			fmt.Printf("%s  [%s/%s]  %d words\n", d.ID, d.Kind, d.Type, d.WordCount)
		}
		return nil
	},
}

var deriveShowCmd = &cobra.Command{
	Use:   "show <derivation-id>",
	Short: "Print a derivation as markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		d, err := app.store.GetDerivation(app.cfg.UserID, args[0])
		if err != nil {
			return err
		}
		fmt.Print(render.Derivation(d))
		return nil
	},
}

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show the credit balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		balance, err := app.store.Balance(app.cfg.UserID)
		if err != nil {
			return err
		}
		fmt.Printf("balance: %d credits\n", balance)
		return nil
	},
}

var creditsGrantAmount int

var creditsGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Add credits to the balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.store.GrantCredits(app.cfg.UserID, creditsGrantAmount); err != nil {
			return err
		}
		balance, err := app.store.Balance(app.cfg.UserID)
		if err != nil {
			return err
		}
		fmt.Printf("balance: %d credits\n", balance)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stories and derivations to a JSON bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		path, err := export.Write(app.store, app.cfg.UserID,
			app.cfg.Export.Dir, app.cfg.Export.Compress)
		if err != nil {
			return err
		}
		fmt.Printf("exported: %s\n", path)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{deriveSingleCmd, derivePacketCmd} {
		cmd.Flags().StringVar(&deriveType, "type", "", "Derivation type (required)")
		cmd.Flags().StringVar(&deriveTone, "tone", "", "Tone hint, e.g. confident, humble")
		cmd.Flags().StringVar(&derivePrompt, "prompt", "", "Extra guidance")
		cmd.MarkFlagRequired("type")
	}
	derivePacketCmd.Flags().StringVar(&deriveFrom, "from", "", "Period start for the packet brief (YYYY-MM-DD)")
	derivePacketCmd.Flags().StringVar(&deriveTo, "to", "", "Period end for the packet brief (YYYY-MM-DD)")
	creditsGrantCmd.Flags().IntVar(&creditsGrantAmount, "amount", 10, "Credits to add")

	deriveCmd.AddCommand(deriveSingleCmd, derivePacketCmd, deriveListCmd, deriveShowCmd)
	creditsCmd.AddCommand(creditsGrantCmd)
	rootCmd.AddCommand(deriveCmd, creditsCmd, exportCmd)
}
