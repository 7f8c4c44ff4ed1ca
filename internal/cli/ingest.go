package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmhart/storyarc/internal/config"
	"github.com/jmhart/storyarc/internal/ingest"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file and create the data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		path, err := config.WriteDefault(cfg.DataPath)
		if err != nil {
			return err
		}
		fmt.Printf("config: %s\n", path)

		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()
		fmt.Printf("database: %s\n", app.store.Path)
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <drop-file.json>...",
	Short: "Ingest activity records from JSON drop files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		in := ingest.New(app.store, app.cfg.UserID)
		for _, path := range args {
			res, err := in.File(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Printf("%s: ingested %d, skipped %d\n", path, res.Ingested, res.Skipped)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <drop-dir>",
	Short: "Watch a directory and ingest drop files as they appear",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		in := ingest.New(app.store, app.cfg.UserID)
		events, err := in.Watch(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("watching %s (ctrl-c to stop)\n", args[0])
		for ev := range events {
			if ev.Err != nil {
				fmt.Fprintf(os.Stderr, "watch: %v\n", ev.Err)
				continue
			}
			fmt.Printf("%s: ingested %d, skipped %d\n", ev.Path, ev.Result.Ingested, ev.Result.Skipped)
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all ingested activities (clusters keep their rows)",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		n, err := app.store.ClearActivities(app.cfg.UserID)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d activities\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd, ingestCmd, watchCmd, clearCmd)
}
