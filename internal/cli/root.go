// Package cli implements the storyarc command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmhart/storyarc/internal/cluster"
	"github.com/jmhart/storyarc/internal/config"
	"github.com/jmhart/storyarc/internal/derive"
	"github.com/jmhart/storyarc/internal/llm"
	"github.com/jmhart/storyarc/internal/narrative"
	"github.com/jmhart/storyarc/internal/store"
)

const version = "0.1.0"

var dbPathFlag string

var rootCmd = &cobra.Command{
	Use:     "storyarc",
	Short:   "Cluster work activities and turn them into interview-ready stories",
	Version: version,
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Path to the storyarc database (defaults to the configured data dir)")
}

// app bundles everything a command needs. Close the store when done.
type app struct {
	cfg     config.Config
	store   *store.Store
	cluster *cluster.Engine
	stories *narrative.Service
	derive  *derive.Engine
	persona narrative.Persona
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath := cfg.DBPath()
	if dbPathFlag != "" {
		dbPath = dbPathFlag
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := st.EnsureAccount(cfg.UserID, cfg.Credits.StartingBalance); err != nil {
		st.Close()
		return nil, err
	}

	// A nil client disables the model tier and makes derivation report
	// the service as unavailable; both are the correct degraded modes.
	var client llm.Client
	if httpClient := llm.New(cfg.Model); httpClient != nil {
		client = httpClient
	}

	engine := cluster.NewEngine(st, cfg.Clustering)
	gen := narrative.NewGenerator(client, cfg.Model, cfg.Gate)

	return &app{
		cfg:     cfg,
		store:   st,
		cluster: engine,
		stories: narrative.NewService(st, engine, gen),
		derive:  derive.NewEngine(st, client, cfg.Credits.Costs),
		persona: narrative.Persona{
			Name:    cfg.Persona.Name,
			Role:    cfg.Persona.Role,
			Company: cfg.Persona.Company,
		},
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}
