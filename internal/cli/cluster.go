package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmhart/storyarc/internal/cluster"
)

var (
	clusterFrom    string
	clusterTo      string
	clusterMinSize int
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group activities into units of work and manage the groupings",
}

var clusterRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Cluster currently-unclustered activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		opts := cluster.Options{MinSize: clusterMinSize}
		if opts.From, err = parseDate(clusterFrom); err != nil {
			return err
		}
		if opts.To, err = parseDate(clusterTo); err != nil {
			return err
		}

		results, err := app.cluster.Cluster(app.cfg.UserID, opts)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("no new clusters")
			return nil
		}
		for _, r := range results {
			refs := ""
			if len(r.SharedRefs) > 0 {
				refs = " [" + strings.Join(r.SharedRefs, ", ") + "]"
			}
			fmt.Printf("%s  %s (%d activities)%s\n", r.Cluster.ID, r.Cluster.Name, len(r.Members), refs)
		}
		return nil
	},
}

var clusterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clusters",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		clusters, err := app.store.ListClusters(app.cfg.UserID)
		if err != nil {
			return err
		}
		for _, c := range clusters {
			members, err := app.store.ActivitiesByCluster(app.cfg.UserID, c.ID)
			if err != nil {
				return err
			}
			fmt.Printf("%s  %s (%d activities)\n", c.ID, c.Name, len(members))
		}
		return nil
	},
}

var clusterShowCmd = &cobra.Command{
	Use:   "show <cluster-id>",
	Short: "Show a hydrated cluster: members, shared refs, tools, dates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		hyd, err := app.cluster.Hydrate(app.cfg.UserID, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s  %s\n", hyd.Cluster.ID, hyd.Cluster.Name)
		fmt.Printf("activities: %d  tools: %s\n", hyd.Size(), strings.Join(hyd.Tools, ", "))
		if len(hyd.SharedRefs) > 0 {
			fmt.Printf("shared refs: %s\n", strings.Join(hyd.SharedRefs, ", "))
		}
		if hyd.Size() > 0 {
			fmt.Printf("dates: %s to %s\n",
				hyd.Start.Format("2006-01-02"), hyd.End.Format("2006-01-02"))
		}
		for _, a := range hyd.Activities {
			fmt.Printf("  %s  %s  [%s] %s\n",
				a.ID, a.OccurredAt.Format("2006-01-02"), a.Source, a.Title)
		}
		return nil
	},
}

var clusterRenameCmd = &cobra.Command{
	Use:   "rename <cluster-id> <name>",
	Short: "Rename a cluster (display only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.cluster.Rename(app.cfg.UserID, args[0], args[1])
	},
}

var clusterMergeCmd = &cobra.Command{
	Use:   "merge <target-id> <source-id>...",
	Short: "Merge source clusters into the target",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.cluster.Merge(app.cfg.UserID, args[0], args[1:])
	},
}

var clusterDeleteCmd = &cobra.Command{
	Use:   "delete <cluster-id>",
	Short: "Delete a cluster; its activities become unclustered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.cluster.Delete(app.cfg.UserID, args[0])
	},
}

var clusterAddCmd = &cobra.Command{
	Use:   "add <cluster-id> <activity-id>",
	Short: "Move an activity into a cluster",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.cluster.AddActivity(app.cfg.UserID, args[0], args[1])
	},
}

var clusterRemoveCmd = &cobra.Command{
	Use:   "remove <cluster-id> <activity-id>",
	Short: "Remove an activity from a cluster",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.cluster.RemoveActivity(app.cfg.UserID, args[0], args[1])
	},
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

func init() {
	clusterRunCmd.Flags().StringVar(&clusterFrom, "from", "", "Only cluster activities on or after this date (YYYY-MM-DD)")
	clusterRunCmd.Flags().StringVar(&clusterTo, "to", "", "Only cluster activities on or before this date (YYYY-MM-DD)")
	clusterRunCmd.Flags().IntVar(&clusterMinSize, "min-size", 0, "Minimum cluster size (default from config)")

	clusterCmd.AddCommand(clusterRunCmd, clusterListCmd, clusterShowCmd,
		clusterRenameCmd, clusterMergeCmd, clusterDeleteCmd,
		clusterAddCmd, clusterRemoveCmd)
	rootCmd.AddCommand(clusterCmd)
}
