package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/totegamma/officechat/internal/config"
	"github.com/totegamma/officechat/internal/usecase"
)

var activityLimit int

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Print the most recent activity log entries as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.Load(configPath)
		if err != nil {
			return err
		}
		setupLogger(conf.Server.LogLevel)

		s, err := openStore(context.Background(), conf)
		if err != nil {
			return err
		}

		limit := min(max(activityLimit, 1), usecase.MaxActivityLimit)
		items := s.Read().RecentActivity(limit)

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(items); err != nil {
			return fmt.Errorf("encode activity: %w", err)
		}
		return nil
	},
}

func init() {
	activityCmd.Flags().IntVarP(&activityLimit, "limit", "n", usecase.DefaultActivityLimit, "number of entries")
	rootCmd.AddCommand(activityCmd)
}
