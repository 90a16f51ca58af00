package cli

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchFamily int64

func init() {
	watchCmd.Flags().Int64Var(&watchFamily, "family", 0, "Family id (required)")
	_ = watchCmd.MarkFlagRequired("family")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream a family's quest events as JSON lines",
	Long: `Stream a family's quest events as JSON lines until interrupted.
Events from other processes are only visible when cache.redis_addr is set.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, logger, err := open()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		events, cancel, err := a.Notifier.Subscribe(ctx, watchFamily)
		if err != nil {
			return err
		}
		defer cancel()

		enc := json.NewEncoder(cmd.OutOrStdout())
		for ev := range events {
			if err := enc.Encode(ev); err != nil {
				return err
			}
		}
		return nil
	},
}
