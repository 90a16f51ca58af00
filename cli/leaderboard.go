package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kasuganosora/hearthquest/game/boss"
)

var (
	lbFamily int64
	lbDays   int
	lbLimit  int
	lbJSON   bool
)

func init() {
	leaderboardCmd.Flags().Int64Var(&lbFamily, "family", 0, "Family id (required)")
	leaderboardCmd.Flags().IntVar(&lbDays, "days", 0, "Trailing window in days (default leaderboard.window_days)")
	leaderboardCmd.Flags().IntVar(&lbLimit, "limit", 0, "Maximum rows (default leaderboard.default_limit)")
	leaderboardCmd.Flags().BoolVar(&lbJSON, "json", false, "Print JSON instead of a table")
	_ = leaderboardCmd.MarkFlagRequired("family")
	rootCmd.AddCommand(leaderboardCmd)
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print a family's boss battle leaderboard",
	RunE:  runLeaderboard,
}

func runLeaderboard(cmd *cobra.Command, _ []string) error {
	a, logger, err := open()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer a.Close()

	days := lbDays
	if days <= 0 {
		days = a.Config.Leaderboard.WindowDays
	}
	limit := lbLimit
	if limit <= 0 {
		limit = a.Config.Leaderboard.DefaultLimit
	}

	ctx := cmd.Context()
	fam, err := a.UOW.Families().Get(ctx, lbFamily)
	if err != nil {
		return err
	}
	w, err := boss.TrailingWindow(time.Now(), days, fam.Timezone)
	if err != nil {
		return err
	}
	standings, err := a.Leaderboard.Build(ctx, fam.ID, w)
	if err != nil {
		return err
	}
	if len(standings) > limit {
		standings = standings[:limit]
	}

	out := cmd.OutOrStdout()
	if lbJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"family": fam, "window": w, "standings": standings})
	}

	fmt.Fprintf(out, "%s  %s .. %s (%s)\n\n", fam.Name,
		w.From.Format("2006-01-02"), w.To.AddDate(0, 0, -1).Format("2006-01-02"), fam.Timezone)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tSCORE\tXP\tGOLD\tBATTLES")
	for _, s := range standings {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%d\t%d\t%d\n", s.Rank, s.Name, s.Score, s.AwardedXP, s.AwardedGold, s.Battles)
	}
	return tw.Flush()
}
