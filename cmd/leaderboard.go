package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the top round scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Leaderboard.TopN
		}

		svc, err := openServices(ctx, cmd, nil)
		if err != nil {
			return err
		}
		defer svc.Close()

		entries, err := svc.board.Top(ctx, limit)
		if err != nil {
			return fmt.Errorf("query leaderboard: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No scores yet.")
			return nil
		}

		fmt.Printf("%-4s  %-24s  %7s  %9s  %s\n", "#", "Player", "Score", "Questions", "Date")
		fmt.Println(strings.Repeat("─", 64))
		for i, e := range entries {
			fmt.Printf("%-4d  %-24s  %7.2f  %9d  %s\n",
				i+1,
				truncate(e.Username, 24),
				e.Score,
				e.TotalQuestions,
				e.Timestamp.Local().Format("2006-01-02"),
			)
		}
		return nil
	},
}

func init() {
	leaderboardCmd.Flags().IntP("limit", "n", 0, "Number of entries to show (default from config)")
}
