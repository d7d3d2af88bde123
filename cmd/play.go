package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssbdragonalt/Estimify/internal/round"
	"github.com/ssbdragonalt/Estimify/internal/tui"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a round of Fermi estimation questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		user, _ := cmd.Flags().GetString("user")
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = user
		}

		settings := cfg.RoundSettings()
		if n, _ := cmd.Flags().GetInt("size"); n > 0 {
			settings.Size = n
		}

		svc, err := openServices(ctx, cmd, nil)
		if err != nil {
			return err
		}
		defer svc.Close()

		deps := tui.Deps{
			Round:    round.New(svc.generator(), user, settings),
			Feedback: svc.synthesizer(),
			Username: name,
			Logger:   logger,
		}
		if noBoard, _ := cmd.Flags().GetBool("no-leaderboard"); !noBoard {
			deps.Board = svc.board
		}

		res, err := tui.Run(ctx, deps)
		if err != nil {
			return err
		}
		if res == nil {
			fmt.Println("Round abandoned.")
			return nil
		}
		fmt.Printf("Round %s: %.2f / %d (average %.2f)\n", res.ID, res.Total, len(res.Attempts), res.Average())
		return nil
	},
}

// addPlayFlags registers the play flags on c, so the bare root command
// can start a round too.
func addPlayFlags(c *cobra.Command) {
	c.Flags().StringP("user", "u", defaultUser(), "User id whose question history is used")
	c.Flags().String("name", "", "Display name for the leaderboard (defaults to --user)")
	c.Flags().IntP("size", "n", 0, "Questions per round (overrides config)")
	c.Flags().Bool("no-leaderboard", false, "Do not submit the round score")
}

func init() {
	addPlayFlags(playCmd)
}
