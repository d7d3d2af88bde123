package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssbdragonalt/Estimify/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score <guess> <answer>",
	Short: "Score a guess against a reference answer",
	Example: `  estimify score 3e9 2.5e9
  estimify score "1,000" 100`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		guess, err := scoring.ParseGuess(args[0])
		if err != nil {
			return fmt.Errorf("guess: %w", err)
		}
		answer, err := scoring.ParseGuess(args[1])
		if err != nil {
			return fmt.Errorf("answer: %w", err)
		}
		res, err := scoring.ScoreGuess(guess, answer)
		if err != nil {
			return err
		}
		fmt.Printf("Log error: %.3f\n", res.LogError)
		fmt.Printf("Score:     %.3f\n", res.Score)
		fmt.Println(scoring.Describe(res.LogError))
		return nil
	},
}
