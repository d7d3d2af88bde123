package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect per-user question history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the questions already asked to a user, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		user, _ := cmd.Flags().GetString("user")

		svc, err := openServices(ctx, cmd, nil)
		if err != nil {
			return err
		}
		defer svc.Close()

		questions, err := svc.history.Questions(ctx, user)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		if len(questions) == 0 {
			fmt.Printf("No questions recorded for %q.\n", user)
			return nil
		}
		for i, q := range questions {
			fmt.Printf("%4d  %s\n", i+1, q)
		}
		return nil
	},
}

func init() {
	historyListCmd.Flags().StringP("user", "u", defaultUser(), "User id")
	historyCmd.AddCommand(historyListCmd)
}
