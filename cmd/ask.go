package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssbdragonalt/Estimify/internal/problemgen"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Generate a single question without playing a round",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		user, _ := cmd.Flags().GetString("user")
		reveal, _ := cmd.Flags().GetBool("reveal")
		asJSON, _ := cmd.Flags().GetBool("json")

		svc, err := openServices(ctx, cmd, nil)
		if err != nil {
			return err
		}
		defer svc.Close()

		q, err := svc.generator().Generate(ctx, user)
		if err != nil {
			var maxErr *problemgen.MaxRetriesError
			if errors.As(err, &maxErr) {
				fmt.Fprintln(os.Stderr, problemgen.UserMessage)
			}
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(q)
		}

		fmt.Printf("[%s] %s\n", q.Category, q.Question)
		if reveal {
			fmt.Printf("\nAnswer:  %g\n", q.Answer)
			fmt.Printf("Context: %s\n", q.Context)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringP("user", "u", defaultUser(), "User id whose question history is used")
	askCmd.Flags().Bool("reveal", false, "Also print the answer and reasoning")
	askCmd.Flags().Bool("json", false, "Print the question as JSON (includes the answer)")
}
