package problemgen

import "context"

// Generator produces one novel question for a user.
type Generator interface {
	// Generate returns a validated, novel Question already recorded in the
	// user's history, or a terminal error.
	Generate(ctx context.Context, userID string) (*Question, error)
}
