// Package history keeps the per-user record of question texts already
// shown, which question generation uses for novelty checks and category
// rotation.
package history

import "context"

// DefaultCap is the number of entries retained per user.
const DefaultCap = 100

// GlobalUser keys the shared history used when no user is identified.
const GlobalUser = ""

// Store reads and appends question history for a user.
type Store interface {
	// Questions returns the user's prior question texts, oldest first.
	// An unknown user has an empty history.
	Questions(ctx context.Context, userID string) ([]string, error)

	// Append records text as the newest entry, evicting the oldest
	// entries beyond the store's cap.
	Append(ctx context.Context, userID, text string) error
}

// Counter is implemented by stores that know how many questions a user
// has been shown in total, including entries already evicted by the cap.
// Category rotation uses it so the cycle keeps turning once the cap is
// reached; stores without it rotate on the retained length.
type Counter interface {
	Count(ctx context.Context, userID string) (int, error)
}

// Bound returns the last limit entries of list, preserving order.
// A non-positive limit falls back to DefaultCap.
func Bound(list []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultCap
	}
	if len(list) <= limit {
		return list
	}
	return list[len(list)-limit:]
}
