package problemgen

// Question is a generated Fermi estimation question.
type Question struct {
	// Question is the prompt shown to the player.
	Question string `json:"question"`

	// Answer is the reference estimate. Always finite and positive.
	Answer float64 `json:"answer"`

	// Context narrates how to arrive at the estimate, step by step.
	Context string `json:"context"`

	// Category is the topic the question was requested for. Not part of
	// the model output.
	Category Category `json:"category,omitempty"`
}

// Category is a topic focus for generation.
type Category string

const (
	CategoryHumanBiology    Category = "human biology"
	CategoryDailyActivities Category = "daily activities"
	CategoryGlobalPhenomena Category = "global phenomena"
	CategoryTechnology      Category = "technology"
	CategoryNature          Category = "nature"
	CategorySpace           Category = "space"
	CategoryTime            Category = "time"
	CategoryTransportation  Category = "transportation"
)

// DefaultCategories is the rotation order.
var DefaultCategories = []Category{
	CategoryHumanBiology,
	CategoryDailyActivities,
	CategoryGlobalPhenomena,
	CategoryTechnology,
	CategoryNature,
	CategorySpace,
	CategoryTime,
	CategoryTransportation,
}

// CategoryFor picks the category for a user who has historyLen recorded
// questions: categories[historyLen mod len(categories)]. An empty list
// uses DefaultCategories.
func CategoryFor(historyLen int, categories []Category) Category {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	if historyLen < 0 {
		historyLen = 0
	}
	return categories[historyLen%len(categories)]
}
