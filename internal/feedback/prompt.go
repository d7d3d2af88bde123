package feedback

import (
	"encoding/json"
	"strings"

	"github.com/ssbdragonalt/Estimify/internal/scoring"
)

const systemPrompt = `You coach people who are practising Fermi estimation. You have the results of one round: each question, the true answer, the player's guess, and how many orders of magnitude the guess was off (logError).`

type promptItem struct {
	Question string  `json:"question"`
	Actual   float64 `json:"actual"`
	Guess    float64 `json:"guess"`
	LogError float64 `json:"logError"`
}

func buildUserMessage(attempts []scoring.Attempt) string {
	items := make([]promptItem, len(attempts))
	for i, a := range attempts {
		items[i] = promptItem{
			Question: a.Question.Question,
			Actual:   a.Question.Answer,
			Guess:    a.Guess,
			LogError: a.LogError,
		}
	}
	data, _ := json.MarshalIndent(items, "", "  ")

	var b strings.Builder
	b.WriteString("Round results:\n")
	b.Write(data)
	b.WriteString(`

Instructions:
Write feedback for the player that covers:
1. Overall accuracy and any patterns in their estimates, such as consistently guessing high or low.
2. Which questions they estimated well and which they missed badly.
3. How they could have broken the poorly estimated questions into smaller, easier quantities.
4. General estimation principles that apply to these questions.
5. Practical tips to use in the next round.

Be encouraging and actionable. Write plain prose without markdown headings.`)
	return b.String()
}
