package domain

// Option letters for the three answer choices of a question.
const (
	OptionA = "A"
	OptionB = "B"
	OptionC = "C"
)

// ValidOption reports whether s is one of the three answer letters.
func ValidOption(s string) bool {
	return s == OptionA || s == OptionB || s == OptionC
}

// Question models a multiple-choice trivia question with exactly three
// options. Answer holds the letter of the correct option.
type Question struct {
	Prompt  string    `json:"prompt"`
	Options [3]string `json:"options"`
	Answer  string    `json:"answer"`
}

// QuestionSet is an ordered list of questions under a stable identifier,
// the unit loaded from a backing store before a game starts.
type QuestionSet struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// ScoreboardRow is one line of the ranked scoreboard. Tied scores share a
// rank; the next distinct score takes rank = 1 + position in sort order.
type ScoreboardRow struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}
