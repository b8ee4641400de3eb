package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// QuestionFeedback is one graded question from the tutor reply.
type QuestionFeedback struct {
	Question    int    `json:"question"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
	Tip         string `json:"tip,omitempty"`
}

// QuizGrade is the parsed tutor reply plus the recomputed score.
type QuizGrade struct {
	Feedback       []QuestionFeedback `json:"feedback"`
	Recommendation string             `json:"recommendation"`
	Score          int                `json:"score"`
	Total          int                `json:"total"`
}

var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// StripFences unwraps a markdown code fence if the model added one.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// ParseQuizGrade decodes the JSON tutor reply. The score is recomputed from
// the per-question correct flags rather than trusted from the model.
func ParseQuizGrade(raw string, total int) (QuizGrade, error) {
	var out QuizGrade
	if err := json.Unmarshal([]byte(StripFences(raw)), &out); err != nil {
		return QuizGrade{}, fmt.Errorf("invalid reply: %w", err)
	}
	score := 0
	for _, f := range out.Feedback {
		if f.Correct {
			score++
		}
	}
	out.Score = score
	out.Total = total
	return out, nil
}
