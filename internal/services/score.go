package services

import (
	"fmt"

	"github.com/soaringjerry/epds/internal/models"
)

// EPDSScore sums the item values of a completed or partial answer sequence.
func EPDSScore(answers []int) int {
	total := 0
	for _, v := range answers {
		total += v
	}
	return total
}

// ValidateAnswers checks that answers is a complete EPDS sequence:
// exactly ten values, each within [0, 3].
func ValidateAnswers(answers []int) error {
	if len(answers) != models.QuestionCount {
		return fmt.Errorf("expected %d answers, got %d", models.QuestionCount, len(answers))
	}
	for i, v := range answers {
		if v < 0 || v > models.MaxAnswerValue {
			return fmt.Errorf("answer Q%d=%d out of range [0,%d]", i+1, v, models.MaxAnswerValue)
		}
	}
	return nil
}
