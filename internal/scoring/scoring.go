// Package scoring computes answer and author points for a quiz question.
// Everything here is pure; callers own all state.
package scoring

import (
	"math"
	"math/rand"
	"time"

	"quizclash-service/internal/domain"
)

// PlayerResult is the scoring outcome for one respondent on one question.
type PlayerResult struct {
	IsCorrect    bool    `json:"isCorrect"`
	Points       int     `json:"points"`
	NewStreak    int     `json:"newStreak"`
	TimeToAnswer float64 `json:"timeToAnswer"` // seconds, one decimal place
}

// QuestionResults aggregates one question's resolution.
type QuestionResults struct {
	PlayerResults      map[string]PlayerResult `json:"playerResults"`
	AuthorPoints       int                     `json:"authorPoints"`
	AnswerDistribution map[int]int             `json:"answerDistribution"`
}

// BaseScore decays linearly from 1000 (instant answer) to 500 (full time used).
func BaseScore(timeToAnswer, questionTimer float64) int {
	timeFraction := math.Min(timeToAnswer/questionTimer, 1)
	return int(math.Round(1000 - 500*timeFraction))
}

// StreakMultiplier rewards runs of consecutive correct answers, capped at 1.5.
func StreakMultiplier(streak int) float64 {
	switch {
	case streak >= 5:
		return 1.5
	case streak == 4:
		return 1.3
	case streak == 3:
		return 1.2
	case streak == 2:
		return 1.1
	default:
		return 1.0
	}
}

// AnsweringPoints computes a respondent's points for one question.
// currentStreak is the streak before this question; the returned streak
// includes this answer.
func AnsweringPoints(isCorrect bool, timeToAnswer, questionTimer float64, currentStreak int) (points, newStreak int) {
	if !isCorrect {
		return 0, 0
	}
	newStreak = currentStreak + 1
	base := BaseScore(timeToAnswer, questionTimer)
	points = int(math.Round(float64(base) * StreakMultiplier(newStreak)))
	return points, newStreak
}

// AuthorPoints rewards well-calibrated questions. A question nobody solved is
// worth nothing, a question everyone solved costs 500, and exactly one solver
// is worth the full 1000, decaying exponentially as more players succeed.
// Fewer than two non-author answers is too small a sample to judge.
func AuthorPoints(totalAnswers, wrongCount int) int {
	if totalAnswers < 2 {
		return 0
	}
	correctCount := totalAnswers - wrongCount
	if correctCount == 0 {
		return 0
	}
	if correctCount == totalAnswers {
		return -500
	}
	// Map 1 correct -> 0 and all correct -> 1 so the decay starts at the
	// single-solver maximum. k=3.2 lands near 80 points at 75% correct.
	fraction := float64(correctCount-1) / float64(totalAnswers-1)
	return int(math.Round(1000 * math.Exp(-3.2*fraction)))
}

// ProcessQuestionResults resolves one question: per-respondent points, the
// author's award, and the raw answer distribution. The author's own answer
// counts in the distribution but never in scoring. Players who submitted
// nothing are scored as wrong with the full timer as their answer time.
func ProcessQuestionResults(
	answers map[string]domain.Answer,
	correctIndex int,
	authorID string,
	players map[string]domain.Player,
	questionStart time.Time,
	questionTimerSeconds int,
) QuestionResults {
	results := QuestionResults{
		PlayerResults:      make(map[string]PlayerResult),
		AnswerDistribution: make(map[int]int),
	}

	wrongCount := 0
	totalNonAuthorAnswers := 0

	for playerID, answer := range answers {
		results.AnswerDistribution[answer.AnswerIndex]++
		if playerID == authorID {
			continue
		}
		totalNonAuthorAnswers++

		isCorrect := answer.AnswerIndex == correctIndex
		if !isCorrect {
			wrongCount++
		}

		timeToAnswer := math.Max(0, answer.Timestamp.Sub(questionStart).Seconds())
		points, newStreak := AnsweringPoints(isCorrect, timeToAnswer, float64(questionTimerSeconds), players[playerID].Streak)

		results.PlayerResults[playerID] = PlayerResult{
			IsCorrect:    isCorrect,
			Points:       points,
			NewStreak:    newStreak,
			TimeToAnswer: math.Round(timeToAnswer*10) / 10,
		}
	}

	for playerID := range players {
		if playerID == authorID {
			continue
		}
		if _, answered := answers[playerID]; answered {
			continue
		}
		results.PlayerResults[playerID] = PlayerResult{
			IsCorrect:    false,
			Points:       0,
			NewStreak:    0,
			TimeToAnswer: float64(questionTimerSeconds),
		}
		totalNonAuthorAnswers++
		wrongCount++
	}

	results.AuthorPoints = AuthorPoints(totalNonAuthorAnswers, wrongCount)
	return results
}

// Shuffle returns a new Fisher-Yates shuffled copy; the input is not mutated.
func Shuffle(rnd *rand.Rand, ids []string) []string {
	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
