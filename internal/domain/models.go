package domain

import (
	"sort"
	"time"
)

// Phase is a room's stage in its lifecycle. Transitions are strictly forward.
type Phase string

const (
	PhaseLobby   Phase = "LOBBY"
	PhaseWriting Phase = "WRITING"
	PhaseReview  Phase = "REVIEW"
	PhaseQuiz    Phase = "QUIZ"
	PhaseResults Phase = "RESULTS"
)

// QuestionType distinguishes four-option multiple choice from true/false.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
)

// RevealStage is a host-paced sub-step of the RESULTS phase.
type RevealStage int

const (
	RevealLeaderboard RevealStage = iota
	RevealProlific
	RevealChallenging
	RevealPodium
)

const (
	// MaxNameLength bounds player display names.
	MaxNameLength = 20
	// MaxQuestionLength bounds question text.
	MaxQuestionLength = 200
	// AvatarCount is the size of the fixed avatar catalog (ids 1..AvatarCount).
	AvatarCount = 26
	// AwardBonus is the flat score bonus for each author award.
	AwardBonus = 2500
)

// Settings holds a room's configuration and award flags.
type Settings struct {
	Phase                Phase       `json:"phase"`
	WritingTimerSeconds  int         `json:"writingTimerSeconds"`
	QuestionTimerSeconds int         `json:"questionTimerSeconds"`
	MaxQuestions         int         `json:"maxQuestions,omitempty"` // 0 means no cap
	RevealStage          RevealStage `json:"revealStage"`
	ProlificWinnerID     string      `json:"prolificWinnerId,omitempty"`
	ChallengingWinnerID  string      `json:"challengingWinnerId,omitempty"`
	CreatedAt            time.Time   `json:"createdAt"`
}

// Player is one participant in a room. Score is always the sum of
// AnsweringScore and AuthorScore.
type Player struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Avatar         int    `json:"avatar,omitempty"`
	Score          int    `json:"score"`
	AnsweringScore int    `json:"answeringScore"`
	AuthorScore    int    `json:"authorScore"`
	Streak         int    `json:"streak"`
	Connected      bool   `json:"connected"`
}

// Question is a player-authored question. CorrectIndex always indexes Options.
type Question struct {
	ID           string       `json:"id"`
	Text         string       `json:"text"`
	Type         QuestionType `json:"type"`
	Options      []string     `json:"options"`
	CorrectIndex int          `json:"correctIndex"`
	AuthorID     string       `json:"authorId"`
}

// Answer records a single submission; at most one exists per (question, player).
type Answer struct {
	AnswerIndex int       `json:"answerIndex"`
	Timestamp   time.Time `json:"timestamp"`
}

// QuizState tracks progress through one quiz run. QuestionOrder is fixed once
// the quiz starts.
type QuizState struct {
	CurrentQuestionIndex     int       `json:"currentQuestionIndex"`
	QuestionOrder            []string  `json:"questionOrder"`
	CurrentQuestionStartTime time.Time `json:"currentQuestionStartTime"`
	ShowingResults           bool      `json:"showingResults"`
}

// Room is the full state of one game session, keyed by a 4-digit code.
type Room struct {
	Code      string                       `json:"code"`
	HostID    string                       `json:"hostId"`
	Settings  Settings                     `json:"settings"`
	Players   map[string]Player            `json:"players"`
	Questions map[string]Question          `json:"questions"`
	Quiz      *QuizState                   `json:"quiz,omitempty"`
	Answers   map[string]map[string]Answer `json:"answers,omitempty"`
}

// RankedPlayer is a leaderboard row.
type RankedPlayer struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Avatar         int    `json:"avatar,omitempty"`
	Score          int    `json:"score"`
	AnsweringScore int    `json:"answeringScore"`
	AuthorScore    int    `json:"authorScore"`
	Streak         int    `json:"streak"`
	Connected      bool   `json:"connected"`
}

// GameSummary is the archived record of a finished game.
type GameSummary struct {
	Code                string         `json:"code"`
	FinishedAt          time.Time      `json:"finishedAt"`
	QuestionCount       int            `json:"questionCount"`
	Leaderboard         []RankedPlayer `json:"leaderboard"`
	ProlificWinnerID    string         `json:"prolificWinnerId,omitempty"`
	ChallengingWinnerID string         `json:"challengingWinnerId,omitempty"`
}

// Leaderboard returns the room's players ordered by score descending.
// Ties break by name, then id, so snapshots stay stable between reads.
func (r *Room) Leaderboard() []RankedPlayer {
	ranked := make([]RankedPlayer, 0, len(r.Players))
	for _, p := range r.Players {
		ranked = append(ranked, RankedPlayer{
			ID:             p.ID,
			Name:           p.Name,
			Avatar:         p.Avatar,
			Score:          p.Score,
			AnsweringScore: p.AnsweringScore,
			AuthorScore:    p.AuthorScore,
			Streak:         p.Streak,
			Connected:      p.Connected,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Name != ranked[j].Name {
			return ranked[i].Name < ranked[j].Name
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// QuestionCountByAuthor derives per-author submission counts from the room.
func (r *Room) QuestionCountByAuthor() map[string]int {
	counts := make(map[string]int)
	for _, q := range r.Questions {
		counts[q.AuthorID]++
	}
	return counts
}

// ConnectedCount reports how many players are currently connected.
func (r *Room) ConnectedCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Connected {
			n++
		}
	}
	return n
}
