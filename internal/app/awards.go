package app

import (
	"context"
	"log"

	"quizclash-service/internal/domain"
)

// computeAwardsLocked picks the award winners once, on entry to RESULTS.
// Ties break toward the lowest player id so reruns agree.
func (s *RoomSession) computeAwardsLocked() (prolific, challenging string) {
	counts := s.room.QuestionCountByAuthor()
	best := 0
	for authorID, n := range counts {
		if n > best || (n == best && (prolific == "" || authorID < prolific)) {
			best = n
			prolific = authorID
		}
	}

	challenging = s.mostChallengingLocked()
	return prolific, challenging
}

// mostChallengingLocked finds the author whose used questions were hardest
// without being unsolvable: the lowest mean correct-fraction strictly above
// zero. Questions with no non-author respondents carry no signal and are
// skipped.
func (s *RoomSession) mostChallengingLocked() string {
	if s.room.Quiz == nil {
		return ""
	}

	type authorStats struct {
		sum float64
		n   int
	}
	stats := make(map[string]*authorStats)

	for _, questionID := range s.room.Quiz.QuestionOrder {
		question, ok := s.room.Questions[questionID]
		if !ok {
			continue
		}
		respondents, correct := 0, 0
		for playerID, answer := range s.room.Answers[questionID] {
			if playerID == question.AuthorID {
				continue
			}
			respondents++
			if answer.AnswerIndex == question.CorrectIndex {
				correct++
			}
		}
		if respondents == 0 {
			continue
		}
		st := stats[question.AuthorID]
		if st == nil {
			st = &authorStats{}
			stats[question.AuthorID] = st
		}
		st.sum += float64(correct) / float64(respondents)
		st.n++
	}

	winner := ""
	bestMean := 0.0
	for authorID, st := range stats {
		mean := st.sum / float64(st.n)
		if mean <= 0 {
			// Nobody ever solved this author's questions; no fair signal.
			continue
		}
		if winner == "" || mean < bestMean || (mean == bestMean && authorID < winner) {
			winner = authorID
			bestMean = mean
		}
	}
	return winner
}

func (s *RoomSession) advanceRevealStage(hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(hostID); err != nil {
		return err
	}
	if s.room.Settings.Phase != domain.PhaseResults {
		return domain.ErrWrongPhase
	}

	switch s.room.Settings.RevealStage {
	case domain.RevealLeaderboard:
		s.room.Settings.RevealStage = domain.RevealProlific
		s.applyAwardLocked(s.prolificWinner, &s.room.Settings.ProlificWinnerID)
	case domain.RevealProlific:
		s.room.Settings.RevealStage = domain.RevealChallenging
		s.applyAwardLocked(s.challengingWinner, &s.room.Settings.ChallengingWinnerID)
	case domain.RevealChallenging:
		s.room.Settings.RevealStage = domain.RevealPodium
		s.archiveLocked()
	default:
		// Already on the podium; advancing again changes nothing.
		return nil
	}
	s.broadcastLocked()
	return nil
}

// applyAwardLocked grants the flat bonus at most once: the persisted winner id
// doubles as the applied flag.
func (s *RoomSession) applyAwardLocked(winnerID string, applied *string) {
	if winnerID == "" || *applied != "" {
		return
	}
	*applied = winnerID
	player, ok := s.room.Players[winnerID]
	if !ok {
		// Winner was kicked; the award stands but there is no score to bump.
		return
	}
	player.Score += domain.AwardBonus
	player.AuthorScore += domain.AwardBonus
	s.room.Players[winnerID] = player
}

func (s *RoomSession) summary() domain.GameSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summaryLocked()
}

func (s *RoomSession) summaryLocked() domain.GameSummary {
	questionCount := 0
	if s.room.Quiz != nil {
		questionCount = len(s.room.Quiz.QuestionOrder)
	}
	return domain.GameSummary{
		Code:                s.room.Code,
		FinishedAt:          s.service.now(),
		QuestionCount:       questionCount,
		Leaderboard:         s.room.Leaderboard(),
		ProlificWinnerID:    s.room.Settings.ProlificWinnerID,
		ChallengingWinnerID: s.room.Settings.ChallengingWinnerID,
	}
}

func (s *RoomSession) archiveLocked() {
	if s.service.archive == nil {
		return
	}
	summary := s.summaryLocked()
	go func() {
		if err := s.service.archive.SaveSummary(context.Background(), summary); err != nil {
			log.Printf("room %s: archive summary: %v", summary.Code, err)
		}
	}()
}
