package app

import (
	"log"
	"time"

	"github.com/google/uuid"

	"quizclash-service/internal/domain"
	"quizclash-service/internal/scoring"
)

func (s *RoomSession) startWriting(hostID string, writingSeconds, questionSeconds, maxQuestions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(hostID); err != nil {
		return err
	}
	if s.room.Settings.Phase != domain.PhaseLobby {
		return domain.ErrWrongPhase
	}
	if s.room.ConnectedCount() == 0 {
		return domain.ErrNoPlayers
	}
	if writingSeconds <= 0 {
		writingSeconds = s.room.Settings.WritingTimerSeconds
	}
	if questionSeconds <= 0 {
		questionSeconds = s.room.Settings.QuestionTimerSeconds
	}

	s.room.Settings.Phase = domain.PhaseWriting
	s.room.Settings.WritingTimerSeconds = writingSeconds
	s.room.Settings.QuestionTimerSeconds = questionSeconds
	s.room.Settings.MaxQuestions = maxQuestions

	s.scheduleLocked(time.Duration(writingSeconds)*time.Second, s.toReviewLocked)
	s.broadcastLocked()
	return nil
}

func (s *RoomSession) submitQuestion(playerID string, q domain.Question) (string, error) {
	if err := validateQuestion(q); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room.Settings.Phase != domain.PhaseWriting {
		return "", domain.ErrWrongPhase
	}
	if _, ok := s.room.Players[playerID]; !ok {
		return "", domain.ErrPlayerNotFound
	}

	q.ID = uuid.NewString()
	q.AuthorID = playerID
	s.room.Questions[q.ID] = q
	s.broadcastLocked()
	return q.ID, nil
}

func validateQuestion(q domain.Question) error {
	if len(q.Text) == 0 || len(q.Text) > domain.MaxQuestionLength {
		return domain.ErrInvalidQuestion
	}
	switch q.Type {
	case domain.MultipleChoice:
		if len(q.Options) != 4 {
			return domain.ErrInvalidQuestion
		}
	case domain.TrueFalse:
		if len(q.Options) != 2 {
			return domain.ErrInvalidQuestion
		}
	default:
		return domain.ErrInvalidQuestion
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return domain.ErrInvalidQuestion
	}
	for _, opt := range q.Options {
		if opt == "" {
			return domain.ErrInvalidQuestion
		}
	}
	return nil
}

func (s *RoomSession) endWriting(hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(hostID); err != nil {
		return err
	}
	// Converges with the writing timer; whichever fired first already moved on.
	if s.room.Settings.Phase != domain.PhaseWriting {
		return nil
	}
	s.toReviewLocked()
	return nil
}

func (s *RoomSession) toReviewLocked() {
	if s.room.Settings.Phase != domain.PhaseWriting {
		return
	}
	s.cancelTimerLocked()
	s.room.Settings.Phase = domain.PhaseReview
	s.broadcastLocked()
}

func (s *RoomSession) deleteQuestion(hostID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(hostID); err != nil {
		return err
	}
	if s.room.Settings.Phase != domain.PhaseReview {
		return domain.ErrWrongPhase
	}
	if _, ok := s.room.Questions[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.room.Questions, questionID)
	s.broadcastLocked()
	return nil
}

func (s *RoomSession) startQuiz(hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(hostID); err != nil {
		return err
	}
	if s.room.Settings.Phase != domain.PhaseReview {
		return domain.ErrWrongPhase
	}
	if len(s.room.Questions) == 0 {
		return domain.ErrNoQuestions
	}

	ids := make([]string, 0, len(s.room.Questions))
	for id := range s.room.Questions {
		ids = append(ids, id)
	}
	s.service.mu.Lock()
	order := scoring.Shuffle(s.service.rnd, ids)
	s.service.mu.Unlock()
	if max := s.room.Settings.MaxQuestions; max > 0 && len(order) > max {
		order = order[:max]
	}

	s.room.Settings.Phase = domain.PhaseQuiz
	s.room.Quiz = &domain.QuizState{
		CurrentQuestionIndex:     0,
		QuestionOrder:            order,
		CurrentQuestionStartTime: s.service.now(),
		ShowingResults:           false,
	}
	s.armQuestionTimerLocked()
	s.broadcastLocked()
	return nil
}

func (s *RoomSession) armQuestionTimerLocked() {
	d := time.Duration(s.room.Settings.QuestionTimerSeconds) * time.Second
	s.scheduleLocked(d, s.resolveQuestionLocked)
}

func (s *RoomSession) submitAnswer(playerID, questionID string, answerIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room.Settings.Phase != domain.PhaseQuiz || s.room.Quiz == nil || s.room.Quiz.ShowingResults {
		return domain.ErrWrongPhase
	}
	if currentID := s.room.Quiz.QuestionOrder[s.room.Quiz.CurrentQuestionIndex]; currentID != questionID {
		return domain.ErrQuestionNotFound
	}
	if _, ok := s.room.Players[playerID]; !ok {
		return domain.ErrPlayerNotFound
	}
	question := s.room.Questions[questionID]
	if answerIndex < 0 || answerIndex >= len(question.Options) {
		return domain.ErrInvalidQuestion
	}

	byPlayer := s.room.Answers[questionID]
	if byPlayer == nil {
		byPlayer = make(map[string]domain.Answer)
		s.room.Answers[questionID] = byPlayer
	}
	if _, dup := byPlayer[playerID]; dup {
		return domain.ErrDuplicateAnswer
	}
	byPlayer[playerID] = domain.Answer{
		AnswerIndex: answerIndex,
		Timestamp:   s.service.now(),
	}
	s.broadcastLocked()
	return nil
}

func (s *RoomSession) forceResults(hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(hostID); err != nil {
		return err
	}
	if s.room.Settings.Phase != domain.PhaseQuiz || s.room.Quiz == nil || s.room.Quiz.ShowingResults {
		return domain.ErrWrongPhase
	}
	s.resolveQuestionLocked()
	return nil
}

// resolveQuestionLocked scores the current question exactly once: the
// ShowingResults flag plus the timer generation guard make the timer path and
// the host path mutually exclusive.
func (s *RoomSession) resolveQuestionLocked() {
	quiz := s.room.Quiz
	if s.room.Settings.Phase != domain.PhaseQuiz || quiz == nil || quiz.ShowingResults {
		return
	}
	s.cancelTimerLocked()

	questionID := quiz.QuestionOrder[quiz.CurrentQuestionIndex]
	question, ok := s.room.Questions[questionID]
	if !ok {
		// Deleted out from under the run; skip ahead rather than halt.
		log.Printf("room %s: question %s missing at resolution", s.room.Code, questionID)
		s.advanceLocked()
		return
	}

	results := scoring.ProcessQuestionResults(
		s.room.Answers[questionID],
		question.CorrectIndex,
		question.AuthorID,
		s.room.Players,
		quiz.CurrentQuestionStartTime,
		s.room.Settings.QuestionTimerSeconds,
	)

	for playerID, result := range results.PlayerResults {
		player, ok := s.room.Players[playerID]
		if !ok {
			// Kicked mid-question; nothing to update.
			continue
		}
		player.Score += result.Points
		player.AnsweringScore += result.Points
		player.Streak = result.NewStreak
		s.room.Players[playerID] = player
	}

	if author, ok := s.room.Players[question.AuthorID]; ok {
		author.Score += results.AuthorPoints
		author.AuthorScore += results.AuthorPoints
		s.room.Players[question.AuthorID] = author
	}

	quiz.ShowingResults = true
	s.scheduleLocked(s.service.revealDelay, s.advanceLocked)
	s.broadcastLocked()
}

func (s *RoomSession) nextQuestion(hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(hostID); err != nil {
		return err
	}
	if s.room.Settings.Phase != domain.PhaseQuiz || s.room.Quiz == nil || !s.room.Quiz.ShowingResults {
		return domain.ErrWrongPhase
	}
	s.advanceLocked()
	return nil
}

func (s *RoomSession) advanceLocked() {
	quiz := s.room.Quiz
	if s.room.Settings.Phase != domain.PhaseQuiz || quiz == nil {
		return
	}
	s.cancelTimerLocked()

	next := quiz.CurrentQuestionIndex + 1
	if next >= len(quiz.QuestionOrder) {
		s.finishQuizLocked()
		return
	}
	quiz.CurrentQuestionIndex = next
	quiz.CurrentQuestionStartTime = s.service.now()
	quiz.ShowingResults = false
	s.armQuestionTimerLocked()
	s.broadcastLocked()
}

func (s *RoomSession) finishQuizLocked() {
	s.room.Settings.Phase = domain.PhaseResults
	s.room.Settings.RevealStage = domain.RevealLeaderboard
	s.prolificWinner, s.challengingWinner = s.computeAwardsLocked()
	s.broadcastLocked()
}
