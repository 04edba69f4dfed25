package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quizclash-service/internal/domain"
)

// RoomRepository abstracts how active room sessions are stored (in-memory, Redis-marked, etc).
type RoomRepository interface {
	PutIfAbsent(code string, session *RoomSession) bool
	Get(code string) (*RoomSession, bool)
	Delete(code string)
}

// Archiver persists the summary of a finished game.
type Archiver interface {
	SaveSummary(ctx context.Context, summary domain.GameSummary) error
}

// SummaryRepository loads archived game summaries (from cache/backing store).
type SummaryRepository interface {
	GetSummary(ctx context.Context, code string) (domain.GameSummary, error)
}

// GameService owns every game session and is the only mutation path into them.
type GameService struct {
	rooms     RoomRepository
	archive   Archiver
	summaries SummaryRepository

	revealDelay time.Duration
	now         func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option tweaks a GameService; used mainly by tests for determinism.
type Option func(*GameService)

// WithClock substitutes the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

// WithRand substitutes the randomness source for codes and shuffles.
func WithRand(rnd *rand.Rand) Option {
	return func(s *GameService) { s.rnd = rnd }
}

// WithRevealDelay overrides the pause between question results and auto-advance.
func WithRevealDelay(d time.Duration) Option {
	return func(s *GameService) { s.revealDelay = d }
}

// WithArchive wires persistence of finished games.
func WithArchive(archive Archiver, summaries SummaryRepository) Option {
	return func(s *GameService) {
		s.archive = archive
		s.summaries = summaries
	}
}

func NewGameService(rooms RoomRepository, opts ...Option) *GameService {
	s := &GameService{
		rooms:       rooms,
		revealDelay: 5 * time.Second,
		now:         time.Now,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom makes a new room in LOBBY and returns its code. Candidate codes
// colliding with an active room are retried, not treated as fatal.
func (s *GameService) CreateRoom(hostID string) (string, error) {
	for {
		code := s.newCode()
		session := newRoomSession(code, hostID, s)
		if s.rooms.PutIfAbsent(code, session) {
			return code, nil
		}
	}
}

func (s *GameService) newCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%04d", 1000+s.rnd.Intn(9000))
}

func (s *GameService) session(code string) (*RoomSession, error) {
	if len(code) != 4 {
		return nil, domain.ErrInvalidRoomCode
	}
	session, ok := s.rooms.Get(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return session, nil
}

// JoinRoom adds a player to the lobby, or reconnects them if the id is known.
func (s *GameService) JoinRoom(code, playerID, name string, avatar int) (domain.Room, error) {
	session, err := s.session(code)
	if err != nil {
		return domain.Room{}, err
	}
	return session.join(playerID, name, avatar)
}

// MarkDisconnected flags a player as gone without removing them; they stay in
// scoring and ranking.
func (s *GameService) MarkDisconnected(code, playerID string) {
	session, err := s.session(code)
	if err != nil {
		return
	}
	session.markDisconnected(playerID)
}

// KickPlayer removes a player entirely. Their questions and answers remain.
func (s *GameService) KickPlayer(code, hostID, playerID string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.kick(hostID, playerID)
}

// StartWriting moves LOBBY to WRITING with the given timers.
func (s *GameService) StartWriting(code, hostID string, writingSeconds, questionSeconds, maxQuestions int) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.startWriting(hostID, writingSeconds, questionSeconds, maxQuestions)
}

// SubmitQuestion records a player's question during WRITING.
func (s *GameService) SubmitQuestion(code, playerID string, q domain.Question) (string, error) {
	session, err := s.session(code)
	if err != nil {
		return "", err
	}
	return session.submitQuestion(playerID, q)
}

// DeleteQuestion removes a question; allowed only during REVIEW.
func (s *GameService) DeleteQuestion(code, hostID, questionID string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.deleteQuestion(hostID, questionID)
}

// EndWritingEarly is the host path into REVIEW, converging with the writing
// timer. Whichever fires first wins; the loser is a no-op.
func (s *GameService) EndWritingEarly(code, hostID string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.endWriting(hostID)
}

// StartQuiz fixes the question order and begins the first question.
func (s *GameService) StartQuiz(code, hostID string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.startQuiz(hostID)
}

// SubmitAnswer records a player's answer to the current question. The first
// submission wins; later ones are rejected.
func (s *GameService) SubmitAnswer(code, playerID, questionID string, answerIndex int) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.submitAnswer(playerID, questionID, answerIndex)
}

// ForceResults lets the host resolve the current question before its timer.
func (s *GameService) ForceResults(code, hostID string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.forceResults(hostID)
}

// NextQuestion advances past the reveal, canceling any pending auto-advance.
func (s *GameService) NextQuestion(code, hostID string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.nextQuestion(hostID)
}

// AdvanceRevealStage steps through the RESULTS reveal, applying award bonuses
// exactly once.
func (s *GameService) AdvanceRevealStage(code, hostID string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	return session.advanceRevealStage(hostID)
}

// DeleteRoom tears a room down and closes its subscriptions.
func (s *GameService) DeleteRoom(code, hostID string) error {
	session, err := s.session(code)
	if err != nil {
		return err
	}
	if err := session.requireHost(hostID); err != nil {
		return err
	}
	s.rooms.Delete(code)
	session.close()
	return nil
}

// Snapshot returns the room's current state.
func (s *GameService) Snapshot(code string) (domain.Room, error) {
	session, err := s.session(code)
	if err != nil {
		return domain.Room{}, err
	}
	return session.snapshot(), nil
}

// Subscribe returns a channel receiving a room snapshot after every accepted
// mutation. The caller must invoke the cancel function to avoid leaks.
func (s *GameService) Subscribe(code string) (<-chan domain.Room, func(), error) {
	session, err := s.session(code)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Summary reports a game's outcome: live rooms are summarized on the fly,
// finished ones come from the archive.
func (s *GameService) Summary(ctx context.Context, code string) (domain.GameSummary, error) {
	if session, ok := s.rooms.Get(code); ok {
		return session.summary(), nil
	}
	if s.summaries == nil {
		return domain.GameSummary{}, domain.ErrSummaryNotFound
	}
	return s.summaries.GetSummary(ctx, code)
}
