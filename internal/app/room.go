package app

import (
	"sync"
	"time"

	"quizclash-service/internal/domain"
)

// RoomSession is the single authoritative holder of one room's state. All
// mutations go through its mutex; timer callbacks re-check a generation
// counter under the lock so a canceled or superseded timer never applies.
type RoomSession struct {
	service *GameService

	mu          sync.RWMutex
	room        domain.Room
	subscribers map[chan domain.Room]struct{}
	closed      bool

	timer    *time.Timer
	timerGen int

	// Cached on entry to RESULTS.
	prolificWinner    string
	challengingWinner string
}

func newRoomSession(code, hostID string, service *GameService) *RoomSession {
	return &RoomSession{
		service: service,
		room: domain.Room{
			Code:   code,
			HostID: hostID,
			Settings: domain.Settings{
				Phase:                domain.PhaseLobby,
				WritingTimerSeconds:  600,
				QuestionTimerSeconds: 20,
				CreatedAt:            service.now(),
			},
			Players:   make(map[string]domain.Player),
			Questions: make(map[string]domain.Question),
			Answers:   make(map[string]map[string]domain.Answer),
		},
		subscribers: make(map[chan domain.Room]struct{}),
	}
}

func (s *RoomSession) requireHost(hostID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.room.HostID != hostID {
		return domain.ErrNotHost
	}
	return nil
}

func (s *RoomSession) requireHostLocked(hostID string) error {
	if s.room.HostID != hostID {
		return domain.ErrNotHost
	}
	return nil
}

func (s *RoomSession) join(playerID, name string, avatar int) (domain.Room, error) {
	if len(name) == 0 || len(name) > domain.MaxNameLength {
		return domain.Room{}, domain.ErrInvalidName
	}
	if avatar < 0 || avatar > domain.AvatarCount {
		return domain.Room{}, domain.ErrInvalidAvatar
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.room.Players[playerID]; ok {
		// Same browsing session coming back; keep the score, refresh the rest.
		existing.Name = name
		if avatar != 0 {
			if err := s.avatarFreeLocked(avatar, playerID); err != nil {
				return domain.Room{}, err
			}
			existing.Avatar = avatar
		}
		existing.Connected = true
		s.room.Players[playerID] = existing
		return s.broadcastLocked(), nil
	}

	if s.room.Settings.Phase != domain.PhaseLobby && s.room.Settings.Phase != domain.PhaseWriting {
		return domain.Room{}, domain.ErrWrongPhase
	}
	if avatar != 0 {
		if err := s.avatarFreeLocked(avatar, playerID); err != nil {
			return domain.Room{}, err
		}
	}

	s.room.Players[playerID] = domain.Player{
		ID:        playerID,
		Name:      name,
		Avatar:    avatar,
		Connected: true,
	}
	return s.broadcastLocked(), nil
}

// avatarFreeLocked enforces catalog uniqueness among connected players only,
// so a disconnected player's avatar can be reused.
func (s *RoomSession) avatarFreeLocked(avatar int, playerID string) error {
	for id, p := range s.room.Players {
		if id == playerID {
			continue
		}
		if p.Connected && p.Avatar == avatar {
			return domain.ErrAvatarTaken
		}
	}
	return nil
}

func (s *RoomSession) markDisconnected(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.room.Players[playerID]
	if !ok {
		return
	}
	p.Connected = false
	s.room.Players[playerID] = p
	s.broadcastLocked()
}

func (s *RoomSession) kick(hostID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(hostID); err != nil {
		return err
	}
	if _, ok := s.room.Players[playerID]; !ok {
		// Kicking an already-kicked player is a no-op.
		return nil
	}
	// Questions and answers keep the player id by value and stay scoreable.
	delete(s.room.Players, playerID)
	s.broadcastLocked()
	return nil
}

func (s *RoomSession) subscribe() (<-chan domain.Room, func()) {
	ch := make(chan domain.Room, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *RoomSession) broadcastLocked() domain.Room {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// A full buffer means the client is behind; drop its oldest
			// snapshot so it converges on current state.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *RoomSession) snapshot() domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// snapshotLocked deep-copies the room so subscribers never share maps with
// the live state.
func (s *RoomSession) snapshotLocked() domain.Room {
	snap := s.room
	snap.Players = make(map[string]domain.Player, len(s.room.Players))
	for id, p := range s.room.Players {
		snap.Players[id] = p
	}
	snap.Questions = make(map[string]domain.Question, len(s.room.Questions))
	for id, q := range s.room.Questions {
		q.Options = append([]string(nil), q.Options...)
		snap.Questions[id] = q
	}
	snap.Answers = make(map[string]map[string]domain.Answer, len(s.room.Answers))
	for qid, byPlayer := range s.room.Answers {
		inner := make(map[string]domain.Answer, len(byPlayer))
		for pid, a := range byPlayer {
			inner[pid] = a
		}
		snap.Answers[qid] = inner
	}
	if s.room.Quiz != nil {
		quiz := *s.room.Quiz
		quiz.QuestionOrder = append([]string(nil), s.room.Quiz.QuestionOrder...)
		snap.Quiz = &quiz
	}
	return snap
}

func (s *RoomSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelTimerLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// scheduleLocked arms the session's single pending timer. The callback runs
// with the lock held only if the generation still matches, so any later
// transition invalidates it.
func (s *RoomSession) scheduleLocked(d time.Duration, fn func()) {
	s.cancelTimerLocked()
	gen := s.timerGen
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.timerGen != gen {
			return
		}
		fn()
	})
}

func (s *RoomSession) cancelTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
