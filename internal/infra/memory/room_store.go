package memory

import (
	"sync"

	"quizclash-service/internal/app"
)

// RoomStore is an in-memory implementation of app.RoomRepository.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*app.RoomSession
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*app.RoomSession),
	}
}

// PutIfAbsent claims a code for the session; it reports false if the code is
// already taken so the caller can retry with a fresh one.
func (s *RoomStore) PutIfAbsent(code string, session *app.RoomSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; ok {
		return false
	}
	s.rooms[code] = session
	return true
}

func (s *RoomStore) Get(code string) (*app.RoomSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.rooms[code]
	return session, ok
}

func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}
