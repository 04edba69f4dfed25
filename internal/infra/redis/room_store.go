package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizclash-service/internal/app"
)

// RoomStore is a Redis-aware implementation of app.RoomRepository.
// Notes:
//   - Sessions themselves stay in a local map so the in-process broadcast and
//     timer machinery keeps working; each room has a single authoritative
//     process.
//   - Redis marks room-code liveness, which also reserves codes against other
//     instances creating the same code.
type RoomStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.RoomSession
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.RoomSession),
	}
}

func (s *RoomStore) PutIfAbsent(code string, session *app.RoomSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[code]; ok {
		return false
	}
	// SETNX reserves the code cluster-wide; a local-only miss with a remote
	// holder means another instance owns this code.
	ok, err := s.client.SetNX(context.Background(), s.key(code), "1", s.ttl).Result()
	if err == nil && !ok {
		return false
	}
	s.sessions[code] = session
	return true
}

func (s *RoomStore) Get(code string) (*app.RoomSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[code]; !ok {
		return
	}
	delete(s.sessions, code)
	_ = s.client.Del(context.Background(), s.key(code)).Err()
}

func (s *RoomStore) key(code string) string {
	return "game:room:" + code
}
