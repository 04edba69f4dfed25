package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code does not resolve to an active room.
	ErrRoomNotFound = errors.New("game not found")
	// ErrPlayerNotFound is returned when a player id is unknown to the room.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrQuestionNotFound indicates a question id does not exist in the room.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNotHost is returned when a host-only action carries the wrong host id.
	ErrNotHost = errors.New("action requires the room host")
	// ErrWrongPhase is returned when an action is attempted outside its phase.
	ErrWrongPhase = errors.New("action not allowed in current phase")
	// ErrInvalidName rejects empty or over-length display names.
	ErrInvalidName = errors.New("name must be 1-20 characters")
	// ErrInvalidRoomCode rejects codes that are not 4 digits.
	ErrInvalidRoomCode = errors.New("room code must be 4 digits")
	// ErrAvatarTaken is returned when the chosen avatar is held by a connected player.
	ErrAvatarTaken = errors.New("avatar already taken")
	// ErrInvalidAvatar rejects avatar ids outside the catalog.
	ErrInvalidAvatar = errors.New("avatar id out of range")
	// ErrInvalidQuestion rejects malformed question submissions.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrDuplicateAnswer is returned when a player answers the same question twice.
	ErrDuplicateAnswer = errors.New("answer already submitted")
	// ErrNoPlayers guards starting the writing phase with an empty lobby.
	ErrNoPlayers = errors.New("at least one connected player required")
	// ErrNoQuestions guards starting a quiz with nothing to ask.
	ErrNoQuestions = errors.New("no questions submitted")
	// ErrSummaryNotFound indicates no archived summary exists for a code.
	ErrSummaryNotFound = errors.New("game summary not found")
)
