package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"quizclash-service/internal/app"
	"quizclash-service/internal/domain"
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startWritingPayload struct {
	WritingTimerSeconds  int `json:"writingTimerSeconds"`
	QuestionTimerSeconds int `json:"questionTimerSeconds"`
	MaxQuestions         int `json:"maxQuestions"`
}

type questionPayload struct {
	Text         string   `json:"text"`
	Type         string   `json:"type"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

type answerPayload struct {
	QuestionID  string `json:"questionId"`
	AnswerIndex int    `json:"answerIndex"`
}

type playerIDPayload struct {
	PlayerID string `json:"playerId"`
}

type questionIDPayload struct {
	QuestionID string `json:"questionId"`
}

type roomCreatedPayload struct {
	Code string `json:"code"`
}

type questionAcceptedPayload struct {
	QuestionID string `json:"questionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the game.
// Hosts connect with role=host and get a fresh room; players connect with
// role=player plus the room code and their identity.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("role") {
	case "host":
		h.serveHost(w, r)
	case "player":
		h.servePlayer(w, r)
	default:
		http.Error(w, "role must be host or player", http.StatusBadRequest)
	}
}

func (h *WSHandler) serveHost(w http.ResponseWriter, r *http.Request) {
	hostID := r.URL.Query().Get("hostId")
	if hostID == "" {
		http.Error(w, "missing hostId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// An existing code means the host is re-attaching after a drop.
	code := r.URL.Query().Get("room")
	if code == "" {
		code, err = h.service.CreateRoom(hostID)
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
	} else if _, err := h.service.Snapshot(code); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send, cleanup, ok := h.startPumps(conn, code)
	if !ok {
		return
	}
	defer cleanup()

	send <- outboundMessage[any]{Type: "roomCreated", Payload: roomCreatedPayload{Code: code}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		h.handleHostMessage(send, code, hostID, inbound)
	}
}

func (h *WSHandler) handleHostMessage(send chan<- outboundMessage[any], code, hostID string, inbound inboundMessage) {
	var err error
	switch inbound.Type {
	case "startWriting":
		var p startWritingPayload
		if err = json.Unmarshal(inbound.Payload, &p); err == nil {
			err = h.service.StartWriting(code, hostID, p.WritingTimerSeconds, p.QuestionTimerSeconds, p.MaxQuestions)
		}
	case "endWriting":
		err = h.service.EndWritingEarly(code, hostID)
	case "deleteQuestion":
		var p questionIDPayload
		if err = json.Unmarshal(inbound.Payload, &p); err == nil {
			err = h.service.DeleteQuestion(code, hostID, p.QuestionID)
		}
	case "startQuiz":
		err = h.service.StartQuiz(code, hostID)
	case "showResults":
		err = h.service.ForceResults(code, hostID)
	case "nextQuestion":
		err = h.service.NextQuestion(code, hostID)
	case "advanceReveal":
		err = h.service.AdvanceRevealStage(code, hostID)
	case "kickPlayer":
		var p playerIDPayload
		if err = json.Unmarshal(inbound.Payload, &p); err == nil {
			err = h.service.KickPlayer(code, hostID, p.PlayerID)
		}
	case "deleteRoom":
		err = h.service.DeleteRoom(code, hostID)
	default:
		err = errors.New("unsupported message type")
	}
	if err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
}

func (h *WSHandler) servePlayer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("room")
	playerID := query.Get("playerId")
	name := query.Get("name")
	if code == "" || playerID == "" || name == "" {
		http.Error(w, "missing room, playerId, or name", http.StatusBadRequest)
		return
	}
	avatar := 0
	if raw := query.Get("avatar"); raw != "" {
		avatar, _ = strconv.Atoi(raw)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.service.JoinRoom(code, playerID, name, avatar)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send, cleanup, ok := h.startPumps(conn, code)
	if !ok {
		return
	}
	defer cleanup()
	defer h.service.MarkDisconnected(code, playerID)

	send <- outboundMessage[any]{Type: "joined", Payload: joined}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		h.handlePlayerMessage(send, code, playerID, inbound)
	}
}

func (h *WSHandler) handlePlayerMessage(send chan<- outboundMessage[any], code, playerID string, inbound inboundMessage) {
	switch inbound.Type {
	case "submitQuestion":
		var p questionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid question payload"}}
			return
		}
		id, err := h.service.SubmitQuestion(code, playerID, domain.Question{
			Text:         p.Text,
			Type:         domain.QuestionType(p.Type),
			Options:      p.Options,
			CorrectIndex: p.CorrectIndex,
		})
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		send <- outboundMessage[any]{Type: "questionAccepted", Payload: questionAcceptedPayload{QuestionID: id}}
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
			return
		}
		if err := h.service.SubmitAnswer(code, playerID, p.QuestionID, p.AnswerIndex); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		send <- outboundMessage[any]{Type: "answerAccepted", Payload: answerPayload{QuestionID: p.QuestionID, AnswerIndex: p.AnswerIndex}}
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}

// startPumps subscribes to the room and spins up the writer and update
// forwarding goroutines; the returned cleanup tears both down. Writes go
// through a single goroutine so the connection never sees concurrent writes.
func (h *WSHandler) startPumps(conn *websocket.Conn, code string) (chan outboundMessage[any], func(), bool) {
	updates, cancel, err := h.service.Subscribe(code)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return nil, nil, false
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "room", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	cleanup := func() {
		cancel()
		close(closeSignals)
		<-updatesDone
		close(send)
		<-writerDone
	}
	return send, cleanup, true
}

// ServeSummary reports a game's outcome over plain HTTP: live rooms are
// summarized in place, finished ones come from the archive.
func (h *WSHandler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("room")
	if code == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}
	summary, err := h.service.Summary(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrSummaryNotFound) || errors.Is(err, domain.ErrRoomNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}
