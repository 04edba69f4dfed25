package http

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quizclash-service/internal/app"
	"quizclash-service/internal/infra/memory"
)

func TestWebSocketGameFlow(t *testing.T) {
	service := app.NewGameService(
		memory.NewRoomStore(),
		app.WithRand(rand.New(rand.NewSource(3))),
		app.WithRevealDelay(time.Hour),
	)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/summary", wsHandler.ServeSummary)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsBase := "ws" + server.URL[len("http"):]

	host, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws?role=host&hostId=h1", nil)
	if err != nil {
		t.Fatalf("host dial: %v", err)
	}
	defer host.Close()

	created := readNext(host, t, "roomCreated")
	code, _ := created["code"].(string)
	if len(code) != 4 {
		t.Fatalf("expected 4-digit room code, got %q", code)
	}

	player, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws?role=player&room="+code+"&playerId=p1&name=Alice", nil)
	if err != nil {
		t.Fatalf("player dial: %v", err)
	}
	defer player.Close()
	readNext(player, t, "joined")

	writeMsg(t, host, "startWriting", map[string]any{
		"writingTimerSeconds":  300,
		"questionTimerSeconds": 20,
	})
	waitForPhase(t, host, "WRITING")

	writeMsg(t, player, "submitQuestion", map[string]any{
		"text":         "Is the sky blue?",
		"type":         "true-false",
		"options":      []string{"True", "False"},
		"correctIndex": 0,
	})
	accepted := readUntil(player, t, "questionAccepted")
	questionID, _ := accepted["questionId"].(string)
	if questionID == "" {
		t.Fatalf("expected question id, got %v", accepted)
	}

	writeMsg(t, host, "endWriting", nil)
	waitForPhase(t, host, "REVIEW")
	writeMsg(t, host, "startQuiz", nil)
	waitForPhase(t, host, "QUIZ")

	// Answers from nonexistent players bounce with an error.
	writeMsg(t, player, "answer", map[string]any{"questionId": "bogus", "answerIndex": 0})
	readUntil(player, t, "error")

	writeMsg(t, host, "showResults", nil)
	update := waitFor(t, host, func(room map[string]any) bool {
		quiz, _ := room["quiz"].(map[string]any)
		showing, _ := quiz["showingResults"].(bool)
		return showing
	})
	players, _ := update["players"].(map[string]any)
	if len(players) != 1 {
		t.Fatalf("expected 1 player in snapshot, got %d", len(players))
	}

	writeMsg(t, host, "nextQuestion", nil)
	waitForPhase(t, host, "RESULTS")

	// Live rooms answer the summary endpoint directly.
	resp, err := http.Get(server.URL + "/summary?room=" + code)
	if err != nil {
		t.Fatalf("summary request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var summary map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary["code"] != code {
		t.Fatalf("summary for wrong room: %v", summary["code"])
	}
}

func TestSummaryNotFound(t *testing.T) {
	service := app.NewGameService(memory.NewRoomStore())
	wsHandler := NewWSHandler(service)
	server := httptest.NewServer(http.HandlerFunc(wsHandler.ServeSummary))
	defer server.Close()

	resp, err := http.Get(server.URL + "?room=0000")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func writeMsg(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) map[string]any {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Payload
}

// readUntil skips intervening room snapshots while waiting for a message type.
func readUntil(conn *websocket.Conn, t *testing.T, expect string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if msg.Type == expect {
			return msg.Payload
		}
	}
	t.Fatalf("never received %s", expect)
	return nil
}

func waitFor(t *testing.T, conn *websocket.Conn, pred func(room map[string]any) bool) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		payload := readUntil(conn, t, "room")
		if pred(payload) {
			return payload
		}
	}
	t.Fatalf("room snapshot condition never met")
	return nil
}

func waitForPhase(t *testing.T, conn *websocket.Conn, phase string) {
	t.Helper()
	waitFor(t, conn, func(room map[string]any) bool {
		settings, _ := room["settings"].(map[string]any)
		return settings["phase"] == phase
	})
}
