package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewSessionStore()
	hub := NewHub()
	settings := app.Settings{QuestionTime: 2 * time.Second, ResultsPause: 50 * time.Millisecond}
	service := app.NewGameService(store, fixedQuestions{}, hub, settings)
	wsHandler := NewWSHandler(service, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

type fixedQuestions struct{}

func (fixedQuestions) RandomQuestions(_ context.Context, n int) ([]domain.Question, error) {
	qs := []domain.Question{
		{Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, Correct: 2},
	}
	if n > len(qs) {
		return nil, domain.ErrBankExhausted
	}
	return qs[:n], nil
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil drains messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
	}
	t.Fatalf("never received %s", want)
	return nil
}

func TestFullGameOverWebSocket(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	send(t, host, "createGame", map[string]any{"numberOfQuestions": 1, "maxPlayers": 4})
	created := readUntil(t, host, "gameCreated")
	code, _ := created["sessionCode"].(string)
	if code == "" || created["isHost"] != true {
		t.Fatalf("unexpected gameCreated payload %+v", created)
	}
	readUntil(t, host, "playersList") // host-only roster

	player := dial(t, server)
	send(t, player, "joinGame", map[string]any{"sessionCode": code, "playerName": "Bob"})
	joined := readUntil(t, player, "gameJoined")
	if joined["isHost"] != false {
		t.Fatalf("expected non-host join, got %+v", joined)
	}

	roster := readUntil(t, host, "playersList")
	players, _ := roster["players"].([]any)
	if len(players) != 2 {
		t.Fatalf("expected 2 players on roster, got %+v", roster)
	}

	send(t, host, "startGame", map[string]any{"sessionCode": code})
	started := readUntil(t, player, "gameStarted")
	question, _ := started["question"].(map[string]any)
	if question["text"] != "What is 2 + 2?" {
		t.Fatalf("unexpected question %+v", question)
	}
	if _, leaked := question["correct"]; leaked {
		t.Fatalf("correct answer index leaked to clients: %+v", question)
	}
	readUntil(t, host, "gameStarted")

	send(t, host, "submitAnswer", map[string]any{"sessionCode": code, "answer": 2})
	send(t, player, "submitAnswer", map[string]any{"sessionCode": code, "answer": 2})

	results := readUntil(t, player, "questionResults")
	if results["correctAnswer"] != float64(2) {
		t.Fatalf("expected correctAnswer 2, got %+v", results)
	}
	scores, _ := results["scores"].([]any)
	if len(scores) != 2 {
		t.Fatalf("expected 2 score entries, got %+v", results)
	}
	for _, entry := range scores {
		if entry.(map[string]any)["score"] != float64(10) {
			t.Fatalf("expected fast-band score 10, got %+v", entry)
		}
	}

	finished := readUntil(t, player, "gameFinished")
	final, _ := finished["finalScores"].([]any)
	if len(final) != 2 {
		t.Fatalf("expected 2 final scores, got %+v", finished)
	}
}

func TestJoinUnknownSessionReturnsError(t *testing.T) {
	server := newTestServer(t)

	conn := dial(t, server)
	send(t, conn, "joinGame", map[string]any{"sessionCode": "NOSUCH", "playerName": "Bob"})
	payload := readUntil(t, conn, "error")
	if payload["message"] != "session not found" {
		t.Fatalf("unexpected error payload %+v", payload)
	}
}

func TestUnsupportedMessageType(t *testing.T) {
	server := newTestServer(t)

	conn := dial(t, server)
	send(t, conn, "bogus", map[string]any{})
	payload := readUntil(t, conn, "error")
	if payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error payload %+v", payload)
	}
}

func TestHostDisconnectEndsGameForPlayers(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	send(t, host, "createGame", map[string]any{"numberOfQuestions": 1, "maxPlayers": 4})
	created := readUntil(t, host, "gameCreated")
	code, _ := created["sessionCode"].(string)

	player := dial(t, server)
	send(t, player, "joinGame", map[string]any{"sessionCode": code, "playerName": "Bob"})
	readUntil(t, player, "gameJoined")

	host.Close()

	ended := readUntil(t, player, "gameEnded")
	if ended["reason"] != "host disconnected" {
		t.Fatalf("unexpected gameEnded payload %+v", ended)
	}
}
