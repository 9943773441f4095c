package http

import (
	"encoding/json"
	"log"
	"net/http"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler upgrades HTTP requests to websockets and dispatches inbound
// events to the game engine. Error results come back to the offending
// connection as error events; broadcasts flow through the hub.
type WSHandler struct {
	service  *app.GameService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
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

type createGamePayload struct {
	NumberOfQuestions int `json:"numberOfQuestions"`
	MaxPlayers        int `json:"maxPlayers"`
}

type joinGamePayload struct {
	SessionCode string `json:"sessionCode"`
	PlayerName  string `json:"playerName"`
}

type roomPayload struct {
	SessionCode string `json:"sessionCode"`
}

type answerPayload struct {
	SessionCode string `json:"sessionCode"`
	Answer      int    `json:"answer"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := h.hub.Register(conn)
	defer func() {
		h.service.Disconnect(connID)
		h.hub.Unregister(connID)
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "createGame":
			var payload createGamePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(connID, "invalid createGame payload")
				continue
			}
			if err := h.service.CreateGame(r.Context(), connID, payload.NumberOfQuestions, payload.MaxPlayers); err != nil {
				h.sendError(connID, err.Error())
			}

		case "joinGame":
			var payload joinGamePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(connID, "invalid joinGame payload")
				continue
			}
			if err := h.service.JoinGame(r.Context(), connID, payload.SessionCode, payload.PlayerName); err != nil {
				h.sendError(connID, err.Error())
			}

		case "joinRoom":
			var payload roomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(connID, "invalid joinRoom payload")
				continue
			}
			h.service.JoinRoom(r.Context(), connID, payload.SessionCode)

		case "startGame":
			var payload roomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(connID, "invalid startGame payload")
				continue
			}
			if err := h.service.StartGame(r.Context(), connID, payload.SessionCode); err != nil {
				h.sendError(connID, err.Error())
			}

		case "submitAnswer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				// Malformed submits are absorbed like duplicate ones.
				continue
			}
			h.service.SubmitAnswer(r.Context(), connID, payload.SessionCode, payload.Answer)

		default:
			h.sendError(connID, "unsupported message type")
		}
	}
}

func (h *WSHandler) sendError(connID, message string) {
	h.hub.SendTo(connID, app.EventError, domain.ErrorMessage{Message: message})
}
