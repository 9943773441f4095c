package domain

// Status tracks where a session is in its lifecycle.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Player is a connected participant in a session. ConnID is the transport
// connection handle; there is no identity beyond it.
type Player struct {
	ConnID   string
	Name     string
	IsHost   bool
	Score    int
	Answered bool
}

// Question is a single trivia item. Correct is a 1-based index into Options
// and must never be serialized to clients.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct int      `json:"correct"`
}

// QuestionView is the client-facing shape of a question: text and options
// only, with the correct index stripped.
type QuestionView struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// View strips the correct index for broadcast.
func (q Question) View() QuestionView {
	return QuestionView{Text: q.Text, Options: q.Options}
}

// PlayerInfo is the roster entry broadcast to a session's group.
type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

// ScoreEntry pairs a display name with a running total.
type ScoreEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Outbound event payloads. Event names live next to the engine that emits
// them; these are the wire shapes.

type GameCreated struct {
	SessionCode string `json:"sessionCode,omitempty"`
	IsHost      bool   `json:"isHost"`
}

type GameJoined struct {
	SessionCode string `json:"sessionCode"`
	IsHost      bool   `json:"isHost"`
}

type PlayersList struct {
	Players []PlayerInfo `json:"players"`
}

type QuestionPrompt struct {
	Question  QuestionView `json:"question"`
	TimeLimit int          `json:"timeLimit"`
}

type QuestionResults struct {
	CorrectAnswer int          `json:"correctAnswer"`
	Scores        []ScoreEntry `json:"scores"`
}

type GameFinished struct {
	FinalScores []ScoreEntry `json:"finalScores"`
}

type GameEnded struct {
	Reason string `json:"reason"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}
