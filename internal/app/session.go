package app

import (
	"sync"
	"time"

	"trivia-session-service/internal/domain"
)

// phase subdivides StatusPlaying: a round is either collecting answers or
// showing results before the next question.
type phase int

const (
	phaseLobby phase = iota
	phaseQuestion
	phaseResults
)

// Session is one running game room. All fields behind mu; the engine holds
// the lock for the duration of each mutation and never across the question
// fetch. The round counter increments every time a question goes live so
// that stale timer callbacks can recognize themselves and bail out.
type Session struct {
	mu sync.Mutex

	code         string
	hostConnID   string
	players      []*domain.Player
	numQuestions int
	maxPlayers   int

	status    domain.Status
	questions []domain.Question
	current   int
	startedAt time.Time

	round     int
	phase     phase
	starting  bool
	destroyed bool

	deadline *time.Timer
	pause    *time.Timer
}

// NewSession is exported for infrastructure layers and their tests that
// need to seed sessions without going through CreateGame.
func NewSession(code, hostConnID string, numQuestions, maxPlayers int) *Session {
	return newSession(code, hostConnID, numQuestions, maxPlayers)
}

func newSession(code, hostConnID string, numQuestions, maxPlayers int) *Session {
	return &Session{
		code:         code,
		hostConnID:   hostConnID,
		numQuestions: numQuestions,
		maxPlayers:   maxPlayers,
		status:       domain.StatusWaiting,
		phase:        phaseLobby,
	}
}

// Code returns the immutable session code.
func (s *Session) Code() string {
	return s.code
}

func (s *Session) playerLocked(connID string) *domain.Player {
	for _, p := range s.players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (s *Session) allAnsweredLocked() bool {
	if len(s.players) == 0 {
		return false
	}
	for _, p := range s.players {
		if !p.Answered {
			return false
		}
	}
	return true
}

func (s *Session) rosterLocked() domain.PlayersList {
	players := make([]domain.PlayerInfo, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, domain.PlayerInfo{ID: p.ConnID, Name: p.Name, IsHost: p.IsHost})
	}
	return domain.PlayersList{Players: players}
}

// scoresLocked snapshots scores in join order.
func (s *Session) scoresLocked() []domain.ScoreEntry {
	scores := make([]domain.ScoreEntry, 0, len(s.players))
	for _, p := range s.players {
		scores = append(scores, domain.ScoreEntry{Name: p.Name, Score: p.Score})
	}
	return scores
}

func (s *Session) stopTimersLocked() {
	if s.deadline != nil {
		s.deadline.Stop()
		s.deadline = nil
	}
	if s.pause != nil {
		s.pause.Stop()
		s.pause = nil
	}
}
