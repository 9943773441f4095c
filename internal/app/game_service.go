package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"trivia-session-service/internal/domain"
)

// SessionRepository abstracts how live sessions are stored (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Create(session *Session) error
	Get(code string) (*Session, bool)
	Delete(code string)
	ForEach(fn func(*Session))
}

// QuestionRepository supplies n distinct questions per call (from cache/backing store).
type QuestionRepository interface {
	RandomQuestions(ctx context.Context, n int) ([]domain.Question, error)
}

// Gateway delivers named events to a single connection or to every
// connection associated with a session code. Implementations must not block
// the caller on slow clients.
type Gateway interface {
	SendTo(connID, event string, payload any)
	SendToGroup(code, event string, payload any)
	JoinGroup(code, connID string)
}

// Outbound event names.
const (
	EventGameCreated     = "gameCreated"
	EventGameJoined      = "gameJoined"
	EventPlayersList     = "playersList"
	EventGameStarted     = "gameStarted"
	EventNextQuestion    = "nextQuestion"
	EventQuestionResults = "questionResults"
	EventGameFinished    = "gameFinished"
	EventGameEnded       = "gameEnded"
	EventError           = "error"
)

// Scoring bands: full points within the first half of the time budget,
// partial within the second half, minimal once the budget is technically
// spent but the round still open.
const (
	pointsFast = 10
	pointsSlow = 5
	pointsLate = 2
)

const maxCodeAttempts = 5

// Settings carries the per-deployment timing knobs.
type Settings struct {
	QuestionTime time.Duration
	ResultsPause time.Duration
	CodeLength   int
}

// DefaultSettings mirrors the 10s question / 3s results rhythm of the game.
func DefaultSettings() Settings {
	return Settings{
		QuestionTime: 10 * time.Second,
		ResultsPause: 3 * time.Second,
		CodeLength:   defaultCodeLength,
	}
}

// GameService is the session engine: it owns session lifecycle, question
// rotation, deadlines, and scoring. Broadcasts go out through the Gateway;
// direct replies are returned to the transport layer.
type GameService struct {
	sessions  SessionRepository
	questions QuestionRepository
	gateway   Gateway
	settings  Settings
	now       func() time.Time
}

func NewGameService(sessions SessionRepository, questions QuestionRepository, gateway Gateway, settings Settings) *GameService {
	if settings.QuestionTime <= 0 {
		settings.QuestionTime = DefaultSettings().QuestionTime
	}
	if settings.ResultsPause <= 0 {
		settings.ResultsPause = DefaultSettings().ResultsPause
	}
	return &GameService{
		sessions:  sessions,
		questions: questions,
		gateway:   gateway,
		settings:  settings,
		now:       time.Now,
	}
}

// NewGameServiceWithClock is test-only for deterministic latency bands.
func NewGameServiceWithClock(sessions SessionRepository, questions QuestionRepository, gateway Gateway, settings Settings, now func() time.Time) *GameService {
	svc := NewGameService(sessions, questions, gateway, settings)
	svc.now = now
	return svc
}

// CreateGame opens a fresh waiting session with the caller as host. The host
// is seated immediately as the first player and told the code; the roster
// broadcast follows.
func (g *GameService) CreateGame(_ context.Context, connID string, numQuestions, maxPlayers int) error {
	if maxPlayers == 0 {
		maxPlayers = 4
	}
	if numQuestions < 1 || maxPlayers < 2 || maxPlayers > 10 {
		return domain.ErrInvalidConfig
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := newSessionCode(g.settings.CodeLength)
		if err != nil {
			return fmt.Errorf("generate session code: %w", err)
		}
		session := newSession(code, connID, numQuestions, maxPlayers)
		session.players = append(session.players, &domain.Player{
			ConnID: connID,
			Name:   "Host",
			IsHost: true,
		})
		if err := g.sessions.Create(session); err != nil {
			if err == domain.ErrCodeTaken {
				continue
			}
			return err
		}

		g.gateway.JoinGroup(code, connID)
		g.gateway.SendTo(connID, EventGameCreated, domain.GameCreated{SessionCode: code, IsHost: true})
		session.mu.Lock()
		roster := session.rosterLocked()
		session.mu.Unlock()
		g.gateway.SendToGroup(code, EventPlayersList, roster)
		return nil
	}
	return fmt.Errorf("could not allocate a unique session code after %d attempts", maxCodeAttempts)
}

// JoinGame seats a player in a waiting session and broadcasts the new roster.
func (g *GameService) JoinGame(_ context.Context, connID, code, playerName string) error {
	session, ok := g.sessions.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.destroyed {
		return domain.ErrSessionNotFound
	}
	if session.status != domain.StatusWaiting {
		return domain.ErrGameAlreadyStarted
	}
	if session.playerLocked(connID) == nil {
		if len(session.players) >= session.maxPlayers {
			return domain.ErrSessionFull
		}
		session.players = append(session.players, &domain.Player{
			ConnID: connID,
			Name:   playerName,
		})
	}

	g.gateway.JoinGroup(code, connID)
	g.gateway.SendTo(connID, EventGameJoined, domain.GameJoined{SessionCode: code, IsHost: connID == session.hostConnID})
	g.gateway.SendToGroup(code, EventPlayersList, session.rosterLocked())
	return nil
}

// JoinRoom re-attaches a connection to a session's broadcast group without
// touching the player list, telling the caller whether it is the host.
// Reloads against dead codes are silently ignored.
func (g *GameService) JoinRoom(_ context.Context, connID, code string) {
	session, ok := g.sessions.Get(code)
	if !ok {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.destroyed {
		return
	}

	g.gateway.JoinGroup(code, connID)
	g.gateway.SendTo(connID, EventGameCreated, domain.GameCreated{IsHost: connID == session.hostConnID})
	g.gateway.SendToGroup(code, EventPlayersList, session.rosterLocked())
}

// StartGame fetches the question sequence and opens the first round. Only
// the host may start, only from waiting, and only with at least two players
// seated. The fetch runs outside the session lock; the starting guard keeps
// a racing second StartGame from double-initializing.
func (g *GameService) StartGame(ctx context.Context, connID, code string) error {
	session, ok := g.sessions.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}

	session.mu.Lock()
	switch {
	case session.destroyed:
		session.mu.Unlock()
		return domain.ErrSessionNotFound
	case session.hostConnID != connID:
		session.mu.Unlock()
		return domain.ErrNotHost
	case session.status != domain.StatusWaiting || session.starting:
		session.mu.Unlock()
		return domain.ErrGameAlreadyStarted
	case len(session.players) < 2:
		session.mu.Unlock()
		return domain.ErrNotEnoughPlayers
	}
	session.starting = true
	n := session.numQuestions
	session.mu.Unlock()

	questions, err := g.questions.RandomQuestions(ctx, n)

	session.mu.Lock()
	defer session.mu.Unlock()
	session.starting = false
	if session.destroyed {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		// The session stays in waiting; the host can retry.
		return fmt.Errorf("load questions: %w", err)
	}
	if session.status != domain.StatusWaiting {
		return domain.ErrGameAlreadyStarted
	}

	session.questions = questions
	session.current = 0
	session.status = domain.StatusPlaying
	session.phase = phaseQuestion
	session.round = 1
	session.startedAt = g.now()
	for _, p := range session.players {
		p.Answered = false
	}

	g.gateway.SendToGroup(code, EventGameStarted, g.promptLocked(session))
	g.armDeadlineLocked(session)
	return nil
}

// SubmitAnswer records one answer for the active round. Everything that can
// be wrong here — unknown session, wrong state, unknown player, duplicate
// submit — is silently absorbed so retries and double clicks stay harmless.
func (g *GameService) SubmitAnswer(_ context.Context, connID, code string, answer int) {
	session, ok := g.sessions.Get(code)
	if !ok {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.destroyed || session.status != domain.StatusPlaying || session.phase != phaseQuestion {
		return
	}
	player := session.playerLocked(connID)
	if player == nil || player.Answered {
		return
	}

	player.Answered = true
	question := session.questions[session.current]
	if answer == question.Correct {
		player.Score += g.pointsFor(g.now().Sub(session.startedAt))
	}

	if session.allAnsweredLocked() {
		g.closeRoundLocked(session)
	}
}

// Disconnect sweeps every session for the departing connection. A host
// leaving tears the whole session down; anyone else is removed from the
// roster, and the round is re-checked so their missing answer cannot wedge
// the all-answered condition.
func (g *GameService) Disconnect(connID string) {
	g.sessions.ForEach(func(session *Session) {
		session.mu.Lock()
		if session.destroyed {
			session.mu.Unlock()
			return
		}

		if session.hostConnID == connID {
			session.destroyed = true
			session.stopTimersLocked()
			code := session.code
			session.mu.Unlock()
			g.gateway.SendToGroup(code, EventGameEnded, domain.GameEnded{Reason: "host disconnected"})
			g.sessions.Delete(code)
			return
		}

		idx := -1
		for i, p := range session.players {
			if p.ConnID == connID {
				idx = i
				break
			}
		}
		if idx < 0 {
			session.mu.Unlock()
			return
		}
		session.players = append(session.players[:idx], session.players[idx+1:]...)

		g.gateway.SendToGroup(session.code, EventPlayersList, session.rosterLocked())
		if session.status == domain.StatusPlaying && session.phase == phaseQuestion && session.allAnsweredLocked() {
			g.closeRoundLocked(session)
		}
		session.mu.Unlock()
	})
}

// pointsFor maps answer latency to the decaying score schedule.
func (g *GameService) pointsFor(elapsed time.Duration) int {
	switch {
	case elapsed <= g.settings.QuestionTime/2:
		return pointsFast
	case elapsed <= g.settings.QuestionTime:
		return pointsSlow
	default:
		return pointsLate
	}
}

func (g *GameService) promptLocked(session *Session) domain.QuestionPrompt {
	return domain.QuestionPrompt{
		Question:  session.questions[session.current].View(),
		TimeLimit: int(g.settings.QuestionTime / time.Second),
	}
}

func (g *GameService) armDeadlineLocked(session *Session) {
	code, round := session.code, session.round
	session.deadline = time.AfterFunc(g.settings.QuestionTime, func() {
		g.onDeadline(code, round)
	})
}

// onDeadline fires when the time budget runs out before everyone answered.
// Any player still pending is scored as a guaranteed-wrong sentinel answer.
// The round counter check makes a stale firing (round already closed by
// all-answered, or session advanced/destroyed) a no-op.
func (g *GameService) onDeadline(code string, round int) {
	session, ok := g.sessions.Get(code)
	if !ok {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.destroyed || session.status != domain.StatusPlaying ||
		session.phase != phaseQuestion || session.round != round {
		return
	}

	for _, p := range session.players {
		p.Answered = true
	}
	g.closeRoundLocked(session)
}

// closeRoundLocked ends the active round exactly once: it cancels the
// deadline timer, broadcasts results, and schedules the advance after the
// display pause.
func (g *GameService) closeRoundLocked(session *Session) {
	session.phase = phaseResults
	if session.deadline != nil {
		session.deadline.Stop()
		session.deadline = nil
	}

	question := session.questions[session.current]
	g.gateway.SendToGroup(session.code, EventQuestionResults, domain.QuestionResults{
		CorrectAnswer: question.Correct,
		Scores:        session.scoresLocked(),
	})

	code, round := session.code, session.round
	session.pause = time.AfterFunc(g.settings.ResultsPause, func() {
		g.advance(code, round)
	})
}

// advance moves past a closed round: either the next question goes live or
// the session finishes with sorted standings.
func (g *GameService) advance(code string, round int) {
	session, ok := g.sessions.Get(code)
	if !ok {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.destroyed || session.status != domain.StatusPlaying ||
		session.phase != phaseResults || session.round != round {
		return
	}
	session.pause = nil

	session.current++
	if session.current >= len(session.questions) {
		session.status = domain.StatusFinished
		session.phase = phaseLobby
		g.gateway.SendToGroup(code, EventGameFinished, domain.GameFinished{
			FinalScores: finalStandings(session.scoresLocked()),
		})
		return
	}

	for _, p := range session.players {
		p.Answered = false
	}
	session.startedAt = g.now()
	session.round++
	session.phase = phaseQuestion

	g.gateway.SendToGroup(code, EventNextQuestion, g.promptLocked(session))
	g.armDeadlineLocked(session)
}

// finalStandings sorts by score descending; the stable sort keeps join
// order for ties.
func finalStandings(scores []domain.ScoreEntry) []domain.ScoreEntry {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}
