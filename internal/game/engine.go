// Package game implements the trivia session engine: the player registry,
// the round barrier state machine, and scoring.
package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"suquid-trivia-server/internal/domain"
	"suquid-trivia-server/internal/wire"
)

// State is the engine's position in the session state machine.
type State int

const (
	// StateIdle means no session is running; Start is accepted.
	StateIdle State = iota
	// StateStarting covers the window between the start command and the
	// first question broadcast.
	StateStarting
	// StateAwaitingAnswers means a question is out and the barrier is open.
	StateAwaitingAnswers
	// StateResolving covers scoring and the settling delay before the next
	// question.
	StateResolving
	// StateGameOver is the transient teardown step before returning to Idle.
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateAwaitingAnswers:
		return "awaiting_answers"
	case StateResolving:
		return "resolving"
	case StateGameOver:
		return "game_over"
	}
	return "unknown"
}

// Config holds the engine's timing knobs.
type Config struct {
	// StartDelay is the pause between GAME_START and the first question,
	// giving clients time to switch into game mode.
	StartDelay time.Duration
	// RoundDelay is the settling pause between a round's results and the
	// next question.
	RoundDelay time.Duration
}

const (
	defaultStartDelay = 500 * time.Millisecond
	defaultRoundDelay = 2 * time.Second
)

// Engine drives trivia sessions: it collects exactly one answer per live
// player each round, resolves the round once everyone has answered (or a
// disconnect completes the barrier), scores it, and advances until the
// requested rounds are played or attrition drops the lobby below two
// players.
//
// One mutex guards every read-modify-write across registry membership and
// round state, so a submit racing a disconnect at the barrier threshold can
// never double-resolve a round.
type Engine struct {
	log        zerolog.Logger
	clock      clockwork.Clock
	registry   *Registry
	bus        *EventBus
	startDelay time.Duration
	roundDelay time.Duration

	mu          sync.Mutex
	state       State
	sessionID   uuid.UUID
	epoch       uint64
	questions   []domain.Question
	roundsTotal int
	qIndex      int
	answers     map[string]string
	arrival     []string
	scores      map[string]int
}

func NewEngine(registry *Registry, bus *EventBus, clock clockwork.Clock, cfg Config, log zerolog.Logger) *Engine {
	if cfg.StartDelay <= 0 {
		cfg.StartDelay = defaultStartDelay
	}
	if cfg.RoundDelay <= 0 {
		cfg.RoundDelay = defaultRoundDelay
	}
	return &Engine{
		log:        log.With().Str("component", "engine").Logger(),
		clock:      clock,
		registry:   registry,
		bus:        bus,
		startDelay: cfg.StartDelay,
		roundDelay: cfg.RoundDelay,
		state:      StateIdle,
		answers:    make(map[string]string),
	}
}

// State returns the current state machine position.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LoadQuestions replaces the question list used by future sessions. It does
// not affect a running session, which copied nothing and reads by index from
// the list captured at start.
func (e *Engine) LoadQuestions(questions []domain.Question) {
	e.mu.Lock()
	e.questions = questions
	e.mu.Unlock()
	e.log.Info().Int("count", len(questions)).Msg("questions loaded")
}

// QuestionCount reports how many questions are available to a new session.
func (e *Engine) QuestionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.questions)
}

// RegisterPlayer authenticates a connection under username. Registration
// shares the engine's critical section so the live player count seen by the
// barrier is always consistent.
func (e *Engine) RegisterPlayer(username string, conn Conn) error {
	e.mu.Lock()
	err := e.registry.Register(username, conn)
	players := e.registry.Snapshot()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.log.Info().Str("player", username).Str("addr", conn.RemoteAddr()).Msg("player registered")
	e.bus.Publish(Event{Type: EventPlayerJoined, Username: username, Players: players})
	return nil
}

// Start begins a session of the requested number of rounds. It validates the
// start gates, seeds every registered player's score at zero, broadcasts
// GAME_START, and schedules the first question after the start delay.
func (e *Engine) Start(rounds int) error {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return domain.ErrGameInProgress
	}
	if len(e.questions) == 0 {
		e.mu.Unlock()
		return domain.ErrNoQuestionsLoaded
	}
	if rounds < 1 || rounds > len(e.questions) {
		e.mu.Unlock()
		return domain.ErrInvalidRoundCount
	}
	players := e.registry.Snapshot()
	if len(players) < 2 {
		e.mu.Unlock()
		return domain.ErrInsufficientPlayers
	}

	e.state = StateStarting
	e.sessionID = uuid.New()
	e.epoch++
	e.roundsTotal = rounds
	e.qIndex = 0
	e.answers = make(map[string]string)
	e.arrival = nil
	e.scores = make(map[string]int, len(players))
	for _, username := range players {
		e.scores[username] = 0
	}
	epoch := e.epoch
	session := e.sessionID
	e.mu.Unlock()

	e.log.Info().
		Str("session", session.String()).
		Int("rounds", rounds).
		Strs("players", players).
		Msg("game started")
	e.registry.Broadcast(wire.GameStart{})
	e.bus.Publish(Event{Type: EventGameStarted, Rounds: rounds, Players: players})
	e.scheduleQuestion(epoch, 0, e.startDelay)
	return nil
}

// SubmitAnswer records one answer for the current round. It is silently
// ignored unless a question is open, the player is registered, and the
// player has not answered this round. When the recorded answer count reaches
// the live player count the barrier fires and the round resolves.
func (e *Engine) SubmitAnswer(username, option string) {
	var post func()

	e.mu.Lock()
	if e.state != StateAwaitingAnswers {
		e.mu.Unlock()
		return
	}
	if _, answered := e.answers[username]; answered {
		e.mu.Unlock()
		return
	}
	if !e.registry.Has(username) {
		e.mu.Unlock()
		return
	}
	e.answers[username] = option
	e.arrival = append(e.arrival, username)
	e.log.Debug().Str("player", username).Str("answer", option).Int("round", e.qIndex+1).Msg("answer recorded")
	if len(e.answers) == e.registry.Count() {
		post = e.resolveLocked()
	}
	e.mu.Unlock()

	if post != nil {
		post()
	}
}

// HandleDisconnect removes a departed player and repairs the barrier. It
// unregisters the connection, notifies the remaining players, and if a
// session is active scrubs the player from scores, answers, and arrival
// order. A disconnect can itself complete a stalled round; dropping below
// two live players ends the game outright. Safe to call more than once per
// connection: the second call finds nothing to unregister and returns.
func (e *Engine) HandleDisconnect(username string) {
	var posts []func()

	e.mu.Lock()
	if !e.registry.Unregister(username) {
		e.mu.Unlock()
		return
	}
	active := e.state != StateIdle
	if active {
		delete(e.scores, username)
		delete(e.answers, username)
		e.arrival = removeName(e.arrival, username)

		if e.registry.Count() < 2 {
			e.log.Info().Str("player", username).Msg("too few players remain, ending game")
			posts = append(posts, e.gameOverLocked())
		} else if e.state == StateAwaitingAnswers && len(e.answers) > 0 && len(e.answers) == e.registry.Count() {
			e.log.Info().Str("player", username).Msg("disconnect completed the round barrier")
			posts = append(posts, e.resolveLocked())
		}
	}
	players := e.registry.Snapshot()
	e.mu.Unlock()

	e.log.Info().Str("player", username).Msg("player disconnected")
	e.registry.Broadcast(wire.Disconnect{Username: username})
	e.bus.Publish(Event{Type: EventPlayerLeft, Username: username, Players: players})
	for _, post := range posts {
		post()
	}
}

// scheduleQuestion arms the deferred broadcast of the question at index idx.
// The callback checks the session epoch and round index before acting, so a
// timer that outlives its session (game over or disconnect-triggered
// resolution during the delay) no-ops safely.
func (e *Engine) scheduleQuestion(epoch uint64, idx int, delay time.Duration) {
	e.clock.AfterFunc(delay, func() {
		e.broadcastQuestion(epoch, idx)
	})
}

func (e *Engine) broadcastQuestion(epoch uint64, idx int) {
	e.mu.Lock()
	stale := e.epoch != epoch || e.qIndex != idx ||
		(e.state != StateStarting && e.state != StateResolving)
	if stale {
		e.mu.Unlock()
		return
	}
	question := e.questions[idx]
	e.state = StateAwaitingAnswers
	rounds := e.roundsTotal
	e.mu.Unlock()

	e.log.Info().Int("round", idx+1).Int("rounds", rounds).Str("prompt", question.Prompt).Msg("question broadcast")
	e.registry.Broadcast(wire.Question{Prompt: question.Prompt, Options: question.Options})
	e.bus.Publish(Event{Type: EventQuestion, Round: idx + 1, Rounds: rounds, Question: &question})
}

// resolveLocked scores the finished round and prepares the follow-up work.
// It must be called with e.mu held; the returned closure performs the sends
// and event publishing and must be invoked after the lock is released.
func (e *Engine) resolveLocked() func() {
	e.state = StateResolving
	question := e.questions[e.qIndex]
	live := e.registry.Count()
	points := ScoreRound(e.scores, e.answers, e.arrival, question.Answer, live)
	board := RankScoreboard(e.scores)
	round := e.qIndex + 1

	type personalScore struct {
		username string
		msg      wire.Score
	}
	results := make([]personalScore, 0, live)
	for _, username := range e.registry.Snapshot() {
		results = append(results, personalScore{
			username: username,
			msg: wire.Score{
				Correct:    e.answers[username] == question.Answer,
				Points:     points[username],
				Total:      e.scores[username],
				Scoreboard: board,
			},
		})
	}

	e.answers = make(map[string]string)
	e.arrival = nil
	e.qIndex++

	var after func()
	if e.qIndex < e.roundsTotal {
		epoch, idx, delay := e.epoch, e.qIndex, e.roundDelay
		after = func() { e.scheduleQuestion(epoch, idx, delay) }
	} else {
		after = e.gameOverLocked()
	}

	e.log.Info().Int("round", round).Str("correct", question.Answer).Msg("round resolved")
	return func() {
		for _, result := range results {
			e.registry.SendTo(result.username, result.msg)
		}
		e.bus.Publish(Event{Type: EventRoundResolved, Round: round, Scoreboard: board})
		after()
	}
}

// gameOverLocked tears the session down and returns the closure that
// broadcasts GAME_OVER. Must be called with e.mu held. Bumping the epoch
// invalidates any question broadcast still pending on the clock.
func (e *Engine) gameOverLocked() func() {
	board := RankScoreboard(e.scores)
	session := e.sessionID

	e.state = StateGameOver
	e.epoch++
	e.roundsTotal = 0
	e.qIndex = 0
	e.answers = make(map[string]string)
	e.arrival = nil
	e.scores = nil
	e.state = StateIdle

	return func() {
		e.log.Info().Str("session", session.String()).Msg("game over")
		e.registry.Broadcast(wire.GameOver{})
		e.bus.Publish(Event{Type: EventGameOver, Scoreboard: board})
	}
}

func removeName(names []string, username string) []string {
	for i, name := range names {
		if name == username {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}
