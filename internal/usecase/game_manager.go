package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

const (
	ActionMatchFound    = "match:found"
	ActionGameUpdate    = "game:update"
	ActionUndoRequested = "game:undo:requested"
	ActionUndoDeclined  = "game:undo:declined"
	ActionChat          = "game:chat"
)

const defaultCollaboratorTimeout = 5 * time.Second

// Notifier delivers an outbound message to one connection without blocking.
type Notifier interface {
	Send(connID, action string, payload any)
}

type profileService interface {
	LookupDisplayName(ctx context.Context, identity string) (string, error)
}

type historyService interface {
	RecordMatchResult(ctx context.Context, result entity.MatchResult) error
}

type rankService interface {
	ApplyRankAdjustment(ctx context.Context, identity string, points, xp int) error
}

// Rewards are the ranked adjustments per outcome.
type Rewards struct {
	Win  entity.Reward
	Loss entity.Reward
	Draw entity.Reward
}

type Options struct {
	Rules               map[entity.GameType]entity.Rules
	Rewards             Rewards
	ChatMaxLength       int
	CollaboratorTimeout time.Duration
	// NewRand seeds the random source of every new session.
	NewRand func() *rand.Rand
}

type JoinRequest struct {
	Identity   string
	ConnID     string
	GameType   entity.GameType
	Mode       entity.Mode
	Difficulty entity.Difficulty
}

type MoveCommand struct {
	RoomID string
	Row    int
	Col    int
	// Slot is what the client believes it plays, zero when omitted.
	Slot entity.Slot
}

type Opponent struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type MatchFound struct {
	RoomID       string            `json:"roomId"`
	Opponent     Opponent          `json:"opponent"`
	FirstTurn    entity.Slot       `json:"firstTurn"`
	Board        *entity.Board     `json:"board"`
	GameType     entity.GameType   `json:"gameType"`
	Mode         entity.Mode       `json:"mode"`
	PlayerNumber entity.Slot       `json:"playerNumber"`
	Difficulty   entity.Difficulty `json:"difficulty,omitempty"`
}

type UndoNotice struct {
	RoomID string      `json:"roomId"`
	From   entity.Slot `json:"from"`
}

type ChatMessage struct {
	RoomID  string      `json:"roomId"`
	Sender  string      `json:"sender"`
	Slot    entity.Slot `json:"slot"`
	Message string      `json:"message"`
}

// GameManager is the entry point of the transport into matchmaking and the
// running sessions.
type GameManager struct {
	logger *slog.Logger
	opts   Options

	registry *Registry
	queue    *Matchmaking
	conns    *ConnectionTracker

	bot      botPlayer
	profiles profileService
	history  historyService
	ranks    rankService
	notifier Notifier

	wg sync.WaitGroup
}

func NewGameManager(
	logger *slog.Logger,
	opts Options,
	bot botPlayer,
	profiles profileService,
	history historyService,
	ranks rankService,
	notifier Notifier,
) *GameManager {
	if opts.CollaboratorTimeout <= 0 {
		opts.CollaboratorTimeout = defaultCollaboratorTimeout
	}

	if opts.NewRand == nil {
		opts.NewRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}

	gameTypes := make([]entity.GameType, 0, len(opts.Rules))
	for gameType := range opts.Rules {
		gameTypes = append(gameTypes, gameType)
	}

	return &GameManager{
		logger: logger.With("component", "game_manager"),
		opts:   opts,

		registry: NewRegistry(),
		queue:    NewMatchmaking(gameTypes...),
		conns:    NewConnectionTracker(),

		bot:      bot,
		profiles: profiles,
		history:  history,
		ranks:    ranks,
		notifier: notifier,
	}
}

// Connect registers a freshly opened connection.
func (that *GameManager) Connect(connID string) {
	that.conns.Register(connID)
}

// Disconnect drops the connection from every queue and forfeits its active session.
func (that *GameManager) Disconnect(connID string) {
	log := that.logger.With("method", "Disconnect", "connID", connID)

	if removed := that.queue.Cancel(connID); removed > 0 {
		log.Debug("removed from matchmaking", "entries", removed)
	}

	roomID, ok := that.conns.Unregister(connID)
	if !ok {
		return
	}

	if err := that.forfeit(connID, roomID); err != nil {
		log.Debug("disconnect ignored", "roomID", roomID, "error", err)
	}
}

func (that *GameManager) Join(ctx context.Context, req JoinRequest) error {
	log := that.logger.With("method", "Join", "connID", req.ConnID, "identity", req.Identity)

	rules, ok := that.opts.Rules[req.GameType]
	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrUnsupportedGame, req.GameType)
	}

	if !that.conns.IsOpen(req.ConnID) {
		return apperror.ErrUnknownConnection
	}

	if _, playing := that.conns.Room(req.ConnID); playing {
		return apperror.ErrAlreadyInGame
	}

	// a connection waits in at most one queue, joining again replaces the old entry
	that.queue.Cancel(req.ConnID)

	me := Participant{
		Identity:    req.Identity,
		ConnID:      req.ConnID,
		DisplayName: that.displayName(ctx, req.Identity),
	}

	if req.Mode == entity.Practice {
		return that.startPractice(me, req, rules)
	}

	opponent, paired, err := that.queue.Pair(req.GameType, queueEntry{
		identity:    me.Identity,
		connID:      me.ConnID,
		displayName: me.DisplayName,
	})
	if errors.Is(err, apperror.ErrSelfMatch) {
		log.Debug("self match avoided, joiner requeued")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to pair: %w", err)
	}

	if !paired {
		log.Debug("waiting for an opponent", "gameType", req.GameType)
		return nil
	}

	session := NewGameSession(SessionOptions{
		RoomID:   uuid.NewString(),
		GameType: req.GameType,
		Rules:    rules,
		Mode:     entity.Ranked,
		Player1: Participant{
			Identity:    opponent.identity,
			ConnID:      opponent.connID,
			DisplayName: opponent.displayName,
		},
		Player2: me,
		Rand:    that.opts.NewRand(),
	})

	that.start(session)

	log.Info("match found", "roomID", session.ID(), "gameType", req.GameType)

	return nil
}

// Cancel takes the connection out of matchmaking.
func (that *GameManager) Cancel(connID string) int {
	return that.queue.Cancel(connID)
}

func (that *GameManager) Move(connID string, cmd MoveCommand) error {
	session, slot, err := that.seat(connID, cmd.RoomID)
	if err != nil {
		return err
	}

	if cmd.Slot != entity.NoSlot && cmd.Slot != slot {
		return apperror.ErrNotYourTurn
	}

	transition, err := session.Move(cmd.Row, cmd.Col, slot)
	if err != nil {
		return fmt.Errorf("move rejected: %w", err)
	}

	that.publish(session, transition)

	return nil
}

func (that *GameManager) RequestUndo(connID, roomID string) error {
	session, slot, err := that.seat(connID, roomID)
	if err != nil {
		return err
	}

	opponent, err := session.RequestUndo(slot)
	if err != nil {
		return fmt.Errorf("undo request rejected: %w", err)
	}

	if opponent.IsBot() {
		return nil
	}

	that.notifier.Send(opponent.ConnID, ActionUndoRequested, UndoNotice{RoomID: roomID, From: slot})

	return nil
}

func (that *GameManager) ResolveUndo(connID, roomID string, accept bool) error {
	session, slot, err := that.seat(connID, roomID)
	if err != nil {
		return err
	}

	transition, requester, err := session.ResolveUndo(slot, accept)
	if err != nil {
		return fmt.Errorf("undo resolution rejected: %w", err)
	}

	if !accept {
		that.notifier.Send(requester.ConnID, ActionUndoDeclined, UndoNotice{RoomID: roomID, From: slot})
		return nil
	}

	that.publish(session, transition)

	return nil
}

func (that *GameManager) ClaimTimeout(connID, roomID string) error {
	session, _, err := that.seat(connID, roomID)
	if err != nil {
		return err
	}

	transition, err := session.ClaimTimeout()
	if err != nil {
		return fmt.Errorf("timeout rejected: %w", err)
	}

	that.publish(session, transition)

	return nil
}

func (that *GameManager) Leave(connID, roomID string) error {
	return that.forfeit(connID, roomID)
}

// Chat rebroadcasts a trimmed, bounded and escaped message to the room.
func (that *GameManager) Chat(connID, roomID, text string) error {
	session, slot, err := that.seat(connID, roomID)
	if err != nil {
		return err
	}

	message, err := sanitizeChat(text, that.opts.ChatMaxLength)
	if err != nil {
		return err
	}

	payload := ChatMessage{
		RoomID:  roomID,
		Sender:  session.Player(slot).DisplayName,
		Slot:    slot,
		Message: message,
	}

	that.broadcast(session, ActionChat, payload)

	return nil
}

// Wait blocks until every background result report has finished.
func (that *GameManager) Wait() {
	that.wg.Wait()
}

func (that *GameManager) startPractice(me Participant, req JoinRequest, rules entity.Rules) error {
	difficulty := entity.ParseDifficulty(string(req.Difficulty))

	session := NewGameSession(SessionOptions{
		RoomID:     uuid.NewString(),
		GameType:   req.GameType,
		Rules:      rules,
		Mode:       entity.Practice,
		Difficulty: difficulty,
		Player1:    me,
		Player2: Participant{
			Identity:    entity.BotID,
			DisplayName: entity.BotName(difficulty),
		},
		Bot:  that.bot,
		Rand: that.opts.NewRand(),
	})

	that.start(session)

	that.logger.Info("practice started", "roomID", session.ID(), "gameType", req.GameType, "difficulty", difficulty)

	return nil
}

// start registers the session, binds both connections and announces the match.
// A side whose connection closed in the meantime forfeits right away.
func (that *GameManager) start(session *GameSession) {
	log := that.logger.With("method", "start", "roomID", session.ID())

	that.registry.Add(session)

	var gone []entity.Slot
	for _, slot := range []entity.Slot{entity.Slot1, entity.Slot2} {
		player := session.Player(slot)
		if player.IsBot() {
			continue
		}

		if err := that.conns.Bind(player.ConnID, session.ID()); err != nil {
			gone = append(gone, slot)
			continue
		}

		opponent := session.Player(slot.Opponent())
		that.notifier.Send(player.ConnID, ActionMatchFound, MatchFound{
			RoomID:       session.ID(),
			Opponent:     Opponent{ID: opponent.Identity, DisplayName: opponent.DisplayName},
			FirstTurn:    entity.Slot1,
			Board:        session.Snapshot().Board,
			GameType:     session.GameType(),
			Mode:         session.Mode(),
			PlayerNumber: slot,
			Difficulty:   session.Difficulty(),
		})
	}

	for _, slot := range gone {
		log.Info("participant left before the match started", "slot", slot)

		transition, err := session.Forfeit(slot)
		if err != nil {
			continue
		}

		that.publish(session, transition)
	}
}

func (that *GameManager) forfeit(connID, roomID string) error {
	session, ok := that.registry.Get(roomID)
	if !ok {
		return apperror.ErrRoomNotFound
	}

	slot := session.SlotOf(connID)
	if slot == entity.NoSlot {
		return apperror.ErrNotInRoom
	}

	transition, err := session.Forfeit(slot)
	if err != nil {
		return fmt.Errorf("forfeit rejected: %w", err)
	}

	that.publish(session, transition)

	return nil
}

// seat resolves the room and the caller's slot in it.
func (that *GameManager) seat(connID, roomID string) (*GameSession, entity.Slot, error) {
	session, ok := that.registry.Get(roomID)
	if !ok {
		return nil, entity.NoSlot, apperror.ErrRoomNotFound
	}

	slot := session.SlotOf(connID)
	if slot == entity.NoSlot {
		return nil, entity.NoSlot, apperror.ErrNotInRoom
	}

	return session, slot, nil
}

// publish delivers the updates of a transition and, when it finished the
// session, retires it and reports the result in the background.
func (that *GameManager) publish(session *GameSession, transition Transition) {
	for _, update := range transition.Updates {
		that.broadcast(session, ActionGameUpdate, update)
	}

	if !transition.Finished() {
		return
	}

	if !that.registry.Remove(session.ID()) {
		return
	}

	for _, player := range session.Participants() {
		if !player.IsBot() {
			that.conns.Release(player.ConnID, session.ID())
		}
	}

	result := *transition.Result

	that.wg.Add(1)
	go func() {
		defer that.wg.Done()
		that.report(result)
	}()
}

func (that *GameManager) broadcast(session *GameSession, action string, payload any) {
	for _, player := range session.Participants() {
		if player.IsBot() || player.ConnID == "" {
			continue
		}

		that.notifier.Send(player.ConnID, action, payload)
	}
}

// report hands the result to the history and rank stores. Failures are only logged.
func (that *GameManager) report(result entity.MatchResult) {
	log := that.logger.With("method", "report", "roomID", result.RoomID)

	ctx, cancel := context.WithTimeout(context.Background(), that.opts.CollaboratorTimeout)
	defer cancel()

	if that.history != nil {
		if err := that.history.RecordMatchResult(ctx, result); err != nil {
			log.Error("failed to record match result", "error", err)
		}
	}

	if !result.IsRanked() || that.ranks == nil {
		return
	}

	for identity, reward := range that.rewardsFor(result) {
		if err := that.ranks.ApplyRankAdjustment(ctx, identity, reward.Points, reward.XP); err != nil {
			log.Error("failed to apply rank adjustment", "identity", identity, "error", err)
		}
	}

	log.Info("match reported", "reason", result.Reason, "draw", result.IsDraw())
}

func (that *GameManager) rewardsFor(result entity.MatchResult) map[string]entity.Reward {
	if result.IsDraw() {
		return map[string]entity.Reward{
			result.Player1ID: that.opts.Rewards.Draw,
			result.Player2ID: that.opts.Rewards.Draw,
		}
	}

	loser := result.Player1ID
	if *result.WinnerID == result.Player1ID {
		loser = result.Player2ID
	}

	return map[string]entity.Reward{
		*result.WinnerID: that.opts.Rewards.Win,
		loser:            that.opts.Rewards.Loss,
	}
}

func (that *GameManager) displayName(ctx context.Context, identity string) string {
	if that.profiles == nil {
		return entity.GuestName(identity)
	}

	ctx, cancel := context.WithTimeout(ctx, that.opts.CollaboratorTimeout)
	defer cancel()

	name, err := that.profiles.LookupDisplayName(ctx, identity)
	if err != nil || name == "" {
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			that.logger.Error("failed to look up display name", "identity", identity, "error", err)
		}
		return entity.GuestName(identity)
	}

	return name
}

func sanitizeChat(text string, maxLength int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperror.ErrEmptyMessage
	}

	if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		text = strings.TrimSpace(string([]rune(text)[:maxLength]))
	}

	return html.EscapeString(text), nil
}
