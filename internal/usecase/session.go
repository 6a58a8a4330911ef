package usecase

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
	"github.com/rocketscienceinc/arena-backend/internal/service"
)

type botPlayer interface {
	SelectMove(req service.MoveRequest, rnd *rand.Rand) (entity.Cell, error)
}

// Participant is one side of a session. The bot side has no connection.
type Participant struct {
	Identity    string `json:"id"`
	ConnID      string `json:"-"`
	DisplayName string `json:"display_name"`
}

func (that Participant) IsBot() bool {
	return that.Identity == entity.BotID
}

// GameUpdate is broadcast after every completed mutating transition.
type GameUpdate struct {
	RoomID      string        `json:"roomId"`
	Board       *entity.Board `json:"board"`
	NextTurn    entity.Slot   `json:"currentPlayer"`
	Winner      entity.Winner `json:"winner"`
	WinningLine []entity.Cell `json:"winningLine"`
	LastMove    *entity.Cell  `json:"lastMove"`
}

// Transition is what a session transition produced: the updates to broadcast
// in order and, when the session just finished, its result.
type Transition struct {
	Updates []GameUpdate
	Result  *entity.MatchResult
}

func (that *Transition) Finished() bool {
	return that.Result != nil
}

type SessionOptions struct {
	RoomID     string
	GameType   entity.GameType
	Rules      entity.Rules
	Mode       entity.Mode
	Difficulty entity.Difficulty
	Player1    Participant
	Player2    Participant

	Bot  botPlayer
	Rand *rand.Rand
	Now  func() time.Time
}

// GameSession is one match. Every transition runs under the session's own lock;
// participants are fixed at creation and can be read without it.
type GameSession struct {
	mu sync.Mutex

	id         string
	gameType   entity.GameType
	rules      entity.Rules
	mode       entity.Mode
	difficulty entity.Difficulty
	players    [3]Participant

	board       *entity.Board
	turn        entity.Slot
	history     []entity.Move
	status      entity.Status
	winner      entity.Winner
	line        []entity.Cell
	reason      entity.Reason
	pendingUndo entity.Slot
	result      *entity.MatchResult

	bot botPlayer
	rnd *rand.Rand
	now func() time.Time
}

func NewGameSession(opts SessionOptions) *GameSession {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(now().UnixNano()))
	}

	session := &GameSession{
		id:         opts.RoomID,
		gameType:   opts.GameType,
		rules:      opts.Rules,
		mode:       opts.Mode,
		difficulty: opts.Difficulty,
		board:      entity.NewBoard(opts.Rules),
		turn:       entity.Slot1,
		status:     entity.StatusActive,
		bot:        opts.Bot,
		rnd:        rnd,
		now:        now,
	}

	session.players[entity.Slot1] = opts.Player1
	session.players[entity.Slot2] = opts.Player2

	return session
}

func (that *GameSession) ID() string {
	return that.id
}

func (that *GameSession) GameType() entity.GameType {
	return that.gameType
}

func (that *GameSession) Mode() entity.Mode {
	return that.mode
}

func (that *GameSession) Difficulty() entity.Difficulty {
	return that.difficulty
}

func (that *GameSession) Player(slot entity.Slot) Participant {
	if !slot.Valid() {
		return Participant{}
	}

	return that.players[slot]
}

// Participants returns both sides in slot order.
func (that *GameSession) Participants() []Participant {
	return []Participant{that.players[entity.Slot1], that.players[entity.Slot2]}
}

// SlotOf resolves a connection to its slot, NoSlot when it does not play here.
func (that *GameSession) SlotOf(connID string) entity.Slot {
	if connID == "" {
		return entity.NoSlot
	}

	for _, slot := range []entity.Slot{entity.Slot1, entity.Slot2} {
		if that.players[slot].ConnID == connID {
			return slot
		}
	}

	return entity.NoSlot
}

func (that *GameSession) IsFinished() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.status == entity.StatusFinished
}

// Snapshot returns the current state in the shape of an update.
func (that *GameSession) Snapshot() GameUpdate {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.update(that.lastMove())
}

// Move plays slot's mark on (row, col). In practice mode the bot answers
// before the lock is released.
func (that *GameSession) Move(row, col int, slot entity.Slot) (Transition, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.status == entity.StatusFinished {
		return Transition{}, apperror.ErrGameFinished
	}

	if slot != that.turn {
		return Transition{}, apperror.ErrNotYourTurn
	}

	if !that.board.IsValidMove(row, col) {
		return Transition{}, apperror.ErrCellOccupied
	}

	var transition Transition
	transition.Updates = append(transition.Updates, that.play(row, col, slot))

	if that.status == entity.StatusActive && that.botTurn() {
		if update, ok := that.playBot(); ok {
			transition.Updates = append(transition.Updates, update)
		}
	}

	transition.Result = that.result

	return transition, nil
}

// RequestUndo marks an undo request from requester and returns the side to ask.
func (that *GameSession) RequestUndo(requester entity.Slot) (Participant, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.status == entity.StatusFinished {
		return Participant{}, apperror.ErrGameFinished
	}

	if !requester.Valid() {
		return Participant{}, apperror.ErrNotInRoom
	}

	that.pendingUndo = requester

	return that.players[requester.Opponent()], nil
}

// ResolveUndo answers a pending undo request. A decline returns the requester to
// notify; an accept takes back the latest move and returns the update.
func (that *GameSession) ResolveUndo(resolver entity.Slot, accept bool) (Transition, Participant, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.status == entity.StatusFinished {
		return Transition{}, Participant{}, apperror.ErrGameFinished
	}

	requester := that.pendingUndo
	if requester == entity.NoSlot || resolver != requester.Opponent() {
		return Transition{}, Participant{}, apperror.ErrNoPendingUndo
	}

	that.pendingUndo = entity.NoSlot

	if !accept {
		return Transition{}, that.players[requester], nil
	}

	if len(that.history) == 0 {
		return Transition{}, that.players[requester], apperror.ErrNothingToUndo
	}

	last := that.history[len(that.history)-1]
	that.history = that.history[:len(that.history)-1]
	that.board.UndoMove(last.Row, last.Col)
	that.turn = last.Slot

	return Transition{Updates: []GameUpdate{that.update(that.lastMove())}}, that.players[requester], nil
}

// ClaimTimeout awards the win to the side that does not hold the turn.
func (that *GameSession) ClaimTimeout() (Transition, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.status == entity.StatusFinished {
		return Transition{}, apperror.ErrGameFinished
	}

	that.finish(entity.WinnerOf(that.turn.Opponent()), nil, entity.ReasonTimeout)

	return Transition{Updates: []GameUpdate{that.update(nil)}, Result: that.result}, nil
}

// Forfeit ends the session in favour of the other side of slot. It runs once;
// later calls find the session finished.
func (that *GameSession) Forfeit(slot entity.Slot) (Transition, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.status == entity.StatusFinished {
		return Transition{}, apperror.ErrGameFinished
	}

	if !slot.Valid() {
		return Transition{}, apperror.ErrNotInRoom
	}

	that.finish(entity.WinnerOf(slot.Opponent()), nil, entity.ReasonForfeit)

	return Transition{Updates: []GameUpdate{that.update(nil)}, Result: that.result}, nil
}

func (that *GameSession) play(row, col int, slot entity.Slot) GameUpdate {
	that.board.ApplyMove(row, col, slot)
	that.history = append(that.history, entity.Move{Slot: slot, Row: row, Col: col})
	that.turn = slot.Opponent()
	that.pendingUndo = entity.NoSlot

	cell := entity.Cell{Row: row, Col: col}

	winner, line := entity.CheckWinner(that.board, that.rules, cell)
	switch winner {
	case entity.NoWinner:
	case entity.Draw:
		that.finish(winner, nil, entity.ReasonDraw)
	default:
		that.finish(winner, line, entity.ReasonLine)
	}

	return that.update(&cell)
}

func (that *GameSession) botTurn() bool {
	return that.mode == entity.Practice && that.bot != nil && that.players[that.turn].IsBot()
}

func (that *GameSession) playBot() (GameUpdate, bool) {
	cell, err := that.bot.SelectMove(service.MoveRequest{
		Board:      that.board,
		Rules:      that.rules,
		GameType:   that.gameType,
		Difficulty: that.difficulty,
		Me:         that.turn,
	}, that.rnd)
	if err != nil || !that.board.IsValidMove(cell.Row, cell.Col) {
		return GameUpdate{}, false
	}

	return that.play(cell.Row, cell.Col, that.turn), true
}

func (that *GameSession) finish(winner entity.Winner, line []entity.Cell, reason entity.Reason) {
	that.status = entity.StatusFinished
	that.winner = winner
	that.line = line
	that.reason = reason
	that.pendingUndo = entity.NoSlot

	result := entity.MatchResult{
		RoomID:     that.id,
		Player1ID:  that.players[entity.Slot1].Identity,
		Player2ID:  that.players[entity.Slot2].Identity,
		GameType:   that.gameType,
		Mode:       that.mode,
		Reason:     reason,
		Moves:      append([]entity.Move(nil), that.history...),
		FinishedAt: that.now(),
	}

	if that.mode == entity.Practice {
		result.Difficulty = that.difficulty
	}

	if slot := winner.Slot(); slot.Valid() {
		winnerID := that.players[slot].Identity
		result.WinnerID = &winnerID
	}

	that.result = &result
}

func (that *GameSession) update(lastMove *entity.Cell) GameUpdate {
	next := that.turn
	if that.status == entity.StatusFinished {
		next = entity.NoSlot
	}

	return GameUpdate{
		RoomID:      that.id,
		Board:       that.board.Clone(),
		NextTurn:    next,
		Winner:      that.winner,
		WinningLine: append([]entity.Cell(nil), that.line...),
		LastMove:    lastMove,
	}
}

func (that *GameSession) lastMove() *entity.Cell {
	if len(that.history) == 0 {
		return nil
	}

	cell := that.history[len(that.history)-1].Cell()

	return &cell
}
