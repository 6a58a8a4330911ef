package service

import (
	"errors"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

var ErrNoAvailableMoves = errors.New("no available moves")

// BotLevel tunes one difficulty tier.
type BotLevel struct {
	// RandomChance is the probability of a uniformly random tic-tac-toe move.
	RandomChance float64
	// SearchDepth is the minimax horizon on the large board.
	SearchDepth int
	// CandidateRadius limits large-board candidates to cells this close to a stone.
	CandidateRadius int
	// MaxCandidates trims root candidates after urgency ordering, zero keeps them all.
	MaxCandidates int
}

type BotOptions struct {
	Levels map[entity.Difficulty]BotLevel
	// MoveBudget bounds the search; when it runs out the best move found so far is played.
	MoveBudget time.Duration
	// CacheSize caps the tic-tac-toe transposition table.
	CacheSize int
}

// MoveRequest describes the position the bot has to answer.
type MoveRequest struct {
	Board      *entity.Board
	Rules      entity.Rules
	GameType   entity.GameType
	Difficulty entity.Difficulty
	Me         entity.Slot
}

type BotService interface {
	SelectMove(req MoveRequest, rnd *rand.Rand) (entity.Cell, error)
}

type botService struct {
	levels map[entity.Difficulty]BotLevel
	budget time.Duration

	ttt   *transpositionTable
	lines *lineCache
}

func NewBotService(opts BotOptions) BotService {
	levels := make(map[entity.Difficulty]BotLevel, len(opts.Levels))
	for difficulty, level := range opts.Levels {
		levels[difficulty] = level
	}

	return &botService{
		levels: levels,
		budget: opts.MoveBudget,
		ttt:    newTranspositionTable(opts.CacheSize),
		lines:  newLineCache(),
	}
}

// SelectMove picks a legal cell for req.Me. The caller's board is never modified.
func (that *botService) SelectMove(req MoveRequest, rnd *rand.Rand) (entity.Cell, error) {
	if req.Board.IsFull() {
		return entity.Cell{}, ErrNoAvailableMoves
	}

	if !req.Me.Valid() {
		req.Me = entity.Slot2
	}

	board := req.Board.Clone()
	difficulty := entity.ParseDifficulty(string(req.Difficulty))
	level := that.levels[difficulty]

	var deadline time.Time
	if that.budget > 0 {
		deadline = time.Now().Add(that.budget)
	}

	if req.GameType == entity.TicTacToe {
		return that.ticTacToeMove(board, req.Rules, difficulty, level, req.Me, rnd), nil
	}

	search := &caroSearch{
		board:    board,
		rules:    req.Rules,
		me:       req.Me,
		opponent: req.Me.Opponent(),
		lines:    that.lines.get(board.Rows(), board.Cols(), req.Rules.WinLength),
		deadline: deadline,
	}

	return search.selectMove(difficulty, level, rnd), nil
}

func randomCell(cells []entity.Cell, rnd *rand.Rand) entity.Cell {
	return cells[rnd.Intn(len(cells))]
}

// wins reports whether slot, sitting on (row, col), completes a winning run.
func wins(board *entity.Board, rules entity.Rules, row, col int, slot entity.Slot) bool {
	for _, dir := range entity.Directions {
		if entity.RunLength(board, row, col, dir, slot) >= rules.WinLength {
			return true
		}
	}

	return false
}

// findWinningCell returns the first candidate that completes a run for slot.
func findWinningCell(board *entity.Board, rules entity.Rules, candidates []entity.Cell, slot entity.Slot) (entity.Cell, bool) {
	for _, cell := range candidates {
		if board.IsValidMove(cell.Row, cell.Col) && wins(board, rules, cell.Row, cell.Col, slot) {
			return cell, true
		}
	}

	return entity.Cell{}, false
}

// withMove plays slot on the cell for the duration of fn and always takes it back.
func withMove[T any](board *entity.Board, cell entity.Cell, slot entity.Slot, fn func() T) T {
	board.ApplyMove(cell.Row, cell.Col, slot)
	defer board.UndoMove(cell.Row, cell.Col)

	return fn()
}
