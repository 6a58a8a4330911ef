package service

import (
	"math"
	"math/rand"
	"sync"

	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

const tttWinScore = 10

// center first, then corners, then edges.
var tttPriority = []entity.Cell{
	{Row: 1, Col: 1},
	{Row: 0, Col: 0}, {Row: 0, Col: 2}, {Row: 2, Col: 0}, {Row: 2, Col: 2},
	{Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 2}, {Row: 2, Col: 1},
}

func (that *botService) ticTacToeMove(board *entity.Board, rules entity.Rules, difficulty entity.Difficulty, level BotLevel, me entity.Slot, rnd *rand.Rand) entity.Cell {
	empty := board.EmptyCells()

	if difficulty == entity.Easy || rnd.Float64() < level.RandomChance {
		return randomCell(empty, rnd)
	}

	if cell, ok := findWinningCell(board, rules, empty, me); ok {
		return cell
	}

	if cell, ok := findWinningCell(board, rules, empty, me.Opponent()); ok {
		return cell
	}

	if difficulty == entity.Medium {
		for _, cell := range tttPriority {
			if board.IsValidMove(cell.Row, cell.Col) {
				return cell
			}
		}
	}

	search := &tttSearch{board: board, rules: rules, me: me, table: that.ttt}

	best := empty[0]
	bestScore := math.MinInt
	alpha := math.MinInt + 1

	for _, cell := range empty {
		score := withMove(board, cell, me, func() int {
			return search.minimax(cell, 0, false, alpha, math.MaxInt)
		})

		if score > bestScore {
			bestScore = score
			best = cell
		}

		alpha = max(alpha, bestScore)
	}

	return best
}

type tttSearch struct {
	board *entity.Board
	rules entity.Rules
	me    entity.Slot
	table *transpositionTable
}

// minimax scores the position after last was played; depth counts plies from the root.
func (that *tttSearch) minimax(last entity.Cell, depth int, maximizing bool, alpha, beta int) int {
	mover := that.me
	if maximizing {
		mover = that.me.Opponent()
	}

	if wins(that.board, that.rules, last.Row, last.Col, mover) {
		if mover == that.me {
			return tttWinScore - depth
		}
		return depth - tttWinScore
	}

	if that.board.IsFull() {
		return 0
	}

	key := ttKey{board: that.board.Key(), depth: depth, maximizing: maximizing, me: that.me}
	if score, ok := that.table.lookup(key, alpha, beta); ok {
		return score
	}

	alphaOrig, betaOrig := alpha, beta

	var best int
	if maximizing {
		best = math.MinInt
		for _, cell := range that.board.EmptyCells() {
			score := withMove(that.board, cell, that.me, func() int {
				return that.minimax(cell, depth+1, false, alpha, beta)
			})
			best = max(best, score)
			alpha = max(alpha, score)
			if beta <= alpha {
				break
			}
		}
	} else {
		best = math.MaxInt
		for _, cell := range that.board.EmptyCells() {
			score := withMove(that.board, cell, that.me.Opponent(), func() int {
				return that.minimax(cell, depth+1, true, alpha, beta)
			})
			best = min(best, score)
			beta = min(beta, score)
			if beta <= alpha {
				break
			}
		}
	}

	that.table.store(key, best, determineBound(best, alphaOrig, betaOrig))

	return best
}

type boundType int

const (
	boundExact boundType = iota
	boundLower
	boundUpper
)

type ttKey struct {
	board      string
	depth      int
	maximizing bool
	me         entity.Slot
}

type ttEntry struct {
	score int
	bound boundType
}

// transpositionTable survives across moves and games; the key fully determines the subtree value.
type transpositionTable struct {
	mu      sync.RWMutex
	limit   int
	entries map[ttKey]ttEntry
}

func newTranspositionTable(limit int) *transpositionTable {
	return &transpositionTable{
		limit:   limit,
		entries: make(map[ttKey]ttEntry),
	}
}

func (that *transpositionTable) lookup(key ttKey, alpha, beta int) (int, bool) {
	that.mu.RLock()
	entry, ok := that.entries[key]
	that.mu.RUnlock()

	if !ok {
		return 0, false
	}

	switch entry.bound {
	case boundExact:
		return entry.score, true
	case boundLower:
		if entry.score >= beta {
			return entry.score, true
		}
	case boundUpper:
		if entry.score <= alpha {
			return entry.score, true
		}
	}

	return 0, false
}

func (that *transpositionTable) store(key ttKey, score int, bound boundType) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.limit > 0 && len(that.entries) >= that.limit {
		that.entries = make(map[ttKey]ttEntry)
	}

	that.entries[key] = ttEntry{score: score, bound: bound}
}

func (that *transpositionTable) size() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.entries)
}

func determineBound(score, alphaOrig, betaOrig int) boundType {
	switch {
	case score <= alphaOrig:
		return boundUpper
	case score >= betaOrig:
		return boundLower
	default:
		return boundExact
	}
}
