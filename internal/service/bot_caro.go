package service

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

const (
	caroWinScore        = 10_000_000
	innerCandidateLimit = 18
)

type caroSearch struct {
	board    *entity.Board
	rules    entity.Rules
	me       entity.Slot
	opponent entity.Slot
	lines    [][]entity.Cell
	deadline time.Time
}

func (that *caroSearch) selectMove(difficulty entity.Difficulty, level BotLevel, rnd *rand.Rand) entity.Cell {
	candidates := neighborMoves(that.board, level.CandidateRadius)
	if len(candidates) == 0 {
		if that.board.IsEmpty() {
			return entity.Cell{Row: that.board.Rows() / 2, Col: that.board.Cols() / 2}
		}
		candidates = that.board.EmptyCells()
	}

	// only easy plays at random here, stronger levels always take a win or a block
	if difficulty == entity.Easy {
		return randomCell(candidates, rnd)
	}

	if cell, ok := findWinningCell(that.board, that.rules, candidates, that.me); ok {
		return cell
	}

	if cell, ok := findWinningCell(that.board, that.rules, candidates, that.opponent); ok {
		return cell
	}

	if cell, ok := that.findOpenFour(candidates, that.me); ok {
		return cell
	}

	ordered := candidates
	if level.MaxCandidates > 0 {
		ordered = that.orderByUrgency(candidates, that.me, level.MaxCandidates)
	}

	depth := max(level.SearchDepth, 1)

	best := ordered[0]
	bestScore := math.MinInt
	alpha := math.MinInt + 1

	for _, cell := range ordered {
		if that.expired() {
			break
		}

		score := withMove(that.board, cell, that.me, func() int {
			return that.minimax(cell, depth-1, false, alpha, math.MaxInt)
		})

		if score > bestScore {
			bestScore = score
			best = cell
		}

		alpha = max(alpha, bestScore)
	}

	return best
}

// minimax scores the position after last was played with depth plies left.
func (that *caroSearch) minimax(last entity.Cell, depth int, maximizing bool, alpha, beta int) int {
	mover := that.me
	if maximizing {
		mover = that.opponent
	}

	if wins(that.board, that.rules, last.Row, last.Col, mover) {
		if mover == that.me {
			return caroWinScore
		}
		return -caroWinScore
	}

	if depth == 0 || that.expired() {
		return that.evaluate()
	}

	radius := 1
	if depth > 1 {
		radius = 2
	}

	moves := neighborMoves(that.board, radius)
	if len(moves) == 0 {
		return that.evaluate()
	}

	toMove := that.opponent
	if maximizing {
		toMove = that.me
	}

	if len(moves) > innerCandidateLimit {
		moves = that.orderByUrgency(moves, toMove, innerCandidateLimit)
	}

	moves = that.orderByEvaluation(moves, toMove, maximizing)

	if maximizing {
		best := math.MinInt
		for _, cell := range moves {
			score := withMove(that.board, cell, that.me, func() int {
				return that.minimax(cell, depth-1, false, alpha, beta)
			})
			best = max(best, score)
			alpha = max(alpha, score)
			if beta <= alpha {
				break
			}
		}
		return best
	}

	best := math.MaxInt
	for _, cell := range moves {
		score := withMove(that.board, cell, that.opponent, func() int {
			return that.minimax(cell, depth-1, true, alpha, beta)
		})
		best = min(best, score)
		beta = min(beta, score)
		if beta <= alpha {
			break
		}
	}

	return best
}

func (that *caroSearch) expired() bool {
	return !that.deadline.IsZero() && time.Now().After(that.deadline)
}

// findOpenFour looks for a cell that gives slot exactly WinLength-1 in a row with both flanks empty.
func (that *caroSearch) findOpenFour(candidates []entity.Cell, slot entity.Slot) (entity.Cell, bool) {
	target := that.rules.WinLength - 1

	for _, cell := range candidates {
		if !that.board.IsValidMove(cell.Row, cell.Col) {
			continue
		}

		for _, dir := range entity.Directions {
			count, open := flankedRun(that.board, cell.Row, cell.Col, dir, slot)
			if count == target && open == 2 {
				return cell, true
			}
		}
	}

	return entity.Cell{}, false
}

type scoredCell struct {
	cell  entity.Cell
	score int
}

// orderByUrgency sorts by local pattern score, best first, and keeps at most limit cells.
func (that *caroSearch) orderByUrgency(cells []entity.Cell, slot entity.Slot, limit int) []entity.Cell {
	scored := make([]scoredCell, 0, len(cells))
	for _, cell := range cells {
		scored = append(scored, scoredCell{cell: cell, score: localPatternScore(that.board, cell.Row, cell.Col, slot)})
	}

	slices.SortStableFunc(scored, func(a, b scoredCell) int {
		return cmp.Compare(b.score, a.score)
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	ordered := make([]entity.Cell, len(scored))
	for i := range scored {
		ordered[i] = scored[i].cell
	}

	return ordered
}

// orderByEvaluation puts the moves that look best for the side to move first.
func (that *caroSearch) orderByEvaluation(cells []entity.Cell, slot entity.Slot, maximizing bool) []entity.Cell {
	scored := make([]scoredCell, 0, len(cells))
	for _, cell := range cells {
		score := withMove(that.board, cell, slot, that.evaluate)
		scored = append(scored, scoredCell{cell: cell, score: score})
	}

	slices.SortStableFunc(scored, func(a, b scoredCell) int {
		if maximizing {
			return cmp.Compare(b.score, a.score)
		}
		return cmp.Compare(a.score, b.score)
	})

	ordered := make([]entity.Cell, len(scored))
	for i := range scored {
		ordered[i] = scored[i].cell
	}

	return ordered
}

func (that *caroSearch) evaluate() int {
	return evaluateBoard(that.board, that.lines, that.rules.WinLength, that.me)
}

// neighborMoves lists empty cells within radius of any stone in row-major order.
func neighborMoves(board *entity.Board, radius int) []entity.Cell {
	rows, cols := board.Rows(), board.Cols()
	seen := make([]bool, rows*cols)

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if board.At(row, col) == entity.NoSlot {
				continue
			}

			for r := max(0, row-radius); r <= min(rows-1, row+radius); r++ {
				for c := max(0, col-radius); c <= min(cols-1, col+radius); c++ {
					if !seen[r*cols+c] && board.At(r, c) == entity.NoSlot {
						seen[r*cols+c] = true
					}
				}
			}
		}
	}

	var moves []entity.Cell
	for idx, ok := range seen {
		if ok {
			moves = append(moves, entity.Cell{Row: idx / cols, Col: idx % cols})
		}
	}

	return moves
}

// localPatternScore rates a cell by the longest run it would make plus a bonus for every direction.
func localPatternScore(board *entity.Board, row, col int, slot entity.Slot) int {
	if !board.IsValidMove(row, col) {
		return 0
	}

	maxRun, total := 0, 0
	for _, dir := range entity.Directions {
		run := entity.RunLength(board, row, col, dir, slot)
		maxRun = max(maxRun, run)
		total += run
	}

	return maxRun*100 + total
}

// flankedRun counts slot's run through the cell along dir and how many of its two flanks are empty.
func flankedRun(board *entity.Board, row, col int, dir entity.Cell, slot entity.Slot) (int, int) {
	count, open := 1, 0

	r, c := row+dir.Row, col+dir.Col
	for board.At(r, c) == slot {
		count++
		r, c = r+dir.Row, c+dir.Col
	}
	if board.IsValidMove(r, c) {
		open++
	}

	r, c = row-dir.Row, col-dir.Col
	for board.At(r, c) == slot {
		count++
		r, c = r-dir.Row, c-dir.Col
	}
	if board.IsValidMove(r, c) {
		open++
	}

	return count, open
}
