package service

import (
	"sync"

	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

const (
	scoreWin       = 10_000_000
	scoreOpenFour  = 100_000
	scoreFour      = 10_000
	scoreOpenThree = 5_000
	scoreThree     = 100
	scoreOpenTwo   = 50
	scoreTwo       = 10
	scoreOpenOne   = 5

	// opponentWeight makes the bot value defence over attack.
	opponentWeight = 2
)

// evaluateBoard scores the position from me's point of view by sliding a
// window the length of a winning run over every line of the board.
func evaluateBoard(board *entity.Board, lines [][]entity.Cell, window int, me entity.Slot) int {
	mine, theirs := 0, 0

	for _, line := range lines {
		lineMine, lineTheirs := scoreLine(board, line, window, me)
		mine += lineMine
		theirs += lineTheirs
	}

	return mine - opponentWeight*theirs
}

func scoreLine(board *entity.Board, line []entity.Cell, window int, me entity.Slot) (int, int) {
	mine, theirs := 0, 0

	for start := 0; start+window <= len(line); start++ {
		countMe, countOpp := 0, 0
		for _, cell := range line[start : start+window] {
			switch board.At(cell.Row, cell.Col) {
			case entity.NoSlot:
			case me:
				countMe++
			default:
				countOpp++
			}
		}

		if countMe > 0 && countOpp > 0 {
			continue
		}

		open := 0
		if start > 0 && board.At(line[start-1].Row, line[start-1].Col) == entity.NoSlot {
			open++
		}
		if end := start + window; end < len(line) && board.At(line[end].Row, line[end].Col) == entity.NoSlot {
			open++
		}

		if countMe > 0 {
			mine += windowScore(countMe, open, window)
		} else if countOpp > 0 {
			theirs += windowScore(countOpp, open, window)
		}
	}

	return mine, theirs
}

func windowScore(count, open, window int) int {
	switch {
	case count >= window:
		return scoreWin
	case count == window-1:
		return pick(open, scoreOpenFour, scoreFour)
	case count == window-2:
		return pick(open, scoreOpenThree, scoreThree)
	case count == window-3:
		return pick(open, scoreOpenTwo, scoreTwo)
	case count == 1 && open == 2:
		return scoreOpenOne
	default:
		return 0
	}
}

func pick(open, twoEnds, oneEnd int) int {
	switch open {
	case 2:
		return twoEnds
	case 1:
		return oneEnd
	default:
		return 0
	}
}

type lineKey struct {
	rows, cols, window int
}

// lineCache keeps the board lines per shape; every line is at least one window long.
type lineCache struct {
	mu    sync.Mutex
	lines map[lineKey][][]entity.Cell
}

func newLineCache() *lineCache {
	return &lineCache{lines: make(map[lineKey][][]entity.Cell)}
}

func (that *lineCache) get(rows, cols, window int) [][]entity.Cell {
	key := lineKey{rows: rows, cols: cols, window: window}

	that.mu.Lock()
	defer that.mu.Unlock()

	if lines, ok := that.lines[key]; ok {
		return lines
	}

	lines := buildLines(rows, cols, window)
	that.lines[key] = lines

	return lines
}

func buildLines(rows, cols, window int) [][]entity.Cell {
	inBounds := func(r, c int) bool {
		return r >= 0 && r < rows && c >= 0 && c < cols
	}

	var lines [][]entity.Cell
	for _, dir := range entity.Directions {
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				// only start where the line enters the board
				if inBounds(row-dir.Row, col-dir.Col) {
					continue
				}

				var line []entity.Cell
				for r, c := row, col; inBounds(r, c); r, c = r+dir.Row, c+dir.Col {
					line = append(line, entity.Cell{Row: r, Col: c})
				}

				if len(line) >= window {
					lines = append(lines, line)
				}
			}
		}
	}

	return lines
}
