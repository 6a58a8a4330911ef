package entity

import (
	"encoding/json"
	"strings"
)

// Directions are the four line orientations: horizontal, vertical and both diagonals.
var Directions = [4]Cell{
	{Row: 0, Col: 1},
	{Row: 1, Col: 0},
	{Row: 1, Col: 1},
	{Row: 1, Col: -1},
}

// Board is a fixed-size grid of seats. The zero value is unusable; build one with NewBoard.
type Board struct {
	rows   int
	cols   int
	filled int
	cells  []Slot
}

func NewBoard(rules Rules) *Board {
	return &Board{
		rows:  rules.Rows,
		cols:  rules.Cols,
		cells: make([]Slot, rules.Rows*rules.Cols),
	}
}

// BoardFromCells builds a board from a row-major grid, mostly for tests and replays.
func BoardFromCells(grid [][]int) *Board {
	rows := len(grid)
	cols := 0
	if rows > 0 {
		cols = len(grid[0])
	}

	board := NewBoard(Rules{Rows: rows, Cols: cols})
	for row := range grid {
		for col, value := range grid[row] {
			if col >= cols {
				break
			}
			if slot := Slot(value); slot.Valid() {
				board.ApplyMove(row, col, slot)
			}
		}
	}

	return board
}

func (that *Board) Rows() int {
	return that.rows
}

func (that *Board) Cols() int {
	return that.cols
}

func (that *Board) InBounds(row, col int) bool {
	return row >= 0 && row < that.rows && col >= 0 && col < that.cols
}

// At returns the seat occupying the cell, NoSlot for empty or out of bounds.
func (that *Board) At(row, col int) Slot {
	if !that.InBounds(row, col) {
		return NoSlot
	}

	return that.cells[row*that.cols+col]
}

func (that *Board) IsValidMove(row, col int) bool {
	return that.InBounds(row, col) && that.cells[row*that.cols+col] == NoSlot
}

// ApplyMove writes the seat's mark and reports whether it did; invalid input leaves the board untouched.
func (that *Board) ApplyMove(row, col int, slot Slot) bool {
	if !slot.Valid() || !that.IsValidMove(row, col) {
		return false
	}

	that.cells[row*that.cols+col] = slot
	that.filled++

	return true
}

// UndoMove clears an in-bounds cell. Callers are responsible for knowing who played there.
func (that *Board) UndoMove(row, col int) bool {
	if !that.InBounds(row, col) {
		return false
	}

	idx := row*that.cols + col
	if that.cells[idx] != NoSlot {
		that.filled--
	}
	that.cells[idx] = NoSlot

	return true
}

func (that *Board) IsFull() bool {
	return that.filled == len(that.cells)
}

func (that *Board) IsEmpty() bool {
	return that.filled == 0
}

func (that *Board) Filled() int {
	return that.filled
}

// EmptyCells lists free cells in row-major order.
func (that *Board) EmptyCells() []Cell {
	cells := make([]Cell, 0, len(that.cells)-that.filled)
	for idx, slot := range that.cells {
		if slot == NoSlot {
			cells = append(cells, Cell{Row: idx / that.cols, Col: idx % that.cols})
		}
	}

	return cells
}

func (that *Board) Clone() *Board {
	cells := make([]Slot, len(that.cells))
	copy(cells, that.cells)

	return &Board{
		rows:   that.rows,
		cols:   that.cols,
		filled: that.filled,
		cells:  cells,
	}
}

func (that *Board) Equal(other *Board) bool {
	if other == nil || that.rows != other.rows || that.cols != other.cols {
		return false
	}

	for idx := range that.cells {
		if that.cells[idx] != other.cells[idx] {
			return false
		}
	}

	return true
}

// Key serializes the grid into a compact string usable as a map key.
func (that *Board) Key() string {
	var sb strings.Builder
	sb.Grow(len(that.cells))

	for _, slot := range that.cells {
		sb.WriteByte(byte('0' + slot))
	}

	return sb.String()
}

// Cells returns the grid as nested rows of 0/1/2, the shape clients render.
func (that *Board) Cells() [][]int {
	grid := make([][]int, that.rows)
	for row := range grid {
		grid[row] = make([]int, that.cols)
		for col := range grid[row] {
			grid[row][col] = int(that.cells[row*that.cols+col])
		}
	}

	return grid
}

func (that *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(that.Cells())
}

// CheckWinner inspects only the lines through the last move. A run of at least
// WinLength marks wins and the whole contiguous run is returned as the line.
// With no winning run and no empty cell left the game is a draw.
func CheckWinner(board *Board, rules Rules, last Cell) (Winner, []Cell) {
	mover := board.At(last.Row, last.Col)

	if mover != NoSlot {
		for _, dir := range Directions {
			line := runThrough(board, last, dir, mover)
			if len(line) >= rules.WinLength {
				return WinnerOf(mover), line
			}
		}
	}

	if board.IsFull() {
		return Draw, nil
	}

	return NoWinner, nil
}

// runThrough collects the contiguous cells of slot through origin along dir, ordered from the backward end.
func runThrough(board *Board, origin, dir Cell, slot Slot) []Cell {
	start := origin
	for {
		prev := Cell{Row: start.Row - dir.Row, Col: start.Col - dir.Col}
		if board.At(prev.Row, prev.Col) != slot {
			break
		}
		start = prev
	}

	var line []Cell
	for cell := start; board.At(cell.Row, cell.Col) == slot; cell = (Cell{Row: cell.Row + dir.Row, Col: cell.Col + dir.Col}) {
		line = append(line, cell)
	}

	return line
}

// RunLength counts contiguous marks of slot through the cell along dir, counting the cell itself
// as if it held slot.
func RunLength(board *Board, row, col int, dir Cell, slot Slot) int {
	count := 1

	for r, c := row+dir.Row, col+dir.Col; board.At(r, c) == slot; r, c = r+dir.Row, c+dir.Col {
		count++
	}

	for r, c := row-dir.Row, col-dir.Col; board.At(r, c) == slot; r, c = r-dir.Row, c-dir.Col {
		count++
	}

	return count
}
