package entity

import (
	"errors"
	"fmt"
	"time"
)

type (
	GameType   string
	Mode       string
	Difficulty string
	Status     string
	Reason     string
)

const (
	TicTacToe GameType = "tic-tac-toe"
	Caro      GameType = "caro"

	Ranked   Mode = "ranked"
	Practice Mode = "practice"

	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"

	StatusActive   Status = "active"
	StatusFinished Status = "finished"

	ReasonLine    Reason = "line"
	ReasonDraw    Reason = "draw"
	ReasonTimeout Reason = "timeout"
	ReasonForfeit Reason = "forfeit"
)

// Slot is a match-local seat. NoSlot doubles as the empty cell value.
type Slot int

const (
	NoSlot Slot = iota
	Slot1
	Slot2
)

// Opponent returns the other seat; NoSlot stays NoSlot.
func (that Slot) Opponent() Slot {
	switch that {
	case Slot1:
		return Slot2
	case Slot2:
		return Slot1
	default:
		return NoSlot
	}
}

func (that Slot) Valid() bool {
	return that == Slot1 || that == Slot2
}

// Winner of a session: a slot number or Draw.
type Winner int

const (
	NoWinner Winner = 0
	Draw     Winner = 3
)

func WinnerOf(slot Slot) Winner {
	return Winner(slot)
}

// Slot returns the winning seat, NoSlot for a draw or an undecided game.
func (that Winner) Slot() Slot {
	if that == Winner(Slot1) || that == Winner(Slot2) {
		return Slot(that)
	}

	return NoSlot
}

var (
	ErrInvalidGameType   = errors.New("invalid game type")
	ErrInvalidMode       = errors.New("invalid mode")
	ErrInvalidDimensions = errors.New("invalid board dimensions")
)

// Rules fixes the board shape and the run needed to win.
type Rules struct {
	Rows      int `json:"rows" yaml:"rows"`
	Cols      int `json:"cols" yaml:"cols"`
	WinLength int `json:"winLength" yaml:"win-length"`
}

func (that Rules) Validate() error {
	if that.Rows <= 0 || that.Cols <= 0 || that.WinLength <= 0 {
		return fmt.Errorf("%w: %dx%d win %d", ErrInvalidDimensions, that.Rows, that.Cols, that.WinLength)
	}

	if that.WinLength > that.Rows && that.WinLength > that.Cols {
		return fmt.Errorf("%w: win length %d does not fit %dx%d", ErrInvalidDimensions, that.WinLength, that.Rows, that.Cols)
	}

	return nil
}

// DefaultRules returns the built-in board shape of a game type.
func DefaultRules(gameType GameType) (Rules, error) {
	switch gameType {
	case TicTacToe:
		return Rules{Rows: 3, Cols: 3, WinLength: 3}, nil
	case Caro:
		return Rules{Rows: 15, Cols: 20, WinLength: 5}, nil
	default:
		return Rules{}, fmt.Errorf("%w: %q", ErrInvalidGameType, gameType)
	}
}

func ParseGameType(raw string) (GameType, error) {
	switch gameType := GameType(raw); gameType {
	case TicTacToe, Caro:
		return gameType, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGameType, raw)
	}
}

func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(raw); mode {
	case Ranked, Practice:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
}

// ParseDifficulty never fails: anything unknown plays at medium strength.
func ParseDifficulty(raw string) Difficulty {
	switch difficulty := Difficulty(raw); difficulty {
	case Easy, Medium, Hard:
		return difficulty
	default:
		return Medium
	}
}

type Cell struct {
	Row int `json:"r"`
	Col int `json:"c"`
}

type Move struct {
	Slot Slot `json:"player"`
	Row  int  `json:"r"`
	Col  int  `json:"c"`
}

func (that Move) Cell() Cell {
	return Cell{Row: that.Row, Col: that.Col}
}

// MatchResult is the finalized outcome handed to the history and rank stores.
type MatchResult struct {
	RoomID     string     `json:"room_id"`
	Player1ID  string     `json:"player1_id"`
	Player2ID  string     `json:"player2_id"`
	WinnerID   *string    `json:"winner_id"`
	GameType   GameType   `json:"game_type"`
	Mode       Mode       `json:"mode"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Reason     Reason     `json:"reason"`
	Moves      []Move     `json:"moves"`
	FinishedAt time.Time  `json:"finished_at"`
}

func (that *MatchResult) IsDraw() bool {
	return that.WinnerID == nil
}

func (that *MatchResult) IsRanked() bool {
	return that.Mode == Ranked
}
