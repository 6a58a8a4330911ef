package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

func TestWindowScore(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		open     int
		expected int
	}{
		{"five", 5, 0, scoreWin},
		{"open four", 4, 2, scoreOpenFour},
		{"blocked four", 4, 1, scoreFour},
		{"dead four", 4, 0, 0},
		{"open three", 3, 2, scoreOpenThree},
		{"blocked three", 3, 1, scoreThree},
		{"open two", 2, 2, scoreOpenTwo},
		{"blocked two", 2, 1, scoreTwo},
		{"lonely stone", 1, 2, scoreOpenOne},
		{"capped stone", 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, windowScore(tt.count, tt.open, 5))
		})
	}
}

func TestEvaluateBoard(t *testing.T) {
	cache := newLineCache()

	t.Run("Empty board is neutral", func(t *testing.T) {
		board := entity.NewBoard(caroRules)

		assert.Equal(t, 0, evaluateBoard(board, cache.get(15, 20, 5), 5, entity.Slot2))
	})

	t.Run("Own open four dominates", func(t *testing.T) {
		board := boardWith(caroRules, nil, row(7, 5, 6, 7, 8))

		assert.GreaterOrEqual(t, evaluateBoard(board, cache.get(15, 20, 5), 5, entity.Slot2), scoreOpenFour)
	})

	t.Run("Mirrored positions favour the opponent", func(t *testing.T) {
		// Given: one stone each, placed symmetrically through the center
		board := boardWith(caroRules, row(12, 17), row(2, 2))

		// Then: the doubled opponent weight makes the score negative
		assert.Negative(t, evaluateBoard(board, cache.get(15, 20, 5), 5, entity.Slot2))
	})

	t.Run("Mixed windows score nothing", func(t *testing.T) {
		line := []entity.Cell{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}, {Row: 0, Col: 3}, {Row: 0, Col: 4}}
		board := boardWith(caroRules, row(0, 0), row(0, 1, 2, 3, 4))

		mine, theirs := scoreLine(board, line, 5, entity.Slot2)

		assert.Zero(t, mine)
		assert.Zero(t, theirs)
	})

	t.Run("Boards with lines shorter than the window contribute nothing", func(t *testing.T) {
		lines := cache.get(3, 3, 5)
		board := entity.BoardFromCells([][]int{{2, 2, 2}, {0, 0, 0}, {1, 1, 0}})

		assert.Empty(t, lines)
		assert.Zero(t, evaluateBoard(board, lines, 5, entity.Slot2))
	})
}

func TestBuildLines(t *testing.T) {
	lines := buildLines(15, 20, 5)

	counts := map[int]int{}
	for _, line := range lines {
		counts[len(line)]++
		assert.GreaterOrEqual(t, len(line), 5)
	}

	// 15 rows of 20 and 20 columns of 15 are always present.
	assert.Equal(t, 15, counts[20])
	assert.GreaterOrEqual(t, counts[15], 20)
}
