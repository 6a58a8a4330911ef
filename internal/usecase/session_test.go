package usecase

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
	"github.com/rocketscienceinc/arena-backend/internal/service"
)

var (
	tttRules  = entity.Rules{Rows: 3, Cols: 3, WinLength: 3}
	caroRules = entity.Rules{Rows: 15, Cols: 20, WinLength: 5}

	finishedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
)

func newRankedSession() *GameSession {
	return NewGameSession(SessionOptions{
		RoomID:   "room-1",
		GameType: entity.TicTacToe,
		Rules:    tttRules,
		Mode:     entity.Ranked,
		Player1:  Participant{Identity: "alice", ConnID: "c1", DisplayName: "Alice"},
		Player2:  Participant{Identity: "bob", ConnID: "c2", DisplayName: "Bob"},
		Rand:     rand.New(rand.NewSource(1)),
		Now:      func() time.Time { return finishedAt },
	})
}

func playAll(t *testing.T, session *GameSession, moves ...entity.Move) Transition {
	t.Helper()

	var last Transition
	for _, move := range moves {
		transition, err := session.Move(move.Row, move.Col, move.Slot)
		require.NoError(t, err)
		last = transition
	}

	return last
}

func TestGameSession_Move(t *testing.T) {
	t.Run("Accepted move is broadcast and passes the turn", func(t *testing.T) {
		// Given: a fresh ranked session
		session := newRankedSession()

		// When: slot 1 plays the center
		transition, err := session.Move(1, 1, entity.Slot1)

		// Then: one update with the new turn and the last move
		require.NoError(t, err)
		require.Len(t, transition.Updates, 1)
		update := transition.Updates[0]
		assert.Equal(t, entity.Slot2, update.NextTurn)
		assert.Equal(t, entity.NoWinner, update.Winner)
		assert.Equal(t, &entity.Cell{Row: 1, Col: 1}, update.LastMove)
		assert.Equal(t, entity.Slot1, update.Board.At(1, 1))
		assert.False(t, transition.Finished())
	})

	t.Run("Out of turn, occupied and out of bounds moves change nothing", func(t *testing.T) {
		session := newRankedSession()
		playAll(t, session, entity.Move{Slot: entity.Slot1, Row: 0, Col: 0})
		before := session.Snapshot()

		_, err := session.Move(1, 1, entity.Slot1)
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)

		_, err = session.Move(0, 0, entity.Slot2)
		require.ErrorIs(t, err, apperror.ErrCellOccupied)

		_, err = session.Move(3, 0, entity.Slot2)
		require.ErrorIs(t, err, apperror.ErrCellOccupied)

		assert.Equal(t, before, session.Snapshot())
	})

	t.Run("Winning move finishes the session with its line", func(t *testing.T) {
		session := newRankedSession()

		transition := playAll(t, session,
			entity.Move{Slot: entity.Slot1, Row: 0, Col: 0},
			entity.Move{Slot: entity.Slot2, Row: 1, Col: 0},
			entity.Move{Slot: entity.Slot1, Row: 0, Col: 1},
			entity.Move{Slot: entity.Slot2, Row: 1, Col: 1},
			entity.Move{Slot: entity.Slot1, Row: 0, Col: 2},
		)

		require.True(t, transition.Finished())
		update := transition.Updates[0]
		assert.Equal(t, entity.WinnerOf(entity.Slot1), update.Winner)
		assert.Equal(t, entity.NoSlot, update.NextTurn)
		assert.Equal(t, []entity.Cell{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}}, update.WinningLine)

		result := transition.Result
		require.NotNil(t, result.WinnerID)
		assert.Equal(t, "alice", *result.WinnerID)
		assert.Equal(t, "room-1", result.RoomID)
		assert.Equal(t, entity.ReasonLine, result.Reason)
		assert.Len(t, result.Moves, 5)
		assert.Equal(t, finishedAt, result.FinishedAt)
		assert.True(t, session.IsFinished())

		_, err := session.Move(2, 2, entity.Slot2)
		assert.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Full board without a line is a draw", func(t *testing.T) {
		session := newRankedSession()

		transition := playAll(t, session,
			entity.Move{Slot: entity.Slot1, Row: 0, Col: 0},
			entity.Move{Slot: entity.Slot2, Row: 0, Col: 1},
			entity.Move{Slot: entity.Slot1, Row: 0, Col: 2},
			entity.Move{Slot: entity.Slot2, Row: 1, Col: 1},
			entity.Move{Slot: entity.Slot1, Row: 1, Col: 0},
			entity.Move{Slot: entity.Slot2, Row: 1, Col: 2},
			entity.Move{Slot: entity.Slot1, Row: 2, Col: 1},
			entity.Move{Slot: entity.Slot2, Row: 2, Col: 0},
			entity.Move{Slot: entity.Slot1, Row: 2, Col: 2},
		)

		require.True(t, transition.Finished())
		assert.Equal(t, entity.Draw, transition.Updates[0].Winner)
		assert.Empty(t, transition.Updates[0].WinningLine)
		assert.True(t, transition.Result.IsDraw())
		assert.Equal(t, entity.ReasonDraw, transition.Result.Reason)
	})
}

func TestGameSession_PracticeBot(t *testing.T) {
	newPractice := func(bot botPlayer) *GameSession {
		return NewGameSession(SessionOptions{
			RoomID:     "practice",
			GameType:   entity.Caro,
			Rules:      caroRules,
			Mode:       entity.Practice,
			Difficulty: entity.Hard,
			Player1:    Participant{Identity: "alice", ConnID: "c1"},
			Player2:    Participant{Identity: entity.BotID, DisplayName: entity.BotName(entity.Hard)},
			Bot:        bot,
			Rand:       rand.New(rand.NewSource(1)),
		})
	}

	t.Run("Bot answers inside the same transition", func(t *testing.T) {
		// Given: a bot that always plays next to the center
		bot := &mockBot{}
		bot.On("SelectMove", mock.MatchedBy(func(req service.MoveRequest) bool {
			return req.Me == entity.Slot2 && req.Difficulty == entity.Hard && req.Board.At(7, 10) == entity.Slot1
		}), mock.Anything).Return(entity.Cell{Row: 7, Col: 11}, nil).Once()
		session := newPractice(bot)

		// When: the human plays
		transition, err := session.Move(7, 10, entity.Slot1)

		// Then: two updates, the second is the bot's and the turn is back to the human
		require.NoError(t, err)
		require.Len(t, transition.Updates, 2)
		assert.Equal(t, &entity.Cell{Row: 7, Col: 11}, transition.Updates[1].LastMove)
		assert.Equal(t, entity.Slot1, transition.Updates[1].NextTurn)
		assert.Equal(t, entity.Slot2, transition.Updates[1].Board.At(7, 11))
		bot.AssertExpectations(t)
	})

	t.Run("Bot win finishes the practice session", func(t *testing.T) {
		bot := &mockBot{}
		session := newPractice(bot)
		for col := 0; col < 4; col++ {
			bot.On("SelectMove", mock.Anything, mock.Anything).Return(entity.Cell{Row: 0, Col: col}, nil).Once()
			_, err := session.Move(5, col*2, entity.Slot1)
			require.NoError(t, err)
		}
		bot.On("SelectMove", mock.Anything, mock.Anything).Return(entity.Cell{Row: 0, Col: 4}, nil).Once()

		transition, err := session.Move(10, 10, entity.Slot1)

		require.NoError(t, err)
		require.True(t, transition.Finished())
		assert.Equal(t, entity.WinnerOf(entity.Slot2), transition.Updates[1].Winner)
		assert.Equal(t, entity.BotID, *transition.Result.WinnerID)
		assert.Equal(t, entity.Hard, transition.Result.Difficulty)
	})

	t.Run("Bot failure leaves the turn with the bot", func(t *testing.T) {
		bot := &mockBot{}
		bot.On("SelectMove", mock.Anything, mock.Anything).Return(entity.Cell{}, service.ErrNoAvailableMoves).Once()
		session := newPractice(bot)

		transition, err := session.Move(7, 10, entity.Slot1)

		require.NoError(t, err)
		assert.Len(t, transition.Updates, 1)
	})
}

func TestGameSession_Undo(t *testing.T) {
	t.Run("Accepted undo takes back the latest move", func(t *testing.T) {
		// Given: two moves and an undo request from slot 2
		session := newRankedSession()
		playAll(t, session,
			entity.Move{Slot: entity.Slot1, Row: 0, Col: 0},
			entity.Move{Slot: entity.Slot2, Row: 1, Col: 1},
		)

		opponent, err := session.RequestUndo(entity.Slot2)
		require.NoError(t, err)
		assert.Equal(t, "alice", opponent.Identity)

		// When: slot 1 accepts
		transition, requester, err := session.ResolveUndo(entity.Slot1, true)

		// Then: the cell is empty again and slot 2 holds the turn
		require.NoError(t, err)
		assert.Equal(t, "bob", requester.Identity)
		require.Len(t, transition.Updates, 1)
		update := transition.Updates[0]
		assert.Equal(t, entity.NoSlot, update.Board.At(1, 1))
		assert.Equal(t, entity.Slot2, update.NextTurn)
		assert.Equal(t, &entity.Cell{Row: 0, Col: 0}, update.LastMove)
		assert.Equal(t, 1, update.Board.Filled())
	})

	t.Run("Declined undo changes nothing", func(t *testing.T) {
		session := newRankedSession()
		playAll(t, session, entity.Move{Slot: entity.Slot1, Row: 0, Col: 0})
		before := session.Snapshot()

		_, err := session.RequestUndo(entity.Slot1)
		require.NoError(t, err)

		transition, requester, err := session.ResolveUndo(entity.Slot2, false)

		require.NoError(t, err)
		assert.Empty(t, transition.Updates)
		assert.Equal(t, "c1", requester.ConnID)
		assert.Equal(t, before, session.Snapshot())
	})

	t.Run("Only the asked side can resolve", func(t *testing.T) {
		session := newRankedSession()
		playAll(t, session, entity.Move{Slot: entity.Slot1, Row: 0, Col: 0})

		_, _, err := session.ResolveUndo(entity.Slot2, true)
		require.ErrorIs(t, err, apperror.ErrNoPendingUndo)

		_, err = session.RequestUndo(entity.Slot1)
		require.NoError(t, err)

		_, _, err = session.ResolveUndo(entity.Slot1, true)
		assert.ErrorIs(t, err, apperror.ErrNoPendingUndo)
	})

	t.Run("A move cancels the pending request", func(t *testing.T) {
		session := newRankedSession()
		playAll(t, session, entity.Move{Slot: entity.Slot1, Row: 0, Col: 0})

		_, err := session.RequestUndo(entity.Slot1)
		require.NoError(t, err)
		playAll(t, session, entity.Move{Slot: entity.Slot2, Row: 2, Col: 2})

		_, _, err = session.ResolveUndo(entity.Slot2, true)
		assert.ErrorIs(t, err, apperror.ErrNoPendingUndo)
	})

	t.Run("Empty history has nothing to undo", func(t *testing.T) {
		session := newRankedSession()

		_, err := session.RequestUndo(entity.Slot1)
		require.NoError(t, err)

		transition, _, err := session.ResolveUndo(entity.Slot2, true)

		assert.ErrorIs(t, err, apperror.ErrNothingToUndo)
		assert.Empty(t, transition.Updates)
	})

	t.Run("Undo is refused once finished", func(t *testing.T) {
		session := newRankedSession()
		playAll(t, session, entity.Move{Slot: entity.Slot1, Row: 0, Col: 0})
		_, err := session.ClaimTimeout()
		require.NoError(t, err)

		_, err = session.RequestUndo(entity.Slot1)
		require.ErrorIs(t, err, apperror.ErrGameFinished)

		_, _, err = session.ResolveUndo(entity.Slot2, true)
		assert.ErrorIs(t, err, apperror.ErrGameFinished)
	})
}

func TestGameSession_Timeout(t *testing.T) {
	// Given: slot 2 holds the turn
	session := newRankedSession()
	playAll(t, session, entity.Move{Slot: entity.Slot1, Row: 0, Col: 0})

	// When: the timeout is claimed
	transition, err := session.ClaimTimeout()

	// Then: slot 1 wins by timeout
	require.NoError(t, err)
	require.True(t, transition.Finished())
	assert.Equal(t, entity.WinnerOf(entity.Slot1), transition.Updates[0].Winner)
	assert.Nil(t, transition.Updates[0].LastMove)
	assert.Equal(t, entity.ReasonTimeout, transition.Result.Reason)
	assert.Equal(t, "alice", *transition.Result.WinnerID)

	_, err = session.ClaimTimeout()
	assert.ErrorIs(t, err, apperror.ErrGameFinished)
}

func TestGameSession_Forfeit(t *testing.T) {
	t.Run("Leaving side loses", func(t *testing.T) {
		session := newRankedSession()

		transition, err := session.Forfeit(entity.Slot1)

		require.NoError(t, err)
		assert.Equal(t, "bob", *transition.Result.WinnerID)
		assert.Equal(t, entity.ReasonForfeit, transition.Result.Reason)

		_, err = session.Forfeit(entity.Slot2)
		assert.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Racing forfeits award exactly once", func(t *testing.T) {
		session := newRankedSession()

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			results []*entity.MatchResult
		)

		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(slot entity.Slot) {
				defer wg.Done()

				transition, err := session.Forfeit(slot)
				if err != nil {
					return
				}

				mu.Lock()
				results = append(results, transition.Result)
				mu.Unlock()
			}(entity.Slot(1 + i%2))
		}
		wg.Wait()

		assert.Len(t, results, 1)
	})
}

func TestGameSession_SlotOf(t *testing.T) {
	session := newRankedSession()

	assert.Equal(t, entity.Slot1, session.SlotOf("c1"))
	assert.Equal(t, entity.Slot2, session.SlotOf("c2"))
	assert.Equal(t, entity.NoSlot, session.SlotOf("c3"))
	assert.Equal(t, entity.NoSlot, session.SlotOf(""))
}
