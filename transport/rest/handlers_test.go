package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

type mockProfiles struct {
	mock.Mock
}

func (that *mockProfiles) GetProfile(ctx context.Context, identity string) (entity.Profile, error) {
	args := that.Called(ctx, identity)
	profile, _ := args.Get(0).(entity.Profile)
	return profile, args.Error(1)
}

type mockRanks struct {
	mock.Mock
}

func (that *mockRanks) Leaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	args := that.Called(ctx, limit)
	entries, _ := args.Get(0).([]entity.LeaderboardEntry)
	return entries, args.Error(1)
}

type mockMatches struct {
	mock.Mock
}

func (that *mockMatches) History(ctx context.Context, identity string, limit int) ([]entity.MatchResult, error) {
	args := that.Called(ctx, identity, limit)
	results, _ := args.Get(0).([]entity.MatchResult)
	return results, args.Error(1)
}

type fixture struct {
	profiles *mockProfiles
	ranks    *mockRanks
	matches  *mockMatches
	router   http.Handler
}

func newFixture() *fixture {
	f := &fixture{profiles: &mockProfiles{}, ranks: &mockRanks{}, matches: &mockMatches{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.router = NewRouter(NewHandlers(logger, f.profiles, f.ranks, f.matches))

	return f
}

func (that *fixture) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	that.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func TestPing(t *testing.T) {
	rec := newFixture().get("/ping")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestLeaderboard(t *testing.T) {
	t.Run("Limit is passed through", func(t *testing.T) {
		// Given: two ranked players
		f := newFixture()
		f.ranks.On("Leaderboard", mock.Anything, 2).Return([]entity.LeaderboardEntry{
			{Position: 1, ID: "alice", DisplayName: "Alice", RankPoints: 1200, Tier: entity.TierGold},
			{Position: 2, ID: "bob", DisplayName: "Bob", RankPoints: 300, Tier: entity.TierBronze},
		}, nil).Once()

		// When: the top two are requested
		rec := f.get("/leaderboard?limit=2")

		// Then: both come back in order
		require.Equal(t, http.StatusOK, rec.Code)

		var entries []entity.LeaderboardEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "alice", entries[0].ID)
		assert.Equal(t, 2, entries[1].Position)
		f.ranks.AssertExpectations(t)
	})

	t.Run("Missing limit uses the default", func(t *testing.T) {
		f := newFixture()
		f.ranks.On("Leaderboard", mock.Anything, 0).Return(nil, nil).Once()

		rec := f.get("/leaderboard")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("Bad limit is rejected", func(t *testing.T) {
		f := newFixture()

		rec := f.get("/leaderboard?limit=ten")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.ranks.AssertNotCalled(t, "Leaderboard", mock.Anything, mock.Anything)
	})

	t.Run("Service failure", func(t *testing.T) {
		f := newFixture()
		f.ranks.On("Leaderboard", mock.Anything, 0).Return(nil, errors.New("connection refused"))

		rec := f.get("/leaderboard")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestProfile(t *testing.T) {
	t.Run("Known player", func(t *testing.T) {
		f := newFixture()
		f.profiles.On("GetProfile", mock.Anything, "alice").Return(entity.Profile{
			ID:          "alice",
			DisplayName: "Alice",
			RankPoints:  1200,
			Level:       3,
			Tier:        entity.TierGold,
			Stats:       entity.MatchStats{Wins: 4, Losses: 1},
		}, nil).Once()

		rec := f.get("/players/alice")

		require.Equal(t, http.StatusOK, rec.Code)

		var profile entity.Profile
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
		assert.Equal(t, "Alice", profile.DisplayName)
		assert.Equal(t, 4, profile.Stats.Wins)
	})

	t.Run("Unknown player", func(t *testing.T) {
		f := newFixture()
		f.profiles.On("GetProfile", mock.Anything, "ghost").Return(nil, apperror.ErrNotFound)

		rec := f.get("/players/ghost")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHistory(t *testing.T) {
	t.Run("Matches of a player", func(t *testing.T) {
		f := newFixture()
		winner := "alice"
		f.matches.On("History", mock.Anything, "alice", 5).Return([]entity.MatchResult{
			{RoomID: "room-1", Player1ID: "alice", Player2ID: "bob", WinnerID: &winner, GameType: entity.TicTacToe},
		}, nil).Once()

		rec := f.get("/players/alice/matches?limit=5")

		require.Equal(t, http.StatusOK, rec.Code)

		var results []entity.MatchResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		require.Len(t, results, 1)
		assert.Equal(t, "room-1", results[0].RoomID)
		f.matches.AssertExpectations(t)
	})

	t.Run("Negative limit is rejected", func(t *testing.T) {
		f := newFixture()

		rec := f.get("/players/alice/matches?limit=-1")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
