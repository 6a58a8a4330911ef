package usecase

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/arena-backend/internal/entity"
	"github.com/rocketscienceinc/arena-backend/internal/service"
)

type mockBot struct {
	mock.Mock
}

func (that *mockBot) SelectMove(req service.MoveRequest, rnd *rand.Rand) (entity.Cell, error) {
	args := that.Called(req, rnd)
	return args.Get(0).(entity.Cell), args.Error(1)
}

type mockProfiles struct {
	mock.Mock
}

func (that *mockProfiles) LookupDisplayName(ctx context.Context, identity string) (string, error) {
	args := that.Called(ctx, identity)
	return args.String(0), args.Error(1)
}

type mockHistory struct {
	mock.Mock
}

func (that *mockHistory) RecordMatchResult(ctx context.Context, result entity.MatchResult) error {
	return that.Called(ctx, result).Error(0)
}

type mockRanks struct {
	mock.Mock
}

func (that *mockRanks) ApplyRankAdjustment(ctx context.Context, identity string, points, xp int) error {
	return that.Called(ctx, identity, points, xp).Error(0)
}

type sentMessage struct {
	connID  string
	action  string
	payload any
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (that *recordingNotifier) Send(connID, action string, payload any) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.messages = append(that.messages, sentMessage{connID: connID, action: action, payload: payload})
}

func (that *recordingNotifier) sent(connID, action string) []any {
	that.mu.Lock()
	defer that.mu.Unlock()

	var payloads []any
	for _, message := range that.messages {
		if message.connID == connID && message.action == action {
			payloads = append(payloads, message.payload)
		}
	}

	return payloads
}

func (that *recordingNotifier) count(action string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	n := 0
	for _, message := range that.messages {
		if message.action == action {
			n++
		}
	}

	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
