package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
	"github.com/rocketscienceinc/arena-backend/internal/usecase"
)

var ErrInvalidPayload = errors.New("invalid payload")

func decode(message *Message, target any) error {
	if len(message.Payload) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	if err := json.Unmarshal(message.Payload, target); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return nil
}

func (that *Server) handleJoin(ctx context.Context, client *Client, message *Message) error {
	var payload joinPayload
	if err := decode(message, &payload); err != nil {
		return err
	}

	gameType, err := entity.ParseGameType(payload.Type)
	if err != nil {
		return err
	}

	mode := entity.Ranked
	if payload.Mode != "" {
		if mode, err = entity.ParseMode(payload.Mode); err != nil {
			return err
		}
	}

	return that.manager.Join(ctx, usecase.JoinRequest{
		Identity:   client.identity,
		ConnID:     client.id,
		GameType:   gameType,
		Mode:       mode,
		Difficulty: entity.ParseDifficulty(payload.Difficulty),
	})
}

func (that *Server) handleCancel(_ context.Context, client *Client, _ *Message) error {
	that.manager.Cancel(client.id)
	return nil
}

func (that *Server) handleMove(_ context.Context, client *Client, message *Message) error {
	var payload movePayload
	if err := decode(message, &payload); err != nil {
		return err
	}

	if payload.Row == nil || payload.Col == nil {
		return fmt.Errorf("%w: row and col are required", ErrInvalidPayload)
	}

	return that.manager.Move(client.id, usecase.MoveCommand{
		RoomID: payload.RoomID,
		Row:    *payload.Row,
		Col:    *payload.Col,
		Slot:   entity.Slot(payload.Slot),
	})
}

func (that *Server) handleUndoRequest(_ context.Context, client *Client, message *Message) error {
	var payload roomPayload
	if err := decode(message, &payload); err != nil {
		return err
	}

	return that.manager.RequestUndo(client.id, payload.RoomID)
}

func (that *Server) handleUndoResolve(_ context.Context, client *Client, message *Message) error {
	var payload resolvePayload
	if err := decode(message, &payload); err != nil {
		return err
	}

	return that.manager.ResolveUndo(client.id, payload.RoomID, payload.Accept)
}

func (that *Server) handleTimeout(_ context.Context, client *Client, message *Message) error {
	var payload roomPayload
	if err := decode(message, &payload); err != nil {
		return err
	}

	return that.manager.ClaimTimeout(client.id, payload.RoomID)
}

func (that *Server) handleLeave(_ context.Context, client *Client, message *Message) error {
	var payload roomPayload
	if err := decode(message, &payload); err != nil {
		return err
	}

	return that.manager.Leave(client.id, payload.RoomID)
}

func (that *Server) handleChat(_ context.Context, client *Client, message *Message) error {
	if !client.chat.Allow() {
		return apperror.ErrRateLimited
	}

	var payload chatPayload
	if err := decode(message, &payload); err != nil {
		return err
	}

	return that.manager.Chat(client.id, payload.RoomID, payload.Message)
}
