package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/usecase"
	"github.com/rocketscienceinc/arena-backend/pkg/auth"
)

const (
	guestCookie    = "arena_guest"
	guestCookieTTL = 30 * 24 * time.Hour
	defaultBuffer  = 32
)

type gameManager interface {
	Connect(connID string)
	Disconnect(connID string)

	Join(ctx context.Context, req usecase.JoinRequest) error
	Cancel(connID string) int

	Move(connID string, cmd usecase.MoveCommand) error
	RequestUndo(connID, roomID string) error
	ResolveUndo(connID, roomID string, accept bool) error
	ClaimTimeout(connID, roomID string) error
	Leave(connID, roomID string) error
	Chat(connID, roomID, text string) error
}

type profileService interface {
	Register(ctx context.Context, identity, displayName string) error
}

type tokenVerifier interface {
	Enabled() bool
	Verify(token string) (*auth.Claims, error)
}

type Options struct {
	AllowGuests bool
	ChatRate    float64
	ChatBurst   int
	// SendBuffer is the outbound queue length per connection.
	SendBuffer int
	// ProfileTimeout bounds the profile update done on connect.
	ProfileTimeout time.Duration
}

type handlerFunc func(ctx context.Context, client *Client, message *Message) error

type Server struct {
	logger *slog.Logger

	hub      *Hub
	manager  gameManager
	profiles profileService
	verifier tokenVerifier
	opts     Options

	upgrader websocket.Upgrader
	handlers map[string]handlerFunc

	// connections counts upgraded sockets whose read loop has not finished yet
	connections sync.WaitGroup
}

func New(logger *slog.Logger, hub *Hub, manager gameManager, profiles profileService, verifier tokenVerifier, opts Options) *Server {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultBuffer
	}

	if opts.ProfileTimeout <= 0 {
		opts.ProfileTimeout = 5 * time.Second
	}

	server := &Server{
		logger:   logger.With("component", "websocket"),
		hub:      hub,
		manager:  manager,
		profiles: profiles,
		verifier: verifier,
		opts:     opts,

		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionJoin] = server.handleJoin
	server.handlers[actionCancel] = server.handleCancel
	server.handlers[actionMove] = server.handleMove
	server.handlers[actionUndoRequest] = server.handleUndoRequest
	server.handlers[actionUndoResolve] = server.handleUndoResolve
	server.handlers[actionTimeout] = server.handleTimeout
	server.handlers[actionLeave] = server.handleLeave
	server.handlers[actionChat] = server.handleChat

	return server
}

// Start - starts WebSocket server, it stops when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return that.Serve(ctx, listener)
}

// Serve - accepts connections on listener until ctx is done. It returns once every
// open socket is closed and its disconnect has been handled.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
		that.hub.CloseAll()
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	<-closed
	that.connections.Wait()

	return nil
}

// upgradeToWebSocket - resolves the identity, upgrades the connection and serves it until it closes.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	identity, header, err := that.authenticate(ctx, req)
	if err != nil {
		log.Debug("connection refused", "error", err)
		http.Error(writer, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	that.connections.Add(1)
	defer that.connections.Done()

	conn, err := that.upgrader.Upgrade(writer, req, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := newClient(uuid.NewString(), identity, conn, that.opts)

	that.hub.Register(client)
	that.manager.Connect(client.id)

	// registered after the shutdown closed every socket
	if ctx.Err() != nil {
		_ = conn.Close()
	}

	log = log.With("connID", client.id, "identity", identity)
	log.Info("WebSocket connection established")

	go client.writePump()

	that.handleMessages(ctx, client)

	that.manager.Disconnect(client.id)
	that.hub.Unregister(client)

	log.Info("WebSocket connection closed")
}

// authenticate - verifies the bearer token or falls back to a guest identity kept in a cookie.
func (that *Server) authenticate(ctx context.Context, req *http.Request) (string, http.Header, error) {
	if token := bearerToken(req); token != "" && that.verifier.Enabled() {
		claims, err := that.verifier.Verify(token)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", apperror.ErrUnauthorized, err)
		}

		if claims.Name != "" && that.profiles != nil {
			registerCtx, cancel := context.WithTimeout(ctx, that.opts.ProfileTimeout)
			defer cancel()

			if err = that.profiles.Register(registerCtx, claims.Subject, claims.Name); err != nil {
				that.logger.Error("failed to register profile", "identity", claims.Subject, "error", err)
			}
		}

		return claims.Subject, nil, nil
	}

	if !that.opts.AllowGuests {
		return "", nil, apperror.ErrUnauthorized
	}

	if cookie, err := req.Cookie(guestCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil, nil
	}

	identity := uuid.NewString()
	cookie := &http.Cookie{
		Name:     guestCookie,
		Value:    identity,
		Expires:  time.Now().Add(guestCookieTTL),
		Path:     "/ws",
		HttpOnly: true,
	}

	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())

	return identity, header, nil
}

// handleMessages - processes messages from the client until the socket closes.
func (that *Server) handleMessages(ctx context.Context, client *Client) {
	log := that.logger.With("method", "handleMessages", "connID", client.id)

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("connection closed unexpectedly", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Debug("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Debug("unknown action", "action", message.Action)
			continue
		}

		if err = handler(ctx, client, &message); err != nil {
			log.Debug("message dropped", "action", message.Action, "error", err)
		}
	}
}

func bearerToken(req *http.Request) string {
	if token := req.URL.Query().Get("token"); token != "" {
		return token
	}

	header := req.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}
