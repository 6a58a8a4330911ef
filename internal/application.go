package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/arena-backend/internal/config"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
	"github.com/rocketscienceinc/arena-backend/internal/repository"
	"github.com/rocketscienceinc/arena-backend/internal/repository/storage"
	"github.com/rocketscienceinc/arena-backend/internal/service"
	"github.com/rocketscienceinc/arena-backend/internal/usecase"
	"github.com/rocketscienceinc/arena-backend/pkg/auth"
	"github.com/rocketscienceinc/arena-backend/transport/rest"
	"github.com/rocketscienceinc/arena-backend/transport/websocket"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr(), conf.Redis.Password, conf.Redis.DB)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqlStorage, err := storage.New(conf.Database.Driver, conf.Database.DSN)
	if err != nil {
		return fmt.Errorf("could not open %s storage: %w", conf.Database.Driver, err)
	}

	defer func() {
		if err = sqlStorage.Close(); err != nil {
			log.Error("could not close sql storage", "error", err)
		}
	}()

	if err = sqlStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sql storage: %w", err)
	}

	playerRepo := repository.NewPlayerRepository(sqlStorage.Connection, sqlStorage.Driver)
	matchRepo := repository.NewMatchRepository(sqlStorage.Connection, sqlStorage.Driver)
	playerCache := repository.NewPlayerCache(redisStorage.Connection, conf.Redis.NameTTL)

	profileService := service.NewProfileService(logger, playerRepo, playerCache, matchRepo)
	rankService := service.NewRankService(logger, playerRepo, playerCache)
	matchService := service.NewMatchService(logger, matchRepo)
	botService := service.NewBotService(botOptions(conf))

	rules, err := gameRules(conf)
	if err != nil {
		return err
	}

	hub := websocket.NewHub(logger)
	manager := usecase.NewGameManager(logger, usecase.Options{
		Rules: rules,
		Rewards: usecase.Rewards{
			Win:  conf.Rewards.Win(),
			Loss: conf.Rewards.Loss(),
			Draw: conf.Rewards.Draw(),
		},
		ChatMaxLength:       conf.Chat.MaxLength,
		CollaboratorTimeout: conf.CollaboratorTimeout,
	}, botService, profileService, matchService, rankService, hub)

	// runs before the stores close: forfeits of sockets closed by the shutdown are written too
	defer manager.Wait()

	verifier := auth.NewVerifier(conf.Auth.JWTSecret)
	if !verifier.Enabled() {
		log.Warn("JWT secret is not set, only guest connections are possible")
	}

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		handlers := rest.NewHandlers(logger, profileService, rankService, matchService)
		httpErr := rest.Start(ctx, conf.HTTPPort, handlers)
		if httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
		}
		httpErrCh <- httpErr
	}()

	// run Websocket server, it returns once every socket is closed and disconnected
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, hub, manager, profileService, verifier, websocket.Options{
			AllowGuests:    conf.Auth.AllowGuests,
			ChatRate:       conf.Chat.Rate,
			ChatBurst:      conf.Chat.Burst,
			ProfileTimeout: conf.CollaboratorTimeout,
		})
		wsErr := wsServer.Start(ctx, conf.SocketPort)
		if wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
		}
		wsErrCh <- wsErr
	}()

	select {
	case err = <-httpErrCh:
		cancel()
		<-wsErrCh
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		cancel()
		<-httpErrCh
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		<-httpErrCh
		<-wsErrCh
		return nil
	}
}

func gameRules(conf *config.Config) (map[entity.GameType]entity.Rules, error) {
	rules := make(map[entity.GameType]entity.Rules, 2)

	for _, gameType := range []entity.GameType{entity.TicTacToe, entity.Caro} {
		gameRules, err := conf.Games.Rules(gameType)
		if err != nil {
			return nil, fmt.Errorf("could not resolve %s rules: %w", gameType, err)
		}

		rules[gameType] = gameRules
	}

	return rules, nil
}

func botOptions(conf *config.Config) service.BotOptions {
	levels := make(map[entity.Difficulty]service.BotLevel, 3)

	for _, difficulty := range []entity.Difficulty{entity.Easy, entity.Medium, entity.Hard} {
		level := conf.Bot.Level(difficulty)
		levels[difficulty] = service.BotLevel{
			RandomChance:    level.RandomChance,
			SearchDepth:     level.SearchDepth,
			CandidateRadius: level.CandidateRadius,
			MaxCandidates:   level.MaxCandidates,
		}
	}

	return service.BotOptions{
		Levels:     levels,
		MoveBudget: conf.Bot.MoveBudget,
		CacheSize:  conf.Bot.CacheSize,
	}
}
