package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat  string `yaml:"log-format" env:"LOG_FORMAT" env-default:"json"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`

	// CollaboratorTimeout bounds every background call to the history and rank stores.
	CollaboratorTimeout time.Duration `yaml:"collaborator-timeout" env:"COLLABORATOR_TIMEOUT" env-default:"5s"`

	Redis    Redis    `yaml:"redis"`
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
	Games    Games    `yaml:"games"`
	Bot      Bot      `yaml:"bot"`
	Rewards  Rewards  `yaml:"rewards"`
	Chat     Chat     `yaml:"chat"`
}

type Redis struct {
	Host     string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	NameTTL  time.Duration `yaml:"name-ttl" env:"REDIS_NAME_TTL" env-default:"10m"`
}

type Database struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite3"`
	DSN    string `yaml:"dsn" env:"DB_DSN" env-default:"file:arena.db?_foreign_keys=on"`
}

type Auth struct {
	JWTSecret   string `yaml:"jwt-secret" env:"JWT_SECRET"`
	AllowGuests bool   `yaml:"allow-guests" env:"AUTH_ALLOW_GUESTS" env-default:"true"`
}

type Games struct {
	TicTacToe entity.Rules `yaml:"tic-tac-toe"`
	Caro      entity.Rules `yaml:"caro"`
}

type BotLevel struct {
	RandomChance    float64 `yaml:"random-chance"`
	SearchDepth     int     `yaml:"search-depth"`
	CandidateRadius int     `yaml:"candidate-radius"`
	MaxCandidates   int     `yaml:"max-candidates"`
}

type Bot struct {
	MoveBudget time.Duration `yaml:"move-budget" env:"BOT_MOVE_BUDGET" env-default:"800ms"`
	CacheSize  int           `yaml:"cache-size" env:"BOT_CACHE_SIZE" env-default:"200000"`

	Easy   BotLevel `yaml:"easy"`
	Medium BotLevel `yaml:"medium"`
	Hard   BotLevel `yaml:"hard"`
}

type Rewards struct {
	WinPoints  int `yaml:"win-points" env:"REWARD_WIN_POINTS" env-default:"25"`
	WinXP      int `yaml:"win-xp" env:"REWARD_WIN_XP" env-default:"50"`
	LossPoints int `yaml:"loss-points" env:"REWARD_LOSS_POINTS" env-default:"-10"`
	LossXP     int `yaml:"loss-xp" env:"REWARD_LOSS_XP" env-default:"10"`
	DrawPoints int `yaml:"draw-points" env:"REWARD_DRAW_POINTS" env-default:"0"`
	DrawXP     int `yaml:"draw-xp" env:"REWARD_DRAW_XP" env-default:"20"`
}

type Chat struct {
	MaxLength int     `yaml:"max-length" env:"CHAT_MAX_LENGTH" env-default:"200"`
	Rate      float64 `yaml:"rate" env:"CHAT_RATE" env-default:"2"`
	Burst     int     `yaml:"burst" env:"CHAT_BURST" env-default:"5"`
}

var defaultBotLevels = map[entity.Difficulty]BotLevel{
	entity.Easy:   {RandomChance: 1, SearchDepth: 0, CandidateRadius: 2, MaxCandidates: 0},
	entity.Medium: {RandomChance: 0.2, SearchDepth: 1, CandidateRadius: 2, MaxCandidates: 0},
	entity.Hard:   {RandomChance: 0, SearchDepth: 2, CandidateRadius: 3, MaxCandidates: 20},
}

// LoadDotEnv - loads variables from a .env file into the process environment, a missing file is fine.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to load env file: %w", err)
	}

	return nil
}

// MustLoad - load all configurations in config.yml file, environment variables override it.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, config)
	} else {
		err = cleanenv.ReadEnv(config)
	}

	if err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	for _, gameType := range []entity.GameType{entity.TicTacToe, entity.Caro} {
		rules, err := that.Games.Rules(gameType)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		if err = rules.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, gameType, err)
		}
	}

	if that.Chat.MaxLength <= 0 {
		return fmt.Errorf("%w: chat max length must be positive", ErrInvalidConfig)
	}

	switch that.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, that.Database.Driver)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// Rules returns the configured shape for a game type, the built-in one when the section is absent.
func (that *Games) Rules(gameType entity.GameType) (entity.Rules, error) {
	var configured entity.Rules

	switch gameType {
	case entity.TicTacToe:
		configured = that.TicTacToe
	case entity.Caro:
		configured = that.Caro
	}

	if configured != (entity.Rules{}) {
		return configured, nil
	}

	return entity.DefaultRules(gameType)
}

// Level returns the bot parameters of a difficulty, the built-in ones when the section is absent.
func (that *Bot) Level(difficulty entity.Difficulty) BotLevel {
	var configured BotLevel

	switch difficulty {
	case entity.Easy:
		configured = that.Easy
	case entity.Medium:
		configured = that.Medium
	case entity.Hard:
		configured = that.Hard
	}

	if configured != (BotLevel{}) {
		return configured
	}

	return defaultBotLevels[entity.ParseDifficulty(string(difficulty))]
}

func (that *Rewards) Win() entity.Reward {
	return entity.Reward{Points: that.WinPoints, XP: that.WinXP}
}

func (that *Rewards) Loss() entity.Reward {
	return entity.Reward{Points: that.LossPoints, XP: that.LossXP}
}

func (that *Rewards) Draw() entity.Reward {
	return entity.Reward{Points: that.DrawPoints, XP: that.DrawXP}
}
