package entity

import "fmt"

const (
	BotID         = "ai"
	botNameFormat = "Bot AI (%s)"
)

// Player is the persistent profile behind an identity.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	RankPoints  int    `json:"rank_points"`
	XP          int    `json:"xp"`
}

func (that *Player) IsBot() bool {
	return that.ID == BotID
}

func (that *Player) Level() int {
	return LevelFromXP(that.XP)
}

func (that *Player) Tier() Tier {
	return TierFor(that.RankPoints)
}

func BotName(difficulty Difficulty) string {
	return fmt.Sprintf(botNameFormat, difficulty)
}

// GuestName is shown for identities without a stored profile.
func GuestName(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}

	return "Player " + id
}

// MatchStats counts the finished matches of one identity.
type MatchStats struct {
	Wins   int `json:"wins"`
	Draws  int `json:"draws"`
	Losses int `json:"losses"`
}

func (that MatchStats) Total() int {
	return that.Wins + that.Draws + that.Losses
}

// Profile is the public view of a player.
type Profile struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	RankPoints  int        `json:"rank_points"`
	XP          int        `json:"xp"`
	Level       int        `json:"level"`
	Tier        Tier       `json:"tier"`
	Stats       MatchStats `json:"stats"`
}

func NewProfile(player *Player, stats MatchStats) Profile {
	return Profile{
		ID:          player.ID,
		DisplayName: player.DisplayName,
		RankPoints:  player.RankPoints,
		XP:          player.XP,
		Level:       player.Level(),
		Tier:        player.Tier(),
		Stats:       stats,
	}
}

type LeaderboardEntry struct {
	Position    int    `json:"position"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	RankPoints  int    `json:"rank_points"`
	Tier        Tier   `json:"tier"`
}
