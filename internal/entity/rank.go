package entity

const MaxLevel = 500

type Tier string

const (
	TierBronze  Tier = "Bronze"
	TierSilver  Tier = "Silver"
	TierGold    Tier = "Gold"
	TierCrystal Tier = "Crystal"
)

var tierThresholds = []struct {
	tier   Tier
	points int
}{
	{TierCrystal, 2000},
	{TierGold, 1000},
	{TierSilver, 500},
	{TierBronze, 0},
}

func TierFor(points int) Tier {
	for _, threshold := range tierThresholds {
		if points >= threshold.points {
			return threshold.tier
		}
	}

	return TierBronze
}

// RequiredXP is the total experience needed to reach level. The cost per level
// grows in bands of one hundred levels.
func RequiredXP(level int) int {
	switch {
	case level <= 1:
		return 0
	case level <= 101:
		return (level - 1) * 100
	case level <= 201:
		return 10000 + (level-101)*200
	case level <= 301:
		return 30000 + (level-201)*500
	case level <= 401:
		return 80000 + (level-301)*1000
	default:
		return 180000 + (level-401)*2000
	}
}

func LevelFromXP(xp int) int {
	level := 1
	for level < MaxLevel && RequiredXP(level+1) <= xp {
		level++
	}

	return level
}

// Reward is the rank change granted for one ranked outcome.
type Reward struct {
	Points int `yaml:"points"`
	XP     int `yaml:"xp"`
}

// ClampPoints keeps rank points from going negative.
func ClampPoints(points int) int {
	if points < 0 {
		return 0
	}

	return points
}

// RankAdjustment is a stored player after a rank change, with the level it had before.
type RankAdjustment struct {
	Player        Player
	PreviousLevel int
}

func (that *RankAdjustment) LevelChanged() bool {
	return that.PreviousLevel != that.Player.Level()
}
