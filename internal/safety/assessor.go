package safety

import "strings"

// crisisIndicators are the French crisis markers scanned in every message.
var crisisIndicators = []string{
	"suicide", "suicider", "mort", "mourir", "finir", "plus fort",
	"cris", "hurle", "insupportable", "plus capable", "abandonner",
}

// Level is the per-message safety assessment.
type Level string

const (
	LevelCrisis   Level = "crisis"
	LevelElevated Level = "elevated"
	LevelNormal   Level = "normal"
)

// Assess classifies a message and distress reading. Crisis language wins
// regardless of the distress score.
func Assess(distress float64, message string) Level {
	lower := strings.ToLower(message)
	for _, indicator := range crisisIndicators {
		if strings.Contains(lower, indicator) {
			return LevelCrisis
		}
	}

	switch {
	case distress >= 80:
		return LevelCrisis
	case distress >= 60:
		return LevelElevated
	default:
		return LevelNormal
	}
}

// Score maps a level to [0,1], higher is safer.
func (l Level) Score() float64 {
	switch l {
	case LevelCrisis:
		return 0.2
	case LevelElevated:
		return 0.5
	default:
		return 0.9
	}
}

// TierFor maps a per-message assessment to the intervention tier
// vocabulary. Low distress with a normal level counts as optimal.
func TierFor(level Level, distress float64) Tier {
	switch level {
	case LevelCrisis:
		return TierUnsafe
	case LevelElevated:
		if distress >= 75 {
			return TierWarning
		}
		return TierCaution
	default:
		if distress < 30 {
			return TierOptimal
		}
		return TierGood
	}
}
