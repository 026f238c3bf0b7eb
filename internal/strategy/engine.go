package strategy

import (
	"fmt"
	"math"

	"TickerScope/internal/model"
)

// BaseScore is the starting score of every symbol.
const BaseScore = 50

// Rules holds the point values of the scoring heuristic.
type Rules struct {
	StackBonus       int  `yaml:"stack_bonus"`
	SlopeBonus       int  `yaml:"slope_bonus"`
	MACDBonus        int  `yaml:"macd_bonus"`
	KDBonus          int  `yaml:"kd_bonus"`
	RequireMA10Slope bool `yaml:"require_ma10_slope"`
}

// DefaultRules returns the current rule set (score range 50~120).
func DefaultRules() Rules {
	return Rules{StackBonus: 20, SlopeBonus: 30, MACDBonus: 10, KDBonus: 10}
}

// LegacyRules returns the earliest rule set: a larger slope bonus that also
// requires a rising MA10.
func LegacyRules() Rules {
	return Rules{StackBonus: 20, SlopeBonus: 50, MACDBonus: 10, KDBonus: 10, RequireMA10Slope: true}
}

// MaxScore is the highest score reachable under the rules.
func (r Rules) MaxScore() int {
	return BaseScore + r.StackBonus + r.SlopeBonus + r.MACDBonus + r.KDBonus
}

// Validate rejects negative point values.
func (r Rules) Validate() error {
	for name, v := range map[string]int{
		"stack_bonus": r.StackBonus,
		"slope_bonus": r.SlopeBonus,
		"macd_bonus":  r.MACDBonus,
		"kd_bonus":    r.KDBonus,
	} {
		if v < 0 {
			return fmt.Errorf("scoring.%s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// Snapshot is the latest indicator state of one symbol.
type Snapshot struct {
	MA5      float64
	MA10     float64
	MA20     float64
	Slope5   float64
	Slope10  float64
	Slope20  float64
	MACDHist float64
	K        float64
	D        float64
}

// Factor is one scoring condition and whether it fired.
type Factor struct {
	Name   string
	Hit    bool
	Points int
}

// Evaluation is the scoring outcome for one symbol.
type Evaluation struct {
	Score      int
	Trend      string
	SpecialTag string
	Factors    []Factor
}

// Factor names.
const (
	FactorBullStack  = "bullish MA stack"
	FactorDualSlope  = "rising slopes"
	FactorMACD       = "MACD histogram positive"
	FactorKDCrossing = "K above D"
)

// Score applies the additive heuristic. NaN inputs never satisfy a condition.
func Score(s Snapshot, rules Rules) Evaluation {
	ev := Evaluation{Score: BaseScore, Trend: model.TrendRanging}

	add := func(name string, hit bool, points int) {
		f := Factor{Name: name, Hit: hit}
		if hit {
			f.Points = points
			ev.Score += points
		}
		ev.Factors = append(ev.Factors, f)
	}

	add(FactorBullStack, s.MA5 > s.MA10 && s.MA10 > s.MA20, rules.StackBonus)

	rising := s.Slope5 > 0 && s.Slope20 > 0
	if rules.RequireMA10Slope {
		rising = rising && s.Slope10 > 0
	}
	add(FactorDualSlope, rising, rules.SlopeBonus)
	if rising {
		ev.Trend = model.TrendStrong
		ev.SpecialTag = model.TrendStrong
	}

	add(FactorMACD, s.MACDHist > 0, rules.MACDBonus)
	add(FactorKDCrossing, s.K > s.D, rules.KDBonus)
	return ev
}

// EstimatedMove is the display-only projection max(slope20, slope5) * 10.
func EstimatedMove(slope5, slope20 float64) float64 {
	return math.Max(slope20, slope5) * 10
}
