package timebudget

import (
	"fmt"
	"math"
)

const (
	DefaultMinutes = 30
	MaxMinutes     = 240
)

type Bounds struct {
	DefaultMinutes float64
	MaxMinutes     float64
}

func DefaultBounds() Bounds {
	return Bounds{DefaultMinutes: DefaultMinutes, MaxMinutes: MaxMinutes}
}

// Normalize substitutes the default for absent, non-positive or non-finite
// durations and caps the rest at MaxMinutes.
func (b Bounds) Normalize(minutes float64) float64 {
	def := b.DefaultMinutes
	if def <= 0 || math.IsNaN(def) || math.IsInf(def, 0) {
		def = DefaultMinutes
	}
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes <= 0 {
		return def
	}
	if b.MaxMinutes > 0 && minutes > b.MaxMinutes {
		return b.MaxMinutes
	}
	return minutes
}

func NormalizeMinutes(minutes float64) float64 {
	return DefaultBounds().Normalize(minutes)
}

func TotalSeconds(minutes float64) int {
	return int(math.Round(minutes * 60))
}

func RemainingMinutes(seconds int) float64 {
	if seconds < 0 {
		return 0
	}
	return float64(seconds) / 60
}

// FormatTime renders seconds as MM:SS. Minutes are not wrapped into hours.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	s := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

type Urgency string

const (
	UrgencyCalm     Urgency = "calm"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
)

func Classify(remainingSeconds, totalSeconds int) Urgency {
	if totalSeconds <= 0 {
		return UrgencyCritical
	}
	pct := float64(remainingSeconds) / float64(totalSeconds) * 100
	switch {
	case pct > 50:
		return UrgencyCalm
	case pct >= 25:
		return UrgencyWarning
	default:
		return UrgencyCritical
	}
}
