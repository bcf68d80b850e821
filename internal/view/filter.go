// Package view derives the filtered board shown to a user from raw categories and tasks.
package view

import (
	"fmt"
	"strings"

	"today-planner/internal/model"
)

// TimeBucket filters tasks by how much time the user has.
type TimeBucket string

const (
	TimeAll    TimeBucket = "All"
	Time15     TimeBucket = "15m"
	Time30     TimeBucket = "30m"
	Time45     TimeBucket = "45m"
	Time1h     TimeBucket = "1h"
	Time2hPlus TimeBucket = "2h+"
)

var bucketLimits = map[TimeBucket]model.Duration{
	Time15: 15,
	Time30: 30,
	Time45: 45,
	Time1h: 60,
}

func ParseTimeBucket(s string) (TimeBucket, error) {
	switch b := TimeBucket(strings.TrimSpace(s)); b {
	case "", TimeAll:
		return TimeAll, nil
	case Time15, Time30, Time45, Time1h, Time2hPlus:
		return b, nil
	}
	return "", fmt.Errorf("unknown time filter %q", s)
}

// Matches keeps tasks that fit in the bucket. 2h+ keeps only the longest tasks.
func (b TimeBucket) Matches(d model.Duration) bool {
	switch b {
	case TimeAll, "":
		return true
	case Time2hPlus:
		return d >= model.Duration120
	}
	limit, ok := bucketLimits[b]
	return ok && d <= limit
}

// EnergyFilter filters tasks by energy level, using display names.
type EnergyFilter string

const (
	EnergyAll    EnergyFilter = "All"
	EnergyLow    EnergyFilter = "Low"
	EnergyMedium EnergyFilter = "Medium"
	EnergyHigh   EnergyFilter = "High"
)

func ParseEnergyFilter(s string) (EnergyFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return EnergyAll, nil
	case "low":
		return EnergyLow, nil
	case "medium", "med":
		return EnergyMedium, nil
	case "high":
		return EnergyHigh, nil
	}
	return "", fmt.Errorf("unknown energy filter %q", s)
}

func (e EnergyFilter) Matches(level model.EnergyLevel) bool {
	if e == EnergyAll || e == "" {
		return true
	}
	return EnergyLabel(level) == string(e)
}

type Filter struct {
	Time   TimeBucket
	Energy EnergyFilter
}

func (f Filter) Matches(t model.Task) bool {
	return f.Time.Matches(t.DurationMinutes) && f.Energy.Matches(t.EnergyLevel)
}

func DurationLabel(d model.Duration) string {
	switch d {
	case model.Duration15:
		return "15 min"
	case model.Duration30:
		return "30 min"
	case model.Duration60:
		return "1 hour"
	case model.Duration120:
		return "2+ hours"
	case 0:
		return ""
	}
	return fmt.Sprintf("%d min", int(d))
}

func EnergyLabel(level model.EnergyLevel) string {
	switch level {
	case model.EnergyLow:
		return "Low"
	case model.EnergyMed:
		return "Medium"
	case model.EnergyHigh:
		return "High"
	}
	return ""
}
