package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Duration is a task's time estimate in minutes. Only 15, 30, 60 and 120 are allowed.
type Duration int

const (
	Duration15  Duration = 15
	Duration30  Duration = 30
	Duration60  Duration = 60
	Duration120 Duration = 120
)

var durationNumerals = map[string]Duration{
	"15":  Duration15,
	"30":  Duration30,
	"60":  Duration60,
	"120": Duration120,
}

var ErrInvalidDuration = errors.New("duration must be 15, 30, 60, or 120")

// ParseDuration coerces a number or a numeral string into a Duration.
func ParseDuration(v any) (Duration, error) {
	var n int
	switch x := v.(type) {
	case Duration:
		n = int(x)
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, ErrInvalidDuration
		}
		n = int(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, ErrInvalidDuration
		}
		n = int(i)
	case string:
		d, ok := durationNumerals[x]
		if !ok {
			return 0, ErrInvalidDuration
		}
		return d, nil
	default:
		return 0, ErrInvalidDuration
	}

	d := Duration(n)
	if !d.Valid() {
		return 0, ErrInvalidDuration
	}
	return d, nil
}

func (d Duration) Valid() bool {
	switch d {
	case Duration15, Duration30, Duration60, Duration120:
		return true
	}
	return false
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("durationMinutes: %w", err)
	}
	parsed, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
