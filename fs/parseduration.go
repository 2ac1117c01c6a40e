package fs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Duration is a time.Duration which can be read from the config and
// the command line
type Duration time.Duration

// String turns a Duration into a string
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ParseDuration parses a duration string. Accepts anything
// time.ParseDuration does plus a "d" suffix for days. A bare number is
// taken as seconds.
func ParseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	multiplier := time.Second
	if strings.HasSuffix(s, "d") {
		multiplier = 24 * time.Hour
		s = s[:len(s)-1]
	}
	period, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("invalid duration %q", s)
	}
	return time.Duration(period * float64(multiplier)), nil
}

// Set a Duration
func (d *Duration) Set(s string) error {
	duration, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// Type of the value
func (d Duration) Type() string {
	return "Duration"
}

// Scan implements the fmt.Scanner interface
func (d *Duration) Scan(s fmt.ScanState, ch rune) error {
	token, err := s.Token(true, nil)
	if err != nil {
		return err
	}
	return d.Set(string(token))
}
