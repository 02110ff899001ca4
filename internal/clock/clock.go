// Package clock provides the bot's time source: "now" in the configured
// zone, plus timer creation. Timers go through the same source so tests can
// drive everything with a mock clock.
package clock

import (
	"strings"
	"time"

	bclock "github.com/benbjohnson/clock"

	"remindbot/pkg/logx"
)

// Source is the single place the rest of the code asks for time.
type Source struct {
	clk bclock.Clock
	loc *time.Location
}

// New builds a real-time Source in the given IANA zone.
// An empty or unknown zone falls back to time.Local with a warning.
func New(timezone string, log logx.Logger) *Source {
	return &Source{clk: bclock.New(), loc: loadLocation(timezone, log)}
}

// NewMock builds a Source around a mock clock for tests.
func NewMock(clk *bclock.Mock, loc *time.Location) *Source {
	if loc == nil {
		loc = time.UTC
	}
	return &Source{clk: clk, loc: loc}
}

// Now returns the current time in the configured zone.
func (s *Source) Now() time.Time {
	return s.clk.Now().In(s.loc)
}

// Location returns the configured zone.
func (s *Source) Location() *time.Location { return s.loc }

// AfterFunc arms a one-shot timer on the underlying clock.
func (s *Source) AfterFunc(d time.Duration, f func()) *bclock.Timer {
	return s.clk.AfterFunc(d, f)
}

func loadLocation(tz string, log logx.Logger) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		if !log.IsZero() {
			log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		}
		return time.Local
	}
	return loc
}
