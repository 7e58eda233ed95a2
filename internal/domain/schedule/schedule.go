// Package schedule picks publication times from fixed daily UTC slots.
package schedule

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/viralclip/internal/domain/model"
)

// NextSlot returns the publish time for the earliest slot still open after now
// on the same UTC day, or the first slot of the next day. The minute is drawn
// uniformly from the slot's window using rng; when the window has already
// opened only minutes after now are eligible.
func NextSlot(now time.Time, slots []model.PublishSlot, rng *rand.Rand) (time.Time, error) {
	if len(slots) == 0 {
		return time.Time{}, ErrNoSlots
	}
	for _, s := range slots {
		if err := Validate(s); err != nil {
			return time.Time{}, err
		}
	}

	ordered := append([]model.PublishSlot(nil), slots...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Hour != ordered[j].Hour {
			return ordered[i].Hour < ordered[j].Hour
		}
		return ordered[i].MinuteLow < ordered[j].MinuteLow
	})

	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	nowMinute := now.Hour()*60 + now.Minute()

	for _, s := range ordered {
		if s.Hour*60+s.MinuteHigh <= nowMinute {
			continue
		}
		low := s.MinuteLow
		if s.Hour == now.Hour() && low <= now.Minute() {
			low = now.Minute() + 1
		}
		return at(day, s.Hour, draw(rng, low, s.MinuteHigh)), nil
	}

	first := ordered[0]
	return at(day.AddDate(0, 0, 1), first.Hour, draw(rng, first.MinuteLow, first.MinuteHigh)), nil
}

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func draw(rng *rand.Rand, low, high int) int {
	return low + rng.Intn(high-low+1)
}

// Validate checks the slot's hour and minute window.
func Validate(s model.PublishSlot) error {
	switch {
	case s.Hour < 0 || s.Hour > 23:
		return fmt.Errorf("%w: hour %d out of range", ErrInvalidSlot, s.Hour)
	case s.MinuteLow < 0 || s.MinuteLow > 59 || s.MinuteHigh < 0 || s.MinuteHigh > 59:
		return fmt.Errorf("%w: minutes %d-%d out of range", ErrInvalidSlot, s.MinuteLow, s.MinuteHigh)
	case s.MinuteLow > s.MinuteHigh:
		return fmt.Errorf("%w: minute low %d after high %d", ErrInvalidSlot, s.MinuteLow, s.MinuteHigh)
	}
	return nil
}

// ParseSlot parses "HH", "HH:MM" or "HH:MM-MM" into a slot.
// A bare hour covers the whole hour.
func ParseSlot(v string) (model.PublishSlot, error) {
	v = strings.TrimSpace(v)
	hourPart, minutePart, hasMinutes := strings.Cut(v, ":")

	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return model.PublishSlot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
	}
	s := model.PublishSlot{Hour: hour, MinuteLow: 0, MinuteHigh: 59}

	if hasMinutes {
		lowPart, highPart, hasRange := strings.Cut(minutePart, "-")
		if s.MinuteLow, err = strconv.Atoi(lowPart); err != nil {
			return model.PublishSlot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
		}
		s.MinuteHigh = s.MinuteLow
		if hasRange {
			if s.MinuteHigh, err = strconv.Atoi(highPart); err != nil {
				return model.PublishSlot{}, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
			}
		}
	}

	if err := Validate(s); err != nil {
		return model.PublishSlot{}, err
	}
	return s, nil
}

// ParseSlots parses every entry of vs.
func ParseSlots(vs []string) ([]model.PublishSlot, error) {
	out := make([]model.PublishSlot, 0, len(vs))
	for _, v := range vs {
		s, err := ParseSlot(v)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
