// Package timegrid models the hour-aligned grid that room bookings live on.
//
// Hours are integers in the business timezone. A booking covering
// [start, start+duration) occupies one slot per hour, keyed "HH:00:00".
package timegrid

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSlotKey is returned when a slot key cannot be parsed.
var ErrInvalidSlotKey = errors.New("timegrid: invalid slot key")

// EnumerateHours returns the hours in [start, end).
func EnumerateHours(start, end int) []int {
	if end <= start {
		return nil
	}
	hours := make([]int, 0, end-start)
	for h := start; h < end; h++ {
		hours = append(hours, h)
	}
	return hours
}

// SlotLabel renders an hour on a 12-hour clock, e.g. "09:00 AM" or "01:00 PM".
func SlotLabel(hour int) string {
	suffix := "AM"
	if hour%24 >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%02d:00 %s", h, suffix)
}

// HoursToLabel renders the canonical slot key for an hour.
func HoursToLabel(hour int) string {
	return fmt.Sprintf("%02d:00:00", hour)
}

// ParseSlotKey parses "HH:00:00" or "HH:00" back into an hour.
func ParseSlotKey(key string) (int, error) {
	parts := strings.Split(strings.TrimSpace(key), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlotKey, key)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlotKey, key)
	}
	for _, rest := range parts[1:] {
		if rest != "00" {
			return 0, fmt.Errorf("%w: %q is not hour aligned", ErrInvalidSlotKey, key)
		}
	}
	return hour, nil
}

// SlotSet is a set of occupied hours for one room on one date.
type SlotSet map[int]struct{}

// NewSlotSet builds a set from the supplied hours.
func NewSlotSet(hours ...int) SlotSet {
	set := make(SlotSet, len(hours))
	for _, h := range hours {
		set[h] = struct{}{}
	}
	return set
}

// SlotSetFromKeys builds a set from "HH:00:00" keys.
func SlotSetFromKeys(keys []string) (SlotSet, error) {
	set := make(SlotSet, len(keys))
	for _, key := range keys {
		hour, err := ParseSlotKey(key)
		if err != nil {
			return nil, err
		}
		set[hour] = struct{}{}
	}
	return set, nil
}

// CoveredHours returns the hours covered by a booking starting at start.
func CoveredHours(start, duration int) []int {
	return EnumerateHours(start, start+duration)
}

// Add marks every hour in [start, start+duration) as occupied.
func (s SlotSet) Add(start, duration int) {
	for _, h := range CoveredHours(start, duration) {
		s[h] = struct{}{}
	}
}

// Contains reports whether the hour is occupied. A nil set contains nothing.
func (s SlotSet) Contains(hour int) bool {
	_, ok := s[hour]
	return ok
}

// Hours returns the occupied hours in ascending order.
func (s SlotSet) Hours() []int {
	hours := make([]int, 0, len(s))
	for h := range s {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

// Keys returns the occupied slot keys in ascending order.
func (s SlotSet) Keys() []string {
	hours := s.Hours()
	keys := make([]string, len(hours))
	for i, h := range hours {
		keys[i] = HoursToLabel(h)
	}
	return keys
}

// Clone returns an independent copy of the set.
func (s SlotSet) Clone() SlotSet {
	out := make(SlotSet, len(s))
	for h := range s {
		out[h] = struct{}{}
	}
	return out
}

// Slot pairs an hour with its display label and occupancy, as rendered in a day column.
type Slot struct {
	Hour     int
	Key      string
	Label    string
	Occupied bool
}

// Day lays out the slots of an operating window with occupancy applied.
func Day(open, close int, occupied SlotSet) []Slot {
	hours := EnumerateHours(open, close)
	slots := make([]Slot, len(hours))
	for i, h := range hours {
		slots[i] = Slot{
			Hour:     h,
			Key:      HoursToLabel(h),
			Label:    SlotLabel(h),
			Occupied: occupied.Contains(h),
		}
	}
	return slots
}

// Date is a calendar day without a time or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, fmt.Errorf("timegrid: invalid date %q: %w", value, err)
	}
	return DateOf(t, time.UTC), nil
}

// DateOf returns the calendar day of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// At returns the instant hour:00 on d in loc.
func (d Date) At(hour int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, hour, 0, 0, 0, loc)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.At(12, time.UTC).AddDate(0, 0, n), time.UTC)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.At(12, time.UTC).Weekday()
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.String() < other.String()
}

// StartOfWeek returns the Monday of the week containing d.
func (d Date) StartOfWeek() Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
