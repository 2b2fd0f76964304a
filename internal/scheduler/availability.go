package scheduler

import "github.com/example/roombooking/internal/timegrid"

// ComputeAvailableStarts lists the start slots in [open, close-duration] whose
// whole span avoids the occupied set. Keys are "HH:00:00".
func ComputeAvailableStarts(open, close, duration int, occupied timegrid.SlotSet) []string {
	if duration < 1 || duration > close-open {
		return []string{}
	}

	starts := make([]string, 0, close-open-duration+1)
	for h := open; h <= close-duration; h++ {
		if spanFree(h, duration, occupied) {
			starts = append(starts, timegrid.HoursToLabel(h))
		}
	}
	return starts
}

func spanFree(start, duration int, occupied timegrid.SlotSet) bool {
	for _, h := range timegrid.CoveredHours(start, duration) {
		if occupied.Contains(h) {
			return false
		}
	}
	return true
}

// OccupiedSlots derives the occupied set from bookings. Bookings must already
// be filtered to one room and date.
func OccupiedSlots(bookings []Booking) (timegrid.SlotSet, error) {
	set := timegrid.NewSlotSet()
	for _, b := range bookings {
		if err := b.Check(); err != nil {
			return nil, err
		}
		set.Add(b.StartHour, b.Duration)
	}
	return set, nil
}
