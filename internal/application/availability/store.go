package availability

import "github.com/example/bookingwidget/internal/domain/booking"

// Store holds the host's fetched free slots. The held sequence is replaced
// wholesale and never mutated in place.
type Store struct {
	slots     []booking.TimeSlot
	populated bool
}

func NewStore() *Store { return &Store{} }

// Replace normalizes slots and swaps them in. Slots with start >= end are
// dropped and counted. clearEmpty is true only for the first replace that
// leaves the store non-empty.
func (s *Store) Replace(slots []booking.TimeSlot) (clearEmpty bool, dropped int) {
	next := make([]booking.TimeSlot, 0, len(slots))
	for _, sl := range slots {
		if sl.Validate() != nil {
			dropped++
			continue
		}
		next = append(next, sl)
	}
	s.slots = next
	if len(next) > 0 && !s.populated {
		s.populated = true
		return true, dropped
	}
	return false, dropped
}

func (s *Store) Append(slots []booking.TimeSlot) (clearEmpty bool, dropped int) {
	all := make([]booking.TimeSlot, 0, len(s.slots)+len(slots))
	all = append(all, s.slots...)
	all = append(all, slots...)
	return s.Replace(all)
}

func (s *Store) IsEmpty() bool { return len(s.slots) == 0 }

func (s *Store) Len() int { return len(s.slots) }

// Offers reports whether slot matches a held slot exactly, start and end.
func (s *Store) Offers(slot booking.TimeSlot) bool {
	for _, held := range s.slots {
		if held.Start.Equal(slot.Start) && held.End.Equal(slot.End) {
			return true
		}
	}
	return false
}

func (s *Store) Slots() []booking.TimeSlot {
	return append([]booking.TimeSlot(nil), s.slots...)
}
