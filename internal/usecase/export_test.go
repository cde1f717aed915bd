package usecase

import "time"

// SetClock replaces the time source and id generator.
func (s *ConversationService) SetClock(now func() time.Time, newID func() string) {
	s.now, s.newID = now, newID
}
