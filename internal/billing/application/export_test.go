package application

import "time"

func (s *SubscriptionService) SetClock(now func() time.Time) {
	s.now = now
}
