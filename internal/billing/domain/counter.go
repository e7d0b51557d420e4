package domain

import "time"

// RegistrationCounterID is the only counter row the application uses.
const RegistrationCounterID int64 = 1

// RegistrationCounter is the single-row sequence behind registration
// orders. CurrentCount never decreases.
type RegistrationCounter struct {
	ID           int64
	CurrentCount int64
	UpdatedAt    time.Time
}
