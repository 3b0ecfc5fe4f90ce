package model

// StoredStatus is the administrator-controlled flag persisted on a live session.
type StoredStatus string

const (
	StoredStatusActive   StoredStatus = "active"
	StoredStatusInactive StoredStatus = "inactive"
)

func (s StoredStatus) Valid() bool {
	return s == StoredStatusActive || s == StoredStatusInactive
}

// Toggled flips active and inactive.
func (s StoredStatus) Toggled() StoredStatus {
	if s == StoredStatusActive {
		return StoredStatusInactive
	}
	return StoredStatusActive
}

// DisplayStatus is derived from the stored status and the clock. Never persisted.
type DisplayStatus string

const (
	DisplayStatusUpcoming  DisplayStatus = "upcoming"
	DisplayStatusLive      DisplayStatus = "live"
	DisplayStatusCompleted DisplayStatus = "completed"
	DisplayStatusInactive  DisplayStatus = "inactive"
)
