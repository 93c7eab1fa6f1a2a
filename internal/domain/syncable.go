package domain

import "time"

// Syncable provides the timestamps shared by rows that replicate through sync.
// A nil DeletedAt means the row is live; tombstoned rows keep their data.
type Syncable struct {
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt time.Time  `json:"modified_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// Touch updates the ModifiedAt timestamp to the current time.
func (s *Syncable) Touch() {
	s.ModifiedAt = time.Now()
}

// InitTimestamps sets both CreatedAt and ModifiedAt to now.
func (s *Syncable) InitTimestamps() {
	now := time.Now()
	s.CreatedAt = now
	s.ModifiedAt = now
}

// IsDeleted returns true if this row has been tombstoned.
func (s *Syncable) IsDeleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted tombstones the row and bumps ModifiedAt so the change is picked up by sync.
func (s *Syncable) MarkDeleted() {
	now := time.Now()
	s.DeletedAt = &now
	s.ModifiedAt = now
}
