package domain

import "time"

// KeyTagMember discriminates membership rows in tag metadata.
const KeyTagMember = "tagmember"

// TagMetadata is a key/value extension row attached to a tag.
// For membership rows the value is a member id or email address.
type TagMetadata struct {
	ID        int64      `json:"id"`
	TagID     int64      `json:"tag_id"`
	TagUUID   string     `json:"tag_uuid"`
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted returns true if the row is tombstoned.
func (m *TagMetadata) IsDeleted() bool {
	return m.DeletedAt != nil
}

// WriteOptions control side effects of a tag metadata write.
type WriteOptions struct {
	// SuppressOutstanding skips recording outstanding entries, used when the
	// change originated from the remote side and must not be echoed back.
	SuppressOutstanding bool `json:"suppress_outstanding"`
}

// OutstandingEntry is a pending column change on a tag metadata row waiting for outbound sync.
type OutstandingEntry struct {
	ID            int64     `json:"id"`
	TagMetadataID int64     `json:"tag_metadata_id"`
	Column        string    `json:"column"`
	Value         string    `json:"value"`
	CreatedAt     time.Time `json:"created_at"`
}
