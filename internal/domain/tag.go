package domain

// Tag is a user-defined label that tasks and members can be associated with.
// Members holds the legacy serialized member list; it is cleared once the list
// has been migrated into tag metadata rows.
type Tag struct {
	Syncable
	ID          int64  `json:"id"`
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Members     string `json:"-"`
	MemberCount int    `json:"member_count"`
}

// HasLegacyMembers reports whether the tag still carries an unmigrated member list.
func (t *Tag) HasLegacyMembers() bool {
	return t.Members != ""
}
