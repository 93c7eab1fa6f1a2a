package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Member identifies a tag member by remote id, email, or both.
type Member struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// LinkValue is the value stored on a membership row for this member:
// the id when known, otherwise the email.
func (m Member) LinkValue() string {
	if m.ID != "" {
		return m.ID
	}
	return m.Email
}

// FoldEmail normalizes an email address for comparison.
func FoldEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// ParseMembers decodes a serialized member list: a JSON array of objects with
// optional "id" and "email" fields. Entries that are not objects, or that carry
// neither field, are skipped. An empty input yields no members.
func ParseMembers(data string) ([]Member, error) {
	if strings.TrimSpace(data) == "" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode member list: %w", err)
	}

	members := make([]Member, 0, len(raw))
	for _, entry := range raw {
		obj, ok := decodeObject(entry)
		if !ok {
			continue
		}
		members = append(members, Member{
			ID:    optString(obj["id"]),
			Email: optString(obj["email"]),
		})
	}
	return NormalizeMembers(members), nil
}

// NormalizeMembers trims member fields and drops members left with neither an
// id nor an email. The result is never nil.
func NormalizeMembers(members []Member) []Member {
	out := make([]Member, 0, len(members))
	for _, m := range members {
		m.ID = strings.TrimSpace(m.ID)
		m.Email = strings.TrimSpace(m.Email)
		if m.ID == "" && m.Email == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

func decodeObject(raw json.RawMessage) (map[string]any, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	return obj, true
}

// optString renders scalar JSON values as strings; null and composite values are empty.
func optString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// MemberSet indexes an authoritative member list by id and folded email.
type MemberSet struct {
	members []Member
	ids     map[string]struct{}
	emails  map[string]struct{}
}

// NewMemberSet builds a set from members after normalizing them, dropping
// duplicates by link value. An email-only member is dropped when its address
// belongs to a member with an id, or when it equals a member id, since both
// would claim the same membership row.
func NewMemberSet(members []Member) *MemberSet {
	members = NormalizeMembers(members)
	s := &MemberSet{
		ids:    make(map[string]struct{}),
		emails: make(map[string]struct{}),
	}

	covered := make(map[string]struct{})
	for _, m := range members {
		if m.ID == "" {
			continue
		}
		covered[FoldEmail(m.ID)] = struct{}{}
		if m.Email != "" {
			covered[FoldEmail(m.Email)] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		key := "id:" + m.ID
		if m.ID == "" {
			folded := FoldEmail(m.Email)
			if _, ok := covered[folded]; ok {
				continue
			}
			key = "email:" + folded
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		s.members = append(s.members, m)
		if m.ID != "" {
			s.ids[m.ID] = struct{}{}
		}
		if m.Email != "" {
			s.emails[FoldEmail(m.Email)] = struct{}{}
		}
	}
	return s
}

// Members returns the deduplicated members in input order.
func (s *MemberSet) Members() []Member {
	return s.members
}

// Len returns the number of distinct members.
func (s *MemberSet) Len() int {
	return len(s.members)
}

// HasID reports whether any member carries id.
func (s *MemberSet) HasID(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// HasEmail reports whether any member carries email, compared case-insensitively.
func (s *MemberSet) HasEmail(email string) bool {
	_, ok := s.emails[FoldEmail(email)]
	return ok
}
