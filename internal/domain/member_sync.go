package domain

import "sort"

// MemberLink is a membership row to upsert: the row for Value is created or
// updated, and tombstoned when Removed is set.
type MemberLink struct {
	Value   string
	Removed bool
}

// PlanLegacyLinks converts a legacy member list into membership links.
// Legacy members still present in the current list become live links; the rest
// are recorded pre-tombstoned so their removal is preserved.
func PlanLegacyLinks(current *MemberSet, legacy []Member) []MemberLink {
	links := make([]MemberLink, 0, len(legacy))
	seen := make(map[string]struct{}, len(legacy))
	for _, m := range legacy {
		value := m.LinkValue()
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}

		var present bool
		if m.ID != "" {
			present = current.HasID(m.ID)
		} else {
			present = current.HasEmail(m.Email)
		}
		links = append(links, MemberLink{Value: value, Removed: !present})
	}
	return links
}

// MemberSyncPlan is the set of changes that makes stored membership rows match
// an authoritative member list.
type MemberSyncPlan struct {
	// Keep are live rows that already satisfy a member.
	Keep []TagMetadata
	// Revive are tombstoned rows brought back to satisfy a member.
	Revive []TagMetadata
	// Tombstone are live rows that no member claims.
	Tombstone []TagMetadata
	// Create holds link values for members with no usable row.
	Create []string
}

// IsEmpty reports whether applying the plan would change nothing.
func (p MemberSyncPlan) IsEmpty() bool {
	return len(p.Revive) == 0 && len(p.Tombstone) == 0 && len(p.Create) == 0
}

// PlanMemberSync matches stored membership rows against the current member set.
//
// Every current member is satisfied by exactly one live row. Rows are claimed in
// order of preference: a live row holding the member id, a live row holding the
// member email, a tombstoned id row, a tombstoned email row. Members left
// unsatisfied get a new row keyed by id, or by email when there is no id. Any
// live row not claimed, including duplicates, is tombstoned. Rows are visited in
// id order so the outcome does not depend on query order, and running the plan
// against its own result yields an empty plan.
func PlanMemberSync(current *MemberSet, stored []TagMetadata) MemberSyncPlan {
	rows := make([]TagMetadata, len(stored))
	copy(rows, stored)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	claimed := make([]bool, len(rows))
	members := current.Members()
	satisfied := make([]bool, len(members))

	var plan MemberSyncPlan

	claim := func(live bool, byID bool, onClaim func(row TagMetadata)) {
		for mi, m := range members {
			if satisfied[mi] {
				continue
			}
			if byID && m.ID == "" || !byID && m.Email == "" {
				continue
			}
			for ri, row := range rows {
				if claimed[ri] || row.IsDeleted() == live {
					continue
				}
				var match bool
				if byID {
					match = row.Value == m.ID
				} else {
					match = FoldEmail(row.Value) == FoldEmail(m.Email)
				}
				if !match {
					continue
				}
				claimed[ri] = true
				satisfied[mi] = true
				onClaim(row)
				break
			}
		}
	}

	keep := func(row TagMetadata) { plan.Keep = append(plan.Keep, row) }
	revive := func(row TagMetadata) { plan.Revive = append(plan.Revive, row) }

	claim(true, true, keep)
	claim(true, false, keep)
	claim(false, true, revive)
	claim(false, false, revive)

	for mi, m := range members {
		if !satisfied[mi] {
			plan.Create = append(plan.Create, m.LinkValue())
		}
	}

	for ri, row := range rows {
		if !claimed[ri] && !row.IsDeleted() {
			plan.Tombstone = append(plan.Tombstone, row)
		}
	}

	return plan
}
