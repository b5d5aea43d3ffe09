package models

import "time"

// Profile is the user document. Badges is the persisted, informational
// history of unlocked badge ids and may lag the live-computed set.
type Profile struct {
	DisplayName string     `json:"displayName" firestore:"displayName"`
	Email       string     `json:"email" firestore:"email"`
	JoinDate    *time.Time `json:"joinDate,omitempty" firestore:"joinDate"`
	Badges      []string   `json:"badges" firestore:"badges"`
}

// Exists reports whether the profile has been created.
func (p Profile) Exists() bool {
	return p.JoinDate != nil || p.DisplayName != "" || p.Email != ""
}

// Initial returns the first letter of the display name, or "U".
func (p Profile) Initial() string {
	for _, r := range p.DisplayName {
		return string(r)
	}
	return "U"
}

// MergeBadges adds ids to existing with set semantics, keeping first-seen order.
func MergeBadges(existing []string, ids ...string) []string {
	out := make([]string, 0, len(existing)+len(ids))
	seen := make(map[string]struct{}, cap(out))
	for _, id := range append(append([]string(nil), existing...), ids...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
