package experiment

import (
	"gosplit/domain/core"
)

// UserProfile carries the segment memberships and attributes an
// AudienceResolver knows about a user. A nil profile means nothing is
// known beyond the user id.
type UserProfile struct {
	Segments   []string          `json:"segments,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// AudienceFilter narrows an experiment or flag to a subset of users.
// Each populated dimension must match; an unset filter matches everyone.
type AudienceFilter struct {
	UserIDs    []core.UserID     `json:"user_ids,omitempty"`
	Segments   []string          `json:"segments,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// IsEmpty reports whether the filter constrains anything at all.
func (f *AudienceFilter) IsEmpty() bool {
	return f == nil || (len(f.UserIDs) == 0 && len(f.Segments) == 0 && len(f.Attributes) == 0)
}

// Matches evaluates the filter for a user. The allow-list is checked
// against the user id; segment and attribute predicates need a profile,
// and fail closed when none is available.
func (f *AudienceFilter) Matches(userID core.UserID, profile *UserProfile) bool {
	if f.IsEmpty() {
		return true
	}
	if len(f.UserIDs) > 0 {
		found := false
		for _, id := range f.UserIDs {
			if id == userID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Segments) > 0 {
		if profile == nil {
			return false
		}
		found := false
		for _, want := range f.Segments {
			for _, have := range profile.Segments {
				if want == have {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Attributes) > 0 {
		if profile == nil {
			return false
		}
		for key, want := range f.Attributes {
			if profile.Attributes[key] != want {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of the filter.
func (f *AudienceFilter) Clone() *AudienceFilter {
	if f == nil {
		return nil
	}
	cp := &AudienceFilter{
		UserIDs:  append([]core.UserID(nil), f.UserIDs...),
		Segments: append([]string(nil), f.Segments...),
	}
	if f.Attributes != nil {
		cp.Attributes = make(map[string]string, len(f.Attributes))
		for k, v := range f.Attributes {
			cp.Attributes[k] = v
		}
	}
	return cp
}
