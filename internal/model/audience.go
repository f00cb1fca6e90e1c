// internal/model/audience.go
package model

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type AudienceType string

const (
	AudienceAll          AudienceType = "all"
	AudienceSpecialities AudienceType = "specialities"
	AudienceCustom       AudienceType = "custom"
)

func (t AudienceType) Valid() bool {
	switch t {
	case AudienceAll, AudienceSpecialities, AudienceCustom:
		return true
	}
	return false
}

// Audience is the targeting rule of a campaign. SubscriberCount is an
// estimate for display and is never authoritative.
type Audience struct {
	Type            AudienceType `json:"type"`
	SpecialityIDs   []string     `json:"specialityIds,omitempty"`
	SubscriberCount int          `json:"subscriberCount"`
}

// NewAudience normalizes ids (trimmed, deduplicated, sorted) and clamps the
// count at zero. Ids are only kept for the specialities type.
func NewAudience(t AudienceType, ids []string, count int) Audience {
	a := Audience{Type: t, SubscriberCount: count}
	if a.SubscriberCount < 0 {
		a.SubscriberCount = 0
	}
	if t == AudienceSpecialities {
		a.SpecialityIDs = NormalizeIDs(ids)
	}
	return a
}

// NormalizeIDs returns the distinct non-blank ids in ascending order. The
// result is never nil.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Validate checks the audience against the known specialities. A nil known
// set skips the membership check.
func (a Audience) Validate(known map[string]Speciality) error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Type,
			validation.Required,
			validation.In(AudienceAll, AudienceSpecialities, AudienceCustom),
		),
		validation.Field(&a.SpecialityIDs,
			validation.When(a.Type == AudienceSpecialities, validation.NotNil),
			validation.Each(validation.By(knownSpeciality(known))),
		),
		validation.Field(&a.SubscriberCount, validation.Min(0)),
	)
}

func knownSpeciality(known map[string]Speciality) validation.RuleFunc {
	return func(value interface{}) error {
		if known == nil {
			return nil
		}
		id, _ := value.(string)
		if _, ok := known[id]; !ok {
			return errors.New("unknown speciality " + id)
		}
		return nil
	}
}

func (a Audience) clone() Audience {
	out := a
	out.SpecialityIDs = cloneStrings(a.SpecialityIDs)
	return out
}
