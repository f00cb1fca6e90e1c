// internal/model/speciality.go
package model

// Speciality is an interest group subscribers can be tagged with. It is
// reference data and never modified here.
type Speciality struct {
	ID              string `json:"id"`
	Libelle         string `json:"libelle"`
	SubscriberCount int    `json:"subscriberCount"`
}

// IndexSpecialities keys specialities by id.
func IndexSpecialities(list []Speciality) map[string]Speciality {
	out := make(map[string]Speciality, len(list))
	for _, s := range list {
		out[s.ID] = s
	}
	return out
}
