package domain

// ConferenceInfo names one proceedings year importable via the conference
// factory job. The catalog is static configuration, not a database table —
// new conferences are added here as the importer gains coverage.
type ConferenceInfo struct {
	ID   string `json:"id"`   // matches the NormalizeConferenceKey suffix
	Name string `json:"name"` // venue name as queried against the Graph API
	Year int    `json:"year"`
}

var KnownConferences = []ConferenceInfo{
	{ID: "neurips2024", Name: "NeurIPS", Year: 2024},
	{ID: "icml2024", Name: "ICML", Year: 2024},
	{ID: "iclr2024", Name: "ICLR", Year: 2024},
	{ID: "acl2024", Name: "ACL", Year: 2024},
	{ID: "cvpr2024", Name: "CVPR", Year: 2024},
}

// ConferenceByID looks up a known conference by its bare id (no "conf/" prefix).
func ConferenceByID(id string) (ConferenceInfo, bool) {
	for _, c := range KnownConferences {
		if c.ID == id {
			return c, true
		}
	}
	return ConferenceInfo{}, false
}
