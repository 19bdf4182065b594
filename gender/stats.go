package gender

// Stats aggregates a batch of entries by predicted label. Unknown is counted
// separately and never folded into a gender bucket.
type Stats struct {
	Male    int `json:"male"`
	Female  int `json:"female"`
	Unknown int `json:"unknown"`
	Total   int `json:"total"`
}

func Aggregate(entries []Entry) Stats {
	var s Stats
	for _, e := range entries {
		switch e.Label {
		case LabelMale:
			s.Male++
		case LabelFemale:
			s.Female++
		default:
			s.Unknown++
		}
		s.Total++
	}
	return s
}
