package engine

// View is the serialized representation of a resource.
type View struct {
	Name    string                 `json:"name"`
	Type    string                 `json:"type"`
	Status  State                  `json:"status"`
	Deleted bool                   `json:"deleted"`
	Details string                 `json:"details"`
	Config  map[string]interface{} `json:"config"`
}

// Summary aggregates counts over a set of resources.
type Summary struct {
	Total    int            `json:"total"`
	Active   int            `json:"active"`
	Deleted  int            `json:"deleted"`
	ByType   map[string]int `json:"by_type"`
	ByStatus map[string]int `json:"by_status"`
}

// Summarize computes a Summary in a single pass over the views.
func Summarize(views []View) Summary {
	s := Summary{
		Total:    len(views),
		ByType:   make(map[string]int),
		ByStatus: make(map[string]int),
	}
	for _, v := range views {
		if v.Deleted {
			s.Deleted++
		} else {
			s.Active++
		}
		s.ByType[v.Type]++
		s.ByStatus[v.Status.String()]++
	}
	return s
}
