package territory

// LocationStats is the per-location line of Stats.
type LocationStats struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Regions int    `json:"regions"`
}

type Stats struct {
	TotalLocations  int             `json:"totalLocations"`
	AssignedRegions int             `json:"assignedRegions"`
	Locations       []LocationStats `json:"locations"`
}

func (s *Store) Stats() Stats {
	st := Stats{
		TotalLocations:  len(s.order),
		AssignedRegions: len(s.index),
		Locations:       make([]LocationStats, 0, len(s.order)),
	}
	for _, id := range s.order {
		e := s.locations[id]
		st.Locations = append(st.Locations, LocationStats{
			ID:      id,
			Name:    e.loc.Name,
			Color:   e.loc.Color,
			Regions: e.regions.len(),
		})
	}
	return st
}
