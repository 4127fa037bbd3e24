package model

import "time"

// Cluster is a density grouping of co-located vessels
type Cluster struct {
	Members   []string `json:"members"`
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lng"`
	Radius    float64  `json:"radius"`
}

// Count is the number of member vessels.
func (c Cluster) Count() int {
	return len(c.Members)
}

// Snapshot is the output of one refresh cycle.
type Snapshot struct {
	Sequence  uint64       `json:"sequence"`
	TakenAt   time.Time    `json:"taken_at"`
	HomeID    string       `json:"home_id,omitempty"`
	Positions []Position   `json:"positions"`
	Clusters  []Cluster    `json:"clusters"`
	Alerts    []Alert      `json:"alerts"`
	Active    []ActivePair `json:"active"`
}
