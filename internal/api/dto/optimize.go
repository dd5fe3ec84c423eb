package dto

// OptimizeRequest carries a raw distance matrix. A null cell is a missing
// distance.
type OptimizeRequest struct {
	Distances  [][]*float64 `json:"distances"`
	ClosedTour bool         `json:"closed_tour"`
	Strategy   string       `json:"strategy,omitempty"`
}

type OptimizeResponse struct {
	Order         []int   `json:"order"`
	TotalDistance float64 `json:"total_distance"`
	Strategy      string  `json:"strategy"`
}

type LocateRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type LocateResponse struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}
