package dto

// StopRequest is either an address or a coordinate pair.
type StopRequest struct {
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

type RouteRequest struct {
	Stops      []StopRequest `json:"stops"`
	ClosedTour *bool         `json:"closed_tour,omitempty"`
	Strategy   string        `json:"strategy,omitempty"`
}

type RouteStopResponse struct {
	Label      int     `json:"label"`
	InputIndex int     `json:"input_index"`
	Address    string  `json:"address"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

type LegResponse struct {
	From            int     `json:"from"`
	To              int     `json:"to"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type RouteResponse struct {
	Order                []int               `json:"order"`
	Stops                []RouteStopResponse `json:"stops"`
	Legs                 []LegResponse       `json:"legs"`
	Geometry             [][]float64         `json:"geometry"`
	TotalDistanceMeters  float64             `json:"total_distance_meters"`
	TotalDurationSeconds float64             `json:"total_duration_seconds"`
	TotalDistanceKm      float64             `json:"total_distance_km"`
	ClosedTour           bool                `json:"closed_tour"`
	Strategy             string              `json:"strategy"`
	MapURL               string              `json:"map_url"`
}
