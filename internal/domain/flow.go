package domain

// FlowResult is the provider's flow-segment reading at the centre of a bbox.
type FlowResult struct {
	BBox                BBox       `json:"bbox"`
	Zoom                int        `json:"zoom"`
	Point               Position   `json:"point"`
	FunctionalRoadClass string     `json:"frc"`
	CurrentSpeed        float64    `json:"currentSpeed"`
	FreeFlowSpeed       float64    `json:"freeFlowSpeed"`
	CurrentTravelTime   int        `json:"currentTravelTime"`
	FreeFlowTravelTime  int        `json:"freeFlowTravelTime"`
	Confidence          float64    `json:"confidence"`
	RoadClosure         bool       `json:"roadClosure"`
	Coordinates         []Position `json:"coordinates"`
}

// CongestionRatio is current speed over free-flow speed, 1 meaning free flow.
func (f FlowResult) CongestionRatio() float64 {
	if f.FreeFlowSpeed <= 0 {
		return 0
	}
	return f.CurrentSpeed / f.FreeFlowSpeed
}
