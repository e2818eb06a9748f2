package tomtom

import (
	"encoding/json"
	"time"
)

// IconCategory is TomTom's incident taxonomy.
type IconCategory int

const (
	CategoryUnknown             IconCategory = 0
	CategoryAccident            IconCategory = 1
	CategoryFog                 IconCategory = 2
	CategoryDangerousConditions IconCategory = 3
	CategoryRain                IconCategory = 4
	CategoryIce                 IconCategory = 5
	CategoryJam                 IconCategory = 6
	CategoryLaneClosed          IconCategory = 7
	CategoryRoadClosed          IconCategory = 8
	CategoryRoadWorks           IconCategory = 9
	CategoryWind                IconCategory = 10
	CategoryFlooding            IconCategory = 11
	CategoryBrokenDownVehicle   IconCategory = 14
)

var categoryNames = map[IconCategory]string{
	CategoryUnknown:             "Unknown",
	CategoryAccident:            "Accident",
	CategoryFog:                 "Fog",
	CategoryDangerousConditions: "DangerousConditions",
	CategoryRain:                "Rain",
	CategoryIce:                 "Ice",
	CategoryJam:                 "Jam",
	CategoryLaneClosed:          "LaneClosed",
	CategoryRoadClosed:          "RoadClosed",
	CategoryRoadWorks:           "RoadWorks",
	CategoryWind:                "Wind",
	CategoryFlooding:            "Flooding",
	CategoryBrokenDownVehicle:   "BrokenDownVehicle",
}

func (c IconCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Magnitude is TomTom's magnitudeOfDelay.
type Magnitude int

const (
	MagnitudeUnknown   Magnitude = 0
	MagnitudeMinor     Magnitude = 1
	MagnitudeModerate  Magnitude = 2
	MagnitudeMajor     Magnitude = 3
	MagnitudeUndefined Magnitude = 4 // road closures and other indefinite delays
)

// Incident is one feature of the incidentDetails response, flattened.
type Incident struct {
	ID               string
	IconCategory     IconCategory
	MagnitudeOfDelay Magnitude
	Description      string
	StartTime        *time.Time
	EndTime          *time.Time
	From             string
	To               string
	Length           float64
	Delay            int
	RoadNumbers      []string
	// Geometry is the raw GeoJSON geometry, usually a LineString.
	Geometry json.RawMessage
}

type wireEvent struct {
	Description  string `json:"description"`
	Code         int    `json:"code"`
	IconCategory int    `json:"iconCategory"`
}

type wireIncident struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties struct {
		ID               string      `json:"id"`
		IconCategory     int         `json:"iconCategory"`
		MagnitudeOfDelay int         `json:"magnitudeOfDelay"`
		Events           []wireEvent `json:"events"`
		StartTime        *time.Time  `json:"startTime"`
		EndTime          *time.Time  `json:"endTime"`
		From             string      `json:"from"`
		To               string      `json:"to"`
		Length           float64     `json:"length"`
		Delay            int         `json:"delay"`
		RoadNumbers      []string    `json:"roadNumbers"`
	} `json:"properties"`
}

// UnmarshalJSON flattens the GeoJSON feature into Incident.
func (i *Incident) UnmarshalJSON(data []byte) error {
	var w wireIncident
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p := w.Properties
	*i = Incident{
		ID:               p.ID,
		IconCategory:     IconCategory(p.IconCategory),
		MagnitudeOfDelay: Magnitude(p.MagnitudeOfDelay),
		StartTime:        p.StartTime,
		EndTime:          p.EndTime,
		From:             p.From,
		To:               p.To,
		Length:           p.Length,
		Delay:            p.Delay,
		RoadNumbers:      p.RoadNumbers,
		Geometry:         w.Geometry,
	}
	if len(p.Events) > 0 {
		i.Description = p.Events[0].Description
	}
	return nil
}

type IncidentsResponse struct {
	Incidents []Incident `json:"incidents"`
}

type flowResponse struct {
	FlowSegmentData struct {
		FRC                string  `json:"frc"`
		CurrentSpeed       float64 `json:"currentSpeed"`
		FreeFlowSpeed      float64 `json:"freeFlowSpeed"`
		CurrentTravelTime  int     `json:"currentTravelTime"`
		FreeFlowTravelTime int     `json:"freeFlowTravelTime"`
		Confidence         float64 `json:"confidence"`
		RoadClosure        bool    `json:"roadClosure"`
		Coordinates        struct {
			Coordinate []struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"coordinate"`
		} `json:"coordinates"`
	} `json:"flowSegmentData"`
}

// APIError is the error body TomTom returns on 4xx responses.
type APIError struct {
	DetailedError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"detailedError"`
	ErrorText string `json:"error"`
}

func (e APIError) Error() string {
	if e.DetailedError.Message != "" {
		return e.DetailedError.Code + ": " + e.DetailedError.Message
	}
	return e.ErrorText
}
