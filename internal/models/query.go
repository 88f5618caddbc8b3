package models

// Location is the optional farm context attached to a query.
type Location struct {
	DistrictID    string  `json:"districtId" yaml:"-"`
	Name          string  `json:"name" yaml:"name"`
	SoilType      string  `json:"soilType" yaml:"soil_type"`
	AvgRainfallMM float64 `json:"avgRainfallMm" yaml:"avg_rainfall_mm"`
	Lat           float64 `json:"lat" yaml:"lat"`
	Lon           float64 `json:"lon" yaml:"lon"`
}

// AudioQuery is one inbound spoken question.
type AudioQuery struct {
	Audio    []byte
	MimeType string
	Filename string
	Language Language
	// DistrictID selects location context; empty or unknown ids are ignored.
	DistrictID string
}

// Query is the transcribed question handed to retrieval and generation.
type Query struct {
	Transcript string
	Language   Language
	Location   *Location
}
