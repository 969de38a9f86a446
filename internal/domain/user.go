package domain

import "time"

// GeoData is the resolved location for a postal code. It is computed once by
// the enrichment pipeline and replaces any prior value wholesale.
type GeoData struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone int     `json:"timezone"` // UTC offset in seconds
	CityName string  `json:"cityName"`
}

// User is the record stored at /users/{id}. The id is the store key, not a
// field. Writers set LastRequestID on every submission; the reconciler only
// ever touches GeoData (or deletes the record).
type User struct {
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	Zip           string    `json:"zip"`
	LastRequestID string    `json:"lastRequestId,omitempty"`
	LastUpdated   time.Time `json:"lastUpdated,omitzero"`
	GeoData       *GeoData  `json:"geoData,omitempty"`
}
