package models

import (
	"time"
)

// Update is one normalized parameter value sent to the dashboard
type Update struct {
	Parameter   string    `json:"parameter" bson:"parameter"`
	Category    string    `json:"category" bson:"category"`
	Value       string    `json:"value" bson:"value"`
	ReadingTime string    `json:"reading_time" bson:"reading_time"`
	PublishedAt time.Time `json:"published_at" bson:"published_at"`
}

// Alert describes a reading that fell outside its declared bounds
type Alert struct {
	Parameter   string  `json:"parameter"`
	Value       string  `json:"value"`
	ReadingTime string  `json:"reading_time"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
}
