package domain

import "time"

// VisitEvent is emitted each time a pickup page is displayed for a found stop.
type VisitEvent struct {
	ID         string    `json:"id"`
	Company    string    `json:"company"`
	URLCode    string    `json:"urlCode"`
	Lang       string    `json:"lang"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Coordinates is the result of resolving a shortened map link.
type Coordinates struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	FinalURL string  `json:"finalUrl"`
}
