package models

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the calendar date format used by every entity.
	DateLayout = "2006-01-02"
	// TimeLayout is the wall-clock format used by every entity.
	TimeLayout = "15:04"
)

// Flight is one scheduled flight segment as seen on a results page
type Flight struct {
	ID            string    `json:"id"`
	FlightNumber  string    `json:"flight_number"`
	Airline       string    `json:"airline"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureDate string    `json:"departure_date"`
	DepartureTime string    `json:"departure_time"`
	ArrivalDate   string    `json:"arrival_date"`
	ArrivalTime   string    `json:"arrival_time"`
	Duration      int       `json:"duration"` // minutes
	CreatedAt     time.Time `json:"created_at"`
}

// Departure combines the departure date and time in UTC
func (f Flight) Departure() (time.Time, error) {
	return combineDateTime(f.DepartureDate, f.DepartureTime)
}

// Arrival combines the arrival date and time in UTC
func (f Flight) Arrival() (time.Time, error) {
	return combineDateTime(f.ArrivalDate, f.ArrivalTime)
}

// Trip groups the flights of one itinerary; its ID is derived from them
type Trip struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Leg places a flight inside a trip direction
type Leg struct {
	ID             string    `json:"id"`
	Trip           string    `json:"trip"`
	Flight         string    `json:"flight"`
	Inbound        bool      `json:"inbound"`
	Order          int       `json:"order"`
	ConnectionTime *int      `json:"connection_time"`
	CreatedAt      time.Time `json:"created_at"`
}

// Deal is a bookable offer for a trip from one booking partner
type Deal struct {
	ID            string    `json:"id"`
	Trip          string    `json:"trip"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	IsRound       bool      `json:"is_round"`
	DepartureDate string    `json:"departure_date"`
	DepartureTime string    `json:"departure_time"`
	ReturnDate    *string   `json:"return_date"`
	ReturnTime    *string   `json:"return_time"`
	Source        string    `json:"source"`
	Provider      string    `json:"provider"`
	Price         int       `json:"price"` // minor currency units
	Link          string    `json:"link"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsRoundTrip reports whether the deal carries a return leg
func (d Deal) IsRoundTrip() bool {
	return d.ReturnDate != nil
}

func (d Deal) Departure() (time.Time, error) {
	return combineDateTime(d.DepartureDate, d.DepartureTime)
}

// Return yields the return departure, or the zero time and false for one-way deals
func (d Deal) Return() (time.Time, bool, error) {
	if d.ReturnDate == nil || d.ReturnTime == nil {
		return time.Time{}, false, nil
	}
	t, err := combineDateTime(*d.ReturnDate, *d.ReturnTime)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func combineDateTime(date, clock string) (time.Time, error) {
	t, err := time.Parse(DateLayout+" "+TimeLayout, date+" "+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, clock, err)
	}
	return t, nil
}
