package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Show is a purchasable event as reported by the inventory backend. It is
// fetched fresh on every probe and never persisted locally; the backend owns
// its lifecycle.
type Show struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Artist         string          `json:"artist,omitempty"`
	Venue          string          `json:"venue"`
	City           string          `json:"city,omitempty"`
	SaleTime       string          `json:"saleTime,omitempty"`
	AvailableSeats int             `json:"availableSeats"`
	Price          decimal.Decimal `json:"price"`
	Sections       []string        `json:"sections,omitempty"`
	ImageURL       string          `json:"imageUrl,omitempty"`
	EventURL       string          `json:"eventUrl,omitempty"`
}

type Seat struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ShowAvailability is one probe result for a show, with placeholder seat
// identifiers capped to keep payloads small.
type ShowAvailability struct {
	EventID      string          `json:"eventId"`
	Available    bool            `json:"available"`
	Price        decimal.Decimal `json:"price"`
	Seats        []Seat          `json:"seats"`
	Title        string          `json:"title,omitempty"`
	Venue        string          `json:"venue,omitempty"`
	ListingCount int             `json:"listingCount"`
	LastChecked  time.Time       `json:"lastChecked"`
}
