package main

import (
	"log"
	"os"

	"github.com/shopspring/decimal"

	"ticket-sniper/backend"
	"ticket-sniper/models"
)

func main() {
	srv := backend.NewServer(backend.Config{
		APIKeyHash: os.Getenv("API_KEY_HASH"),
		DevMode:    os.Getenv("ENVIRONMENT") != "production",
	})

	srv.SeedShows([]models.Show{
		{
			ID:             "evt-moonlight",
			Title:          "Moonlight Sonata Live",
			Artist:         "City Philharmonic",
			Venue:          "Grand Hall",
			City:           "New York",
			AvailableSeats: 120,
			Price:          decimal.NewFromInt(85),
			Sections:       []string{"concert"},
		},
		{
			ID:             "evt-arena",
			Title:          "Arena Rock Night",
			Artist:         "The Statics",
			Venue:          "Riverside Arena",
			City:           "New York",
			AvailableSeats: 40,
			Price:          decimal.NewFromInt(140),
			Sections:       []string{"concert"},
		},
		{
			ID:             "evt-soldout",
			Title:          "Sold Out Special",
			Venue:          "Basement Club",
			City:           "New York",
			AvailableSeats: 0,
			Price:          decimal.NewFromInt(25),
			Sections:       []string{"concert"},
		},
	})

	addr := os.Getenv("BACKEND_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	log.Fatal(srv.ListenAndServe(addr))
}
