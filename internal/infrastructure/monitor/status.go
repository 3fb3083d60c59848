package monitor

import "time"

type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	Images     bool      `json:"images"`
	ImageCount int       `json:"image_count"`
	LastCheck  time.Time `json:"last_check"`
}
