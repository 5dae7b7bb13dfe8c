package model

import (
	"math"
	"time"
)

const (
	MinScore         = 1
	MaxScore         = 5
	MaxCommentLength = 500
)

type Rating struct {
	ID            string
	AppointmentID string
	DoctorID      string
	UserID        string
	Score         int
	Comment       string
	CreatedAt     time.Time
}

// RoundRating rounds an average to one decimal, halves to even.
func RoundRating(avg float64) float64 {
	return math.RoundToEven(avg*10) / 10
}
