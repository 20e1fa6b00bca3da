package database

import (
	"time"
)

// DailySummary represents one day of rolled-up weather_log rows
type DailySummary struct {
	ID           int64
	Date         time.Time
	MinWindKnots *float64
	MaxWindKnots *float64
	AvgWindKnots *float64
	MaxTemp      *float64
	RainSamples  int
	SampleCount  int
	CreatedAt    time.Time
}
