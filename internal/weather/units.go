package weather

// KnotsPerMS is the fixed conversion factor between meters per second and knots.
const KnotsPerMS = 1.943844

// MsToKnots converts a speed in meters per second to knots
func MsToKnots(speedMS float64) float64 {
	return speedMS * KnotsPerMS
}

// KnotsToMs converts a speed in knots to meters per second
func KnotsToMs(speedKnots float64) float64 {
	return speedKnots / KnotsPerMS
}
