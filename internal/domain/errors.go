package domain

import "fmt"

// InsufficientStockError reports a withdrawal or transfer that exceeds the
// available quantity at a location. The simulator always checks
// availability first, so seeing this error indicates a caller bug.
type InsufficientStockError struct {
	Location  Location
	Requested float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock at %s: requested %.3f, available %.3f",
		e.Location, e.Requested, e.Available)
}

// ForecastUnavailableError reports a missing forecast for a day the plan
// needs. Planning for that unit fails rather than silently assuming zero
// demand, which would suppress ordering and cause stockouts.
type ForecastUnavailableError struct {
	StoreID   int64
	SKUID     string
	DayOffset int
}

func (e *ForecastUnavailableError) Error() string {
	return fmt.Sprintf("forecast unavailable for store %d sku %s day %d",
		e.StoreID, e.SKUID, e.DayOffset)
}

// InvalidParameterError reports malformed policy parameters or inputs.
// These are programming errors and fail fast at construction time.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}
