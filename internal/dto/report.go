package dto

// ChartPoint is one row of a day-grouped count
type ChartPoint struct {
	Name  string `json:"name,omitempty"`
	Day   string `json:"day"`
	Count uint64 `json:"count"`
}

// SummaryResponse holds the total view and action counts
type SummaryResponse struct {
	View   uint64 `json:"view"`
	Action uint64 `json:"action"`
}

// ErrorResponse represents an error printed by the report command
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
