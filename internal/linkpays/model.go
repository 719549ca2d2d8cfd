package linkpays

import "time"

// Code is the one pending redeem code a user holds. Generating a new link
// replaces it.
type Code struct {
	Value     string
	Generated time.Time
	Redeemed  bool
}

// Error pages shown on the redeem route.
const (
	ErrorPageMissingCode = "HCLP001"
	ErrorPageTooEarly    = "HCLP002"
)
