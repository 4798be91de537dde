package scan

import "time"

// nowFunc and sinceFunc are indirections over time.Now/time.Since so
// tests can stub elapsed-time measurement without sleeping.
var (
	nowFunc   = time.Now
	sinceFunc = time.Since
)
