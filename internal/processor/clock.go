package processor

import "time"

// Clock enables deterministic testing across all three processors.
type Clock interface{ Now() time.Time }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
