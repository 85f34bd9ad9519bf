package broker

import (
	"time"
)

const (
	SLASH = "/"
)

const (
	initSessionNum    = 1000
	clientQueueLength = 1000

	// backoff after a failed accept, e,g. too many open files
	acceptRetryDelay = 5 * time.Millisecond
)
