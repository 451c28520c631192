package graph

import "time"

// nowFunc is indirected so tests can pin timing without sleeping.
var nowFunc = time.Now //nolint:gochecknoglobals
