package recurrence

import (
	"time"
)

// MaxPreview bounds Config.NumPreview.
const MaxPreview = 1000

// Config holds the construction policy for a Rule
type Config struct {
	NumPreview         int            // Occurrences computed at construction; within [0, MaxPreview]
	DailyOrGreaterOnly bool           // Reject rules that repeat within a day
	ComparisonZone     *time.Location // Zone in which calendar dates are compared by Reconcile
}

// DefaultConfig provides the defaults used by New
var DefaultConfig = Config{
	NumPreview:         5,
	DailyOrGreaterOnly: true,
	ComparisonZone:     time.UTC,
}

// PermissiveConfig accepts hourly, minutely and secondly rules
var PermissiveConfig = Config{
	NumPreview:         5,
	DailyOrGreaterOnly: false,
	ComparisonZone:     time.UTC,
}
