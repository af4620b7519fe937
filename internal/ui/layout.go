package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutDetailWidth is the minimum width to show a detail pane beside a list.
	LayoutDetailWidth = 90

	// LayoutExtraWideWidth is the threshold for extra-wide layouts.
	LayoutExtraWideWidth = 160
)

// Activity log limits.
const (
	// LogBufferLimit is the maximum number of log lines to keep in memory.
	LogBufferLimit = 5000
)

// Timing constants.
const (
	// LogRefreshInterval is how often the activity log is re-read while following.
	LogRefreshInterval = time.Second

	// FlashDuration is how long a status message stays in the header.
	FlashDuration = 4 * time.Second

	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second
)
