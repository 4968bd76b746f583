package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 80

	// LayoutMaxContentWidth caps the width of cards and lists.
	LayoutMaxContentWidth = 100
)

// Display limits.
const (
	// LogTailLines is how many log lines the settings view keeps.
	LogTailLines = 200

	// TeaserPlaceholders is the most placeholder rows shown for hidden
	// ingredients.
	TeaserPlaceholders = 3
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = 500 * time.Millisecond

	// FlashDuration is how long a status message stays in the footer.
	FlashDuration = 4 * time.Second

	// RequestTimeout bounds one-shot requests started from the UI.
	RequestTimeout = 20 * time.Second
)
