// Package ui provides the terminal user interface for larder.
//
// The interface is a single bubbletea program with three views:
//
//   - Extract: paste a YouTube link, follow the extraction job and work
//     through the checklist of ingredients or the shopping list
//   - Gallery: browse saved recipes, toggle favorites, delete cards and
//     page in older entries
//   - Settings: device and plan details plus a colorized tail of the
//     log file
//
// State lives in the stores of the extraction, gallery, device and consent
// packages. Run subscribes to each store and forwards snapshots into the
// program as messages, and a periodic tick pulls fresh snapshots so the view
// never depends on a missed notification. Blocking work (submit, results,
// save, swaps, restore) runs in tea.Cmds and reports back through typed
// messages defined in commands.go.
//
// Until the privacy notice has been accepted, every key goes to the consent
// modal. The paywall modal lists premium features and can restore a purchase
// through the device registrar.
//
// # Key Bindings
//
//   - Tab / Shift+Tab: cycle views
//   - ?: toggle help
//   - T: cycle theme
//   - Ctrl+C: exit
//
// The full map is in keys.go and is shown by the help overlay.
package ui
