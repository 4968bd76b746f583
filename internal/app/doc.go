// Package app is the composition root for Larder.
//
// New builds every component from a config.Config: the key-value store
// (file or SQLite), the API client and its credential source, the device
// store and registrar, the extraction session, the gallery service with its
// image back-fill, the consent store and the Prometheus registry. The TUI and
// the headless commands share this wiring.
//
// Run is the interactive entry point:
//
//  1. Load prefs.toml (config.toml is loaded by the caller)
//  2. New, then Load to hydrate the persisted stores
//  3. Start the metrics listener when metrics_addr is set
//  4. StartEntitlementSync in the background
//  5. ui.Run until the user quits or the context is cancelled
//
// # Entitlement sync
//
// StartEntitlementSync runs the launch Sync once: it registers the device on
// first launch or refreshes the premium flag of a registered one. After that
// it calls Refresh at a fixed interval, which only touches an already
// registered device. Failures are logged and never change the cadence; a
// registration that failed is attempted again on the next launch.
package app
