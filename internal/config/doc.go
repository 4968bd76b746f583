// Package config loads the larder client configuration.
//
// # Configuration Discovery
//
// Load resolves settings in this order, later steps winning:
//
//  1. Built-in defaults (see Default)
//  2. The TOML file at the given path, or ~/.config/larder/config.toml
//  3. LARDER_BACKEND_URL, LARDER_DATA_DIR, LARDER_STORAGE and
//     LARDER_METRICS_ADDR from the environment
//
// A missing config file is not an error. LoadDotEnv can seed the environment
// from a .env file first; it never overrides variables that are already set.
//
// # TOML Format
//
//	backend_url = "http://localhost:3000"
//	data_dir = "~/.local/share/larder"
//	storage = "file"            # or "sqlite"
//	log_file = "~/.local/share/larder/larder.log"
//	log_level = "info"
//	metrics_addr = ""           # e.g. "127.0.0.1:9464"
//	job_poll_interval_ms = 1500
//	job_max_polls = 120
//	image_poll_interval_ms = 3000
//	image_max_attempts = 30
//	gallery_page_size = 20
//	fetch_video_metadata = true
//
// Every field is optional; empty or non-positive values fall back to the
// defaults. Paths accept a leading ~ and are made absolute.
//
// # Error Handling
//
// Load returns errors for unreadable files, invalid TOML and unknown storage
// backends. Config is a plain value; there is no global state.
package config
