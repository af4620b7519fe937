// Package config loads shelf's configuration file.
//
// # Overview
//
// shelf needs to know where the library API lives, where to write its log and
// how patient to be with the network. All of it has defaults, so the config
// file is optional.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/shelf/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// The API base URL has its own override chain, applied by ResolveAPIURL:
// the --api flag, then the SHELF_API_URL environment variable, then api_url
// from the file, then http://127.0.0.1:8000.
//
// # TOML Format
//
//	api_url = "https://library.example.edu"
//	log_file = "~/.local/state/shelf/shelf.log"
//	request_timeout = "10s"
//	poll_interval = "30s"
//
// Durations use time.ParseDuration syntax. poll_interval is off when absent
// or zero and is never shorter than five seconds.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than a
// missing file, TOML syntax errors and durations that do not parse.
package config
