// Package file loads runtime configuration from a TOML file and the
// environment, and watches the file for changes.
//
// Adapters:
//   - Loader: TOML file plus environment overrides
//   - Watcher: fsnotify-based hot reload of the research policy
package file
