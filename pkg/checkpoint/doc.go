// Package checkpoint persists export state between runs.
//
// One JSON file is kept per deployment slug and child. It records a submitted
// but not yet downloaded export job, so an interrupted run can resume polling
// instead of rebuilding the archive, and the time of the last successful
// export, which backs incremental exports. Session tokens are never written.
//
// Files live in the platform data directory:
//   - Linux: $XDG_DATA_HOME/ebexport/checkpoints/ or ~/.local/share/ebexport/checkpoints/
//   - macOS: ~/Library/Application Support/ebexport/checkpoints/
//   - Windows: %APPDATA%/ebexport/checkpoints/
package checkpoint
