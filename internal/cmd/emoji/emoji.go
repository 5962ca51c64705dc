// Package emoji provides the status symbols printed by refdata commands.
package emoji

const (
	// Success marks a completed import, export, migration or server start.
	Success = "✓"

	// Error prefixes a fatal command error.
	Error = "✗"

	// Stop marks a shutdown in progress.
	Stop = "■"

	// Warning prefixes a per-row import failure.
	Warning = "!"
)
