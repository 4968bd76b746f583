// Package logtail reads the tail of the Larder log file and renders it for the
// settings screen.
//
// Read keeps a ring buffer of the last maxLines lines, so memory stays
// proportional to the window rather than the file. A missing file is not an
// error: the log may not exist until the first record is written.
//
// Parse understands the key=value lines produced by slog.TextHandler:
//
//	time=2026-10-17T09:12:44.120+02:00 level=INFO msg="job completed" job_id=job-1
//
// ColorizeLine renders a parsed line with a lipgloss Palette. Lines that are
// not key=value (panics, stray stderr output) are rendered unchanged.
package logtail
