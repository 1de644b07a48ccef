// Package archiver turns a save request into an archived capture.
//
// Coordinator.Submit sanitizes the label, asks the capture worker for a fresh
// snapshot, waits briefly for it to settle, and hands the archive write to the
// filesystem worker pool. The HTTP caller never waits for the write itself.
package archiver
