// Package handlers provides the HTTP handlers for the capture appliance.
//
// It includes handlers for:
//   - Triggering a capture and archiving it under a label
//   - Browsing, viewing and deleting archived captures
//   - Copying captures to removable drives
//   - One-shot status messages from earlier operations
//   - Health checks and build information
package handlers
