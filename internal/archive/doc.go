// Package archive manages the sandboxed tree of archived captures:
//
//	<sandbox root>/<label>/<YYYY-MM-DD_HH.MM.SS>.jpg
//
// Catalog lists directories and lazily removes label directories that have become
// empty. Deleter removes one capture and, when that empties its label directory,
// the directory too. Transfer copies captures to removable media. Store writes new
// captures. Every path that arrives from a client is checked by a sandbox.Sandbox
// before anything touches the filesystem.
package archive
