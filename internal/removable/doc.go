// Package removable lists mounted removable drives and watches for block
// devices being plugged in or removed.
package removable
