package removable

import (
	"golang.org/x/sys/unix"
)

// Space is the capacity of the filesystem holding a drive.
type Space struct {
	TotalBytes uint64 `json:"totalBytes"`
	FreeBytes  uint64 `json:"freeBytes"`
}

// statSpace reports the capacity of the filesystem containing path.
func statSpace(path string) (Space, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Space{}, err
	}
	bsize := uint64(st.Bsize) //nolint:gosec // block size is never negative
	return Space{
		TotalBytes: st.Blocks * bsize,
		FreeBytes:  st.Bavail * bsize,
	}, nil
}
