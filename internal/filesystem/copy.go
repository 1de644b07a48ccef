package filesystem

import (
	"fmt"
	"io"
	"os"
	"time"
)

// CopyFile copies the contents of src to dst, creating or truncating dst. It does not
// write to a temporary file first, so an interrupted copy leaves a partial dst.
func CopyFile(src, dst string, config RetryConfig) (int64, error) {
	start := time.Now()
	volume := config.resolveVolume(dst)

	in, err := OpenWithRetry(src, config)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", src, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("copy %s: is a directory", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		observe().ObserveOperation(volume, "copy", time.Since(start).Seconds(), err)
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	observe().ObserveOperation(volume, "copy", time.Since(start).Seconds(), err)
	if err != nil {
		return n, fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return n, nil
}

// WriteFile writes data to path in place, creating or truncating it.
func WriteFile(path string, data []byte, config RetryConfig) error {
	start := time.Now()
	err := os.WriteFile(path, data, 0o644)
	observe().ObserveOperation(config.resolveVolume(path), "write", time.Since(start).Seconds(), err)
	return err
}
