/*
Package workers sizes and runs the filesystem worker pool.

Filesystem work in snapbox (archiving a snapshot, copying to removable media,
deleting captures) is synchronous and can stall on slow USB media. It runs on a
fixed Pool so HTTP handlers hand it off instead of doing it on their own
goroutines, and so a burst of transfers cannot spawn unbounded goroutines.

# Sizing

Count uses GOMAXPROCS, which Go 1.19+ sets from container CPU limits:

	n := workers.ForIO(8) // 2 per CPU, max 8

FS_WORKERS overrides the computed count:

	FS_WORKERS=2 ./snapbox

# Pool

	pool := workers.NewPool(workers.ForIO(8), 64)
	defer pool.Stop()

	// fire and forget; the returned channel reports the job's error
	done, err := pool.Submit(ctx, "archive", func() error { ... })

	// submit and wait
	err := pool.Do(ctx, "delete", func() error { ... })
*/
package workers
