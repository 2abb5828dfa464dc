/*
Package filesystem provides the failure handling and publication primitives
used by every generator.

# Error kinds

Collaborators tag failures with a Kind (WithKind, Errorf). KindOf recovers the
kind, falling back to errno classification (ENOSPC, EBUSY, EACCES, ESTALE and
friends are transient, ENOENT is not found) and then to a handful of message
fragments known to be transient for the codec libraries in use.

# Retry

Do and DoValue run an operation under a Policy:

	err := filesystem.Do(ctx, "image_variant", filesystem.ImagePolicy(), func(attempt int) error {
	    return render(dst)
	})

Only KindTransient and KindEmptyOutput failures are retried. The delay before
retry n+1 is min(MaxDelay, BaseDelay*2^(n-1)).

# Publication

WriteAtomic and ReserveTemp/PublishFile write into a temp file in the
destination directory and rename it into place, so a final cache path is
either absent or complete. Zero-byte output is rejected with ErrEmptyOutput.
CreateExclusive backs lock records with O_CREATE|O_EXCL.
*/
package filesystem
