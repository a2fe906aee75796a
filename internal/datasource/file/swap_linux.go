//go:build linux

package file

import (
	"errors"

	"golang.org/x/sys/unix"
)

// exchange atomically swaps src and dst with renameat2(RENAME_EXCHANGE).
// Filesystems without support fall back to a rename pair.
func exchange(src, dst string) error {
	err := unix.Renameat2(unix.AT_FDCWD, src, unix.AT_FDCWD, dst, unix.RENAME_EXCHANGE)
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EOPNOTSUPP) {
		return renamePair(src, dst)
	}
	return err
}
