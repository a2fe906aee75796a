//go:build !linux

package file

func exchange(src, dst string) error { return renamePair(src, dst) }
