//go:build linux

package atime

import (
	"os"
	"syscall"
	"time"
)

// Get returns the last-access time recorded in the inode.
func Get(fi os.FileInfo) time.Time {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return fi.ModTime()
	}
	return time.Unix(st.Atim.Sec, st.Atim.Nsec)
}
