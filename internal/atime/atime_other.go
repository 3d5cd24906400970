//go:build !linux

package atime

import (
	"os"
	"time"
)

// Get falls back to ModTime where access time is not reliably
// reachable through os.FileInfo.Sys().
func Get(fi os.FileInfo) time.Time {
	return fi.ModTime()
}
