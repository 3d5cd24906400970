package fsops

import "os"

// OSDeleter implements Deleter using real os package calls
type OSDeleter struct{}

func (OSDeleter) Remove(path string) error {
	return os.Remove(path)
}

// Rmdir removes an empty directory. os.Remove refuses non-empty
// directories, which is exactly the contract we want: the sweeper
// never removes a directory with contents.
func (OSDeleter) Rmdir(path string) error {
	return os.Remove(path)
}
