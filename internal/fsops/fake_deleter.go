package fsops

// FakeDeleter implements Deleter for testing
// Records all delete calls without performing actual deletions
type FakeDeleter struct {
	Calls []string

	// FailPaths maps a path to the error its deletion should return
	FailPaths map[string]error
}

func (f *FakeDeleter) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	if err, ok := f.FailPaths[path]; ok {
		return err
	}
	return nil
}

func (f *FakeDeleter) Rmdir(path string) error {
	f.Calls = append(f.Calls, "rmdir:"+path)
	if err, ok := f.FailPaths[path]; ok {
		return err
	}
	return nil
}
