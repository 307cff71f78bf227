package fileutil

// SetRenameFunc replaces the rename primitive for the duration of a test.
func SetRenameFunc(fn func(string, string) error) (restore func()) {
	prev := renameFunc
	renameFunc = fn
	return func() { renameFunc = prev }
}
