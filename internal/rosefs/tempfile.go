package rosefs

import (
	"fmt"
	"os"
)

// writeTempFile spills content to a scratch file carrying ext (with
// its leading dot, or empty) so a downstream tag reader or copy sees
// the same extension the user's original write did. The caller must
// invoke the returned cleanup once done.
func writeTempFile(content []byte, ext string) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "rosefs-special-op-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("rosefs: create scratch file: %w", err)
	}
	path = f.Name()
	cleanup = func() { os.Remove(path) }

	if _, err := f.Write(content); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("rosefs: write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("rosefs: close scratch file: %w", err)
	}
	return path, cleanup, nil
}
