// Package trash implements the one storage primitive every deleting
// Library Mutator shares: moving a file or directory aside instead of
// removing it outright, so a mistaken delete_release/delete_collage/
// delete_playlist can still be recovered from disk.
package trash

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const dirName = "trash"

// MoveToTrash moves path into {cacheDir}/trash/{timestamp}-{basename},
// creating the trash directory if it doesn't exist yet, and returns the
// path it ended up at.
func MoveToTrash(cacheDir, path string) (string, error) {
	trashDir := filepath.Join(cacheDir, dirName)
	if err := os.MkdirAll(trashDir, 0o755); err != nil {
		return "", fmt.Errorf("trash: create trash dir: %w", err)
	}

	base := filepath.Base(strings.TrimRight(path, string(filepath.Separator)))
	stamp := time.Now().UTC().Format("20060102T150405.000000000Z")
	dest := filepath.Join(trashDir, stamp+"-"+base)

	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("trash: move %s: %w", path, err)
	}
	return dest, nil
}
