// Package safefile provides file reads that reject symlinks and enforce
// size limits. Config and custom rule files go through here instead of
// os.ReadFile so a linked-in path cannot smuggle content from elsewhere
// on the filesystem.
package safefile

import (
	"fmt"
	"os"
)

// ReadFileMax reads path after verifying it is not a symlink and that
// the file size does not exceed maxBytes. Lstat (not Stat) does the
// symlink check so it is not followed through the link.
func ReadFileMax(path string, maxBytes int64) ([]byte, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("%s is a symbolic link (rejected for security)", path)
	}
	if info.Size() > maxBytes {
		return nil, fmt.Errorf("%s is too large (%d bytes, max %d)", path, info.Size(), maxBytes)
	}
	return os.ReadFile(path)
}
