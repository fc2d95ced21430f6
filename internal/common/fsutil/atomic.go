package fsutil

import (
	"os"

	"github.com/google/renameio/v2/maybe"
)

// WriteFileAtomic replaces path with data so readers see either the old or the
// new content. On platforms without atomic rename it degrades to a plain write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return maybe.WriteFile(path, data, perm)
}
