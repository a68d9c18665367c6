package install

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// MinFreeBytes is the free space below which source verification warns.
const MinFreeBytes = 512 << 20

// freeBytes reports the space available to unprivileged users on the
// filesystem that holds path, or would hold it once created.
func freeBytes(path string) (uint64, error) {
	dir := filepath.Clean(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}
