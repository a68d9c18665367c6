package action

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	cp "github.com/otiai10/copy"
)

// DefaultCopySkip names entries never copied into an installation.
const DefaultCopySkip = "venv,.git,__pycache__"

// DirCopy implements dir.copy: merge the src tree into dst, overwriting files
// that already exist. Param skip is a comma-separated list of entry names to
// leave out (default DefaultCopySkip).
type DirCopy struct{}

func (d *DirCopy) Execute(params map[string]string) (map[string]string, error) {
	src, dst := params["src"], params["dst"]
	if src == "" || dst == "" {
		return nil, fmt.Errorf("dir.copy: missing required params 'src' and 'dst'")
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("dir.copy: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dir.copy: %s is not a directory", src)
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return nil, fmt.Errorf("dir.copy: %w", err)
	}

	skip := skipSet(params)
	var files, size int64
	opts := cp.Options{
		OnSymlink: func(string) cp.SymlinkAction { return cp.Shallow },
		Skip: func(fi os.FileInfo, path, dest string) (bool, error) {
			if skip[fi.Name()] {
				return true, nil
			}
			// dst nested inside src must not be copied into itself.
			if abs, err := filepath.Abs(path); err == nil && abs == dstAbs {
				return true, nil
			}
			if err := clearDest(fi, dest); err != nil {
				return false, err
			}
			if fi.Mode().IsRegular() {
				files++
				size += fi.Size()
			}
			return false, nil
		},
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, fmt.Errorf("dir.copy: %w", err)
	}
	if err := cp.Copy(src, dst, opts); err != nil {
		return nil, fmt.Errorf("dir.copy: %w", err)
	}
	return map[string]string{
		"path":  dst,
		"files": strconv.FormatInt(files, 10),
		"bytes": strconv.FormatInt(size, 10),
		"size":  humanBytes(size),
	}, nil
}

// clearDest makes an entry left by an earlier copy replaceable by src.
// Links and entries of a different kind are removed; read-only files and
// directories get the owner write bit back until the copy resets their mode.
func clearDest(src os.FileInfo, dest string) error {
	existing, err := os.Lstat(dest)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	isLink := existing.Mode()&os.ModeSymlink != 0
	if src.Mode()&os.ModeSymlink != 0 || isLink || src.IsDir() != existing.IsDir() {
		return os.RemoveAll(dest)
	}
	if perm := existing.Mode().Perm(); perm&0o200 == 0 {
		return os.Chmod(dest, perm|0o200)
	}
	return nil
}

func (d *DirCopy) DryRun(params map[string]string) string {
	skip := params["skip"]
	if skip == "" {
		skip = DefaultCopySkip
	}
	return fmt.Sprintf("Would copy tree %s into %s (overwriting, skipping %s)", params["src"], params["dst"], skip)
}

func skipSet(params map[string]string) map[string]bool {
	raw, ok := params["skip"]
	if !ok {
		raw = DefaultCopySkip
	}
	set := map[string]bool{}
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = true
		}
	}
	return set
}

// PathChown implements path.chown: hand path (and, with recursive=true,
// everything below it) to uid:gid. Symlinks are re-owned, never followed.
type PathChown struct{}

func (p *PathChown) Execute(params map[string]string) (map[string]string, error) {
	path := params["path"]
	if path == "" {
		return nil, fmt.Errorf("path.chown: missing required param 'path'")
	}
	uid, err := strconv.Atoi(params["uid"])
	if err != nil {
		return nil, fmt.Errorf("path.chown: invalid uid %q", params["uid"])
	}
	gid, err := strconv.Atoi(params["gid"])
	if err != nil {
		return nil, fmt.Errorf("path.chown: invalid gid %q", params["gid"])
	}

	if params["recursive"] != "true" {
		if err := os.Lchown(path, uid, gid); err != nil {
			return nil, fmt.Errorf("path.chown: %w", err)
		}
		return map[string]string{"path": path, "count": "1"}, nil
	}

	count := 0
	err = filepath.WalkDir(path, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		count++
		return os.Lchown(p, uid, gid)
	})
	if err != nil {
		return nil, fmt.Errorf("path.chown: %w", err)
	}
	return map[string]string{"path": path, "count": strconv.Itoa(count)}, nil
}

func (p *PathChown) DryRun(params map[string]string) string {
	scope := ""
	if params["recursive"] == "true" {
		scope = " recursively"
	}
	return fmt.Sprintf("Would chown %s to %s:%s%s", params["path"], params["uid"], params["gid"], scope)
}

// GlobChmod implements glob.chmod: add the permission bits in param add to
// every regular file under root whose name matches pattern.
type GlobChmod struct{}

func (g *GlobChmod) Execute(params map[string]string) (map[string]string, error) {
	root, pattern := params["root"], params["pattern"]
	if root == "" || pattern == "" {
		return nil, fmt.Errorf("glob.chmod: missing required params 'root' and 'pattern'")
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("glob.chmod: bad pattern %q: %w", pattern, err)
	}
	add, err := parseMode(params, "add", 0o111)
	if err != nil {
		return nil, fmt.Errorf("glob.chmod: %w", err)
	}

	count := 0
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		count++
		if info.Mode().Perm()&add == add {
			return nil
		}
		return os.Chmod(p, info.Mode().Perm()|add)
	})
	if err != nil {
		return nil, fmt.Errorf("glob.chmod: %w", err)
	}
	return map[string]string{"root": root, "count": strconv.Itoa(count)}, nil
}

func (g *GlobChmod) DryRun(params map[string]string) string {
	add := params["add"]
	if add == "" {
		add = "111"
	}
	return fmt.Sprintf("Would add mode %s to files matching %s under %s", add, params["pattern"], params["root"])
}
