package action

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
)

// FileWrite implements file.write: create parents, then overwrite path with
// content. Optional param mode is an octal permission (default 0644).
type FileWrite struct{}

func (f *FileWrite) Execute(params map[string]string) (map[string]string, error) {
	path := params["path"]
	if path == "" {
		return nil, fmt.Errorf("file.write: missing required param 'path'")
	}
	content, ok := params["content"]
	if !ok {
		return nil, fmt.Errorf("file.write: missing required param 'content'")
	}
	mode, err := parseMode(params, "mode", 0o644)
	if err != nil {
		return nil, fmt.Errorf("file.write: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file.write: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return nil, fmt.Errorf("file.write: %w", err)
	}
	// WriteFile leaves the mode of an existing file alone.
	if err := os.Chmod(path, mode); err != nil {
		return nil, fmt.Errorf("file.write: %w", err)
	}
	return map[string]string{"path": path}, nil
}

func (f *FileWrite) DryRun(params map[string]string) string {
	return fmt.Sprintf("Would write %d bytes to %s", len(params["content"]), params["path"])
}

// FileCopy implements file.copy: copy src over dst, creating dst's parents.
// Optional param mode sets dst's permission; otherwise src's is kept.
type FileCopy struct{}

func (f *FileCopy) Execute(params map[string]string) (map[string]string, error) {
	src, dst := params["src"], params["dst"]
	if src == "" || dst == "" {
		return nil, fmt.Errorf("file.copy: missing required params 'src' and 'dst'")
	}
	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("file.copy: %w", err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return nil, fmt.Errorf("file.copy: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("file.copy: %s is a directory", src)
	}
	mode, err := parseMode(params, "mode", info.Mode().Perm())
	if err != nil {
		return nil, fmt.Errorf("file.copy: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("file.copy: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return nil, fmt.Errorf("file.copy: %w", err)
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("file.copy: %w", err)
	}
	if err := os.Chmod(dst, mode); err != nil {
		return nil, fmt.Errorf("file.copy: %w", err)
	}
	return map[string]string{"path": dst, "bytes": strconv.FormatInt(n, 10)}, nil
}

func (f *FileCopy) DryRun(params map[string]string) string {
	return fmt.Sprintf("Would copy %s to %s (overwriting)", params["src"], params["dst"])
}

// FileChmod implements file.chmod.
type FileChmod struct{}

func (f *FileChmod) Execute(params map[string]string) (map[string]string, error) {
	path := params["path"]
	if path == "" {
		return nil, fmt.Errorf("file.chmod: missing required param 'path'")
	}
	if params["mode"] == "" {
		return nil, fmt.Errorf("file.chmod: missing required param 'mode'")
	}
	mode, err := parseMode(params, "mode", 0)
	if err != nil {
		return nil, fmt.Errorf("file.chmod: %w", err)
	}
	if err := os.Chmod(path, mode); err != nil {
		return nil, fmt.Errorf("file.chmod: %w", err)
	}
	return map[string]string{"path": path}, nil
}

func (f *FileChmod) DryRun(params map[string]string) string {
	return fmt.Sprintf("Would set mode %s on %s", params["mode"], params["path"])
}

func parseMode(params map[string]string, key string, def os.FileMode) (os.FileMode, error) {
	raw := params[key]
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 8, 32)
	if err != nil || v > 0o777 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return os.FileMode(v), nil
}

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
