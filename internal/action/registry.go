package action

import (
	"fmt"
	"sort"
)

// Action is the interface for built-in file operations. Every action is
// idempotent: applying it twice leaves the same filesystem state as once.
type Action interface {
	Execute(params map[string]string) (outputs map[string]string, err error)
	DryRun(params map[string]string) string
}

var registry = map[string]Action{}

func init() {
	registry["file.write"] = &FileWrite{}
	registry["file.copy"] = &FileCopy{}
	registry["file.chmod"] = &FileChmod{}
	registry["dir.copy"] = &DirCopy{}
	registry["path.chown"] = &PathChown{}
	registry["glob.chmod"] = &GlobChmod{}
}

// Get returns an action by name.
func Get(name string) (Action, error) {
	a, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	return a, nil
}

// Names lists the registered actions, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
