// Package template resolves {{inputs.name}} placeholders. The installer
// renders its generated run scripts, desktop entry and polkit policy with it.
package template

import (
	"fmt"
	"regexp"
	"sort"
)

var inputRefRe = regexp.MustCompile(`\{\{inputs\.([^}]+)\}\}`)

// Context holds available values for template resolution.
type Context struct {
	Inputs map[string]string
}

// NewContext returns a context with the given inputs.
func NewContext(inputs map[string]string) *Context {
	if inputs == nil {
		inputs = map[string]string{}
	}
	return &Context{Inputs: inputs}
}

// Resolve replaces all {{inputs.Z}} in s. Anything else, shell expansions
// included, is left as written.
func Resolve(s string, ctx *Context) (string, error) {
	var resolveErr error
	result := inputRefRe.ReplaceAllStringFunc(s, func(match string) string {
		name := inputRefRe.FindStringSubmatch(match)[1]
		val, ok := ctx.Inputs[name]
		if !ok {
			resolveErr = fmt.Errorf("unresolved input %q", name)
			return match
		}
		return val
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return result, nil
}

// Inputs lists the distinct input names referenced by s, sorted.
func Inputs(s string) []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range inputRefRe.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names
}
