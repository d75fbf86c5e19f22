// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runctx carries the ambient process state a launch touches
// (environment, working directory, home directory, stderr) as an explicit
// value, so configuration logic can run against a fake during tests.
package runctx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Context is the mutable run-wide state threaded through the launcher.
// Env holds the complete environment for the engine subprocess; mutations
// stay local to the Context until Environ is handed to os/exec.
type Context struct {
	WorkDir string
	HomeDir string
	Env     map[string]string
	Stderr  io.Writer
}

// System captures the real process state.
func System() (*Context, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return &Context{
		WorkDir: wd,
		HomeDir: home,
		Env:     env,
		Stderr:  os.Stderr,
	}, nil
}

// Getenv returns the value for key, or empty when unset.
func (c *Context) Getenv(key string) string {
	if c == nil || c.Env == nil {
		return ""
	}
	return c.Env[key]
}

// Setenv records a value for the engine subprocess environment.
func (c *Context) Setenv(key, value string) {
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
	c.Env[key] = value
}

// PrependPath puts dir in front of the recorded PATH.
func (c *Context) PrependPath(dir string) {
	path := c.Getenv("PATH")
	if path == "" {
		c.Setenv("PATH", dir)
		return
	}
	c.Setenv("PATH", dir+string(os.PathListSeparator)+path)
}

// Environ renders the environment as sorted KEY=VALUE pairs for os/exec.
func (c *Context) Environ() []string {
	if c == nil || c.Env == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+c.Env[k])
	}
	return out
}

// ExpandUser replaces a leading ~ with the context home directory, matching
// the launcher's historical tilde handling. Paths without a leading ~ are
// returned unchanged.
func (c *Context) ExpandUser(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	if path == "~" {
		return c.HomeDir
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return filepath.Join(c.HomeDir, path[2:])
	}
	// ~otheruser is left alone; resolving foreign home dirs is not supported.
	return path
}

// Errorf reports a user-facing configuration problem on the context stderr.
func (c *Context) Errorf(format string, args ...any) {
	w := c.Stderr
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, format+"\n", args...)
}
