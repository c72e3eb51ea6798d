package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SetEntry writes KEY=value into the .env file at path, replacing the
// existing assignment of key in place. Comments, order and blank lines are
// kept; the file is written with mode 0600.
func SetEntry(path, key, value string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}

	entry := key + "=" + quoteValue(value)
	if i := findKey(lines, key); i >= 0 {
		lines[i] = entry
	} else {
		lines = append(lines, entry)
	}
	return writeLines(path, lines)
}

// RemoveEntry deletes the assignment of key. It reports whether the key was
// present.
func RemoveEntry(path, key string) (bool, error) {
	lines, err := readLines(path)
	if err != nil {
		return false, err
	}
	i := findKey(lines, key)
	if i < 0 {
		return false, nil
	}
	lines = append(lines[:i], lines[i+1:]...)
	return true, writeLines(path, lines)
}

// Keys lists the keys assigned in the .env file, marking encrypted ones.
func Keys(path string) (map[string]bool, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool)
	for _, line := range lines {
		k, v, ok := splitAssignment(line)
		if ok {
			keys[k] = IsEncrypted(strings.Trim(v, `"'`))
		}
	}
	return keys, nil
}

func findKey(lines []string, key string) int {
	for i, line := range lines {
		if k, _, ok := splitAssignment(line); ok && k == key {
			return i
		}
	}
	return -1
}

func splitAssignment(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	trimmed = strings.TrimPrefix(trimmed, "export ")
	k, v, ok := strings.Cut(trimmed, "=")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), true
}

// readLines returns the lines of path; a missing file has none.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dotenv: %w", err)
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func writeLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create dotenv directory: %w", err)
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write dotenv: %w", err)
	}
	return nil
}

// quoteValue double-quotes values containing blanks, quotes or characters a
// shell would interpret.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, " \t\"'\\#$") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}
