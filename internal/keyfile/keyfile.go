package keyfile

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadKeys loads API keys from a newline-delimited file.
// Each line is trimmed of surrounding whitespace; blank lines and lines
// starting with '#' are skipped. The returned slice preserves file order.
// A missing or unreadable file is an error: without input keys there is
// nothing to validate, so callers treat this as fatal.
func ReadKeys(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided key file path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	return keys, nil
}

// WriteActive writes the active keys to path, one key per line with a
// trailing comma. The trailing comma makes the file paste-ready for
// array literals and environment lists, matching the tool's historical
// output format. The file is created with 0600 permissions because it
// contains live credentials.
func WriteActive(path string, keys []string) error {
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(",\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write active key file: %w", err)
	}
	return nil
}
