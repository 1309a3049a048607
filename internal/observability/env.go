package observability

import (
	"bufio"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LoadDotEnv copies KEY=VALUE pairs from path into the process environment.
// Variables that are already set are left untouched and a missing file is
// not an error. It returns the number of variables applied.
func LoadDotEnv(logger *slog.Logger, path string) int {
	file, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to open env file", "path", path, "error", err)
		}
		return 0
	}
	defer file.Close()

	applied := 0
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			logger.Warn("skipping invalid env file entry", "path", path, "line", lineNumber)
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		parsed, err := decodeEnvValue(strings.TrimSpace(trimInlineComment(value)))
		if err != nil {
			logger.Warn("skipping invalid env file entry", "path", path, "line", lineNumber, "error", err)
			continue
		}
		if err := os.Setenv(key, parsed); err != nil {
			logger.Warn("failed to set env from file", "key", key, "line", lineNumber, "error", err)
			continue
		}
		applied++
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("failed to read env file", "path", path, "error", err)
	}
	if applied > 0 {
		logger.Debug("loaded environment from file", "path", path, "count", applied)
	}
	return applied
}

func trimInlineComment(value string) string {
	var inSingle, inDouble bool
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '#':
			if !inSingle && !inDouble {
				return strings.TrimSpace(value[:i])
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		}
	}
	return value
}

func decodeEnvValue(value string) (string, error) {
	switch {
	case len(value) >= 2 && strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'"):
		return value[1 : len(value)-1], nil
	case strings.HasPrefix(value, `"`):
		return strconv.Unquote(value)
	default:
		return value, nil
	}
}
