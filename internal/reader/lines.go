package reader

import (
	"fmt"
	"strings"

	"github.com/nxadm/tail"
)

// readLines reads every line currently in path. The file is opened without
// following, so the tail stops at EOF and closes its Lines channel. Polling
// keeps the package from registering inotify watches that would need
// Cleanup.
func readLines(path string) ([]string, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    false,
		ReOpen:    false,
		MustExist: true,
		Poll:      true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	var lines []string
	for line := range t.Lines {
		if line.Err != nil {
			continue
		}
		text := strings.TrimRight(line.Text, "\r")
		if text == "" {
			continue
		}
		lines = append(lines, text)
	}

	if err := t.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read log file %s: %w", path, err)
	}
	return lines, nil
}
