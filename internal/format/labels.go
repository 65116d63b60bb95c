package format

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrBadLabelFile reports a label-mapping file that cannot be read.
var ErrBadLabelFile = errors.New("format: bad label file")

// LoadLabelFile reads a label-mapping file: one label per line, in category
// index order. Surrounding whitespace is trimmed and blank lines are skipped.
func LoadLabelFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadLabelFile, err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		label := strings.TrimSpace(scanner.Text())
		if label == "" {
			continue
		}
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadLabelFile, path, err)
	}
	return labels, nil
}
