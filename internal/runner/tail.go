package runner

import (
	"bytes"
	"slices"
	"strings"
)

// tailLines returns at most n trailing lines of data, oldest first.
func tailLines(data []byte, n int) []string {
	data = bytes.TrimRight(data, "\n")
	if len(data) == 0 || n <= 0 {
		return nil
	}
	lines := make([]string, 0, n)
	end := len(data)
	for len(lines) < n {
		i := bytes.LastIndexByte(data[:end], '\n')
		lines = append(lines, strings.TrimSuffix(string(data[i+1:end]), "\r"))
		if i < 0 {
			break
		}
		end = i
	}
	slices.Reverse(lines)
	return lines
}
