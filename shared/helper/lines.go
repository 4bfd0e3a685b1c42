package helper

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// ReadLine reads up to the next '\n' and strips the "\n" or "\r\n" terminator.
// A final line without terminator is returned as is. At end of input with
// nothing read it returns io.EOF.
func ReadLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSuffix(line, "\r"), nil
		}
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
