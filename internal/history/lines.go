package history

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
)

// readBufferSize sizes the per-file reader. Lines are not length-limited:
// a message carrying inline images can be many megabytes.
const readBufferSize = 64 * 1024

// eachLine calls fn with every line of path, numbered from 1, without the
// line terminator. fn returns false to stop early. The returned error is
// the open or read failure, if any.
func eachLine(path string, fn func(n int, line []byte) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return scanLines(f, fn)
}

func scanLines(r io.Reader, fn func(n int, line []byte) bool) error {
	reader := bufio.NewReaderSize(r, readBufferSize)
	n := 0
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			n++
			line = bytes.TrimSuffix(line, []byte("\n"))
			line = bytes.TrimSuffix(line, []byte("\r"))
			if !fn(n, line) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// readLine returns line n of path and whether it exists.
func readLine(path string, n int) ([]byte, bool, error) {
	var found []byte
	ok := false
	err := eachLine(path, func(i int, line []byte) bool {
		if i == n {
			found = append([]byte(nil), line...)
			ok = true
			return false
		}
		return true
	})
	return found, ok, err
}
