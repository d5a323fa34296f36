package noip

import (
	"bufio"
	"io"
	"iter"
)

// maxLineSize bounds a single response line.
const maxLineSize = 64 * 1024

// Lines returns a single-pass iterator over the lines of r.
// Line terminators (LF or CRLF) are stripped. A read error is yielded once,
// after which iteration stops.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
		for scanner.Scan() {
			if !yield(scanner.Text(), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", err)
		}
	}
}
