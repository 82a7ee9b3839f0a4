package core

import "strings"

// assembleLines appends chunk to the carried remainder and splits the
// result on '\n'. Every segment except the last is a complete line;
// the last one, possibly empty, is returned as the new remainder.
//
// No line length limit is enforced, so a server that never sends a
// newline grows the remainder without bound.
func assembleLines(remainder string, chunk []byte) ([]string, string) {
	if len(chunk) == 0 {
		return nil, remainder
	}

	segments := strings.Split(remainder+string(chunk), "\n")
	last := len(segments) - 1

	return segments[:last], segments[last]
}
