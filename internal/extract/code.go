package extract

import (
	"strings"
)

// FencedCodeBlock returns the body of the first triple-backtick fenced
// block in s. The info string on the opening fence (```scad, ```cpp, ...)
// is discarded. Returns false if no complete fenced block exists.
func FencedCodeBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start == -1 {
		return "", false
	}
	rest := s[start+3:]

	// Drop the info string up to the first newline.
	nl := strings.IndexByte(rest, '\n')
	if nl == -1 {
		return "", false
	}
	rest = rest[nl+1:]

	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimRight(rest[:end], "\n"), true
}
