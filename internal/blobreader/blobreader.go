// Package blobreader decodes raw blob bytes retrieved from the VCS
// object store into the line sequence the file processor classifies.
package blobreader

import (
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// newlineSplitter matches any of \n, \r\n or \r.
var newlineSplitter = regexp.MustCompile(`\r\n|\r|\n`)

// Decode turns raw blob bytes into a line sequence. It first attempts a
// permissive UTF-8 decode (one that does not fail on most byte
// sequences, only on malformed/incomplete multi-byte runs); if that
// fails it falls back to WINDOWS-1252. Both stages may legally yield an
// empty string, reported as success with zero lines - the caller treats
// that as "binary or empty" (§4.B, §4.C).
//
// Lines are split on any of \n, \r\n, \r; a trailing empty line is
// dropped iff the input ends with a newline.
func Decode(raw []byte) ([]string, error) {
	text, ok := decodeUTF8(raw)
	if !ok {
		var err error
		text, err = decodeWindows1252(raw)
		if err != nil {
			return nil, err
		}
	}
	return SplitLines(text), nil
}

func decodeUTF8(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

func decodeWindows1252(raw []byte) (string, error) {
	dec := charmap.Windows1252.NewDecoder()
	out, err := dec.Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SplitLines splits text on any of \n, \r\n, \r, dropping a trailing
// empty element iff text ends with a newline.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := newlineSplitter.Split(text, -1)
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
