package lex

import "fmt"

// A Location identifies a single point in a source file, tracking the
// file it came from so that tokens spliced in from an .include can still
// report their original position (see package include).
type Location struct {
	File   string // path of the originating source file
	Line   int    // 1-based line number
	Col    int    // 0-based column
	Offset int    // 0-based byte offset within File
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col+1)
}
