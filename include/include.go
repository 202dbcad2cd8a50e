// Package include implements poppy's preprocessor: it walks a token
// stream and splices in the tokens of any ".include \"path\"" directive
// it finds, tracking an open-file stack for cycle detection. Spliced
// tokens keep the location of their originating file, not
// the includer, exactly as beevik/go6502's fstring keeps a per-token file
// index rather than rewriting positions when assembling multiple units.
package include

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/TheAnsarya/poppy/lex"
)

// FileSet resolves an include path to its contents, abstracting the
// preprocessor away from the real filesystem so tests can supply an
// in-memory set of files.
type FileSet interface {
	// Resolve finds the file named by path, searched relative to fromDir
	// first and then the configured search paths, returning its absolute
	// identity (used for cycle detection) and contents.
	Resolve(fromDir, path string) (abs string, contents []byte, err error)
}

// DirFileSet resolves includes against the real filesystem.
type DirFileSet struct {
	SearchPaths []string
}

func (fs *DirFileSet) Resolve(fromDir, path string) (string, []byte, error) {
	candidates := append([]string{fromDir}, fs.SearchPaths...)
	for _, dir := range candidates {
		full := filepath.Join(dir, path)
		if data, err := os.ReadFile(full); err == nil {
			abs, err := filepath.Abs(full)
			if err != nil {
				abs = full
			}
			return abs, data, nil
		}
	}
	return "", nil, fmt.Errorf("include file not found: %q", path)
}

// Error reports a preprocessing failure: an unresolvable .include path
// or a circular include chain.
type Error struct {
	Loc lex.Location
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Loc, e.Msg) }

// IsMnemonic is threaded through to every lexer this package creates, so
// nested includes see the same target-specific mnemonic set as the main
// file.
type IsMnemonic = lex.IsMnemonic

// Stream is a parse.TokenSource that transparently splices included
// files into the token sequence of its root file.
type Stream struct {
	fs     FileSet
	isMnem IsMnemonic
	errs   []error

	stack   []frame // innermost (currently lexing) file is stack[len-1]
	openSet map[string]bool
}

type frame struct {
	lexer *lex.Lexer
	abs   string
	dir   string
}

// New creates a Stream rooted at the given file. rootAbs should be an
// absolute (or at least stable, cycle-detectable) path; it need not exist
// on disk for in-memory test file sets.
func New(fs FileSet, rootName string, rootAbs string, rootSrc []byte, isMnem IsMnemonic) *Stream {
	s := &Stream{fs: fs, isMnem: isMnem, openSet: map[string]bool{}}
	s.push(rootName, rootAbs, rootSrc)
	return s
}

func (s *Stream) push(name, abs string, src []byte) {
	s.openSet[abs] = true
	s.stack = append(s.stack, frame{
		lexer: lex.New(name, src, s.isMnem),
		abs:   abs,
		dir:   filepath.Dir(name),
	})
}

func (s *Stream) pop() {
	top := s.stack[len(s.stack)-1]
	delete(s.openSet, top.abs)
	s.stack = s.stack[:len(s.stack)-1]
}

// Errors returns every IncludeNotFound/CircularInclude error encountered
// so far.
func (s *Stream) Errors() []error { return s.errs }

// Next returns the next token in the expanded stream, descending into
// and returning from included files as needed, and resolving any
// ".include" directive it encounters along the way.
func (s *Stream) Next() lex.Token {
	for {
		if len(s.stack) == 0 {
			return lex.Token{Kind: lex.EOF}
		}
		top := &s.stack[len(s.stack)-1]
		tok := top.lexer.Next()

		if tok.Kind == lex.Directive && strings.EqualFold(tok.Text, ".include") {
			if s.spliceInclude(tok) {
				continue
			}
			continue
		}

		if tok.IsEOF() {
			s.pop()
			if len(s.stack) == 0 {
				return tok
			}
			continue
		}
		return tok
	}
}

// spliceInclude consumes the path-string argument of an .include
// directive and pushes the referenced file's lexer on top of the stack.
// It reports (but does not abort on) IncludeNotFound/CircularInclude.
func (s *Stream) spliceInclude(directiveTok lex.Token) bool {
	top := &s.stack[len(s.stack)-1]
	pathTok := top.lexer.Next()
	if pathTok.Kind != lex.String {
		s.errs = append(s.errs, &Error{Loc: directiveTok.Loc, Msg: "expected a quoted path after .include"})
		return true
	}
	// consume through end of the .include statement.
	for {
		n := top.lexer.Next()
		if n.Kind == lex.Newline || n.IsEOF() {
			break
		}
	}

	abs, data, err := s.fs.Resolve(top.dir, pathTok.Str)
	if err != nil {
		s.errs = append(s.errs, &Error{Loc: pathTok.Loc, Msg: err.Error()})
		return true
	}
	if s.openSet[abs] {
		s.errs = append(s.errs, &Error{Loc: pathTok.Loc, Msg: fmt.Sprintf("circular include of %q", pathTok.Str)})
		return true
	}
	s.push(pathTok.Str, abs, data)
	return true
}
