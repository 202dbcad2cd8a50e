// Package poppy orchestrates the five-stage pipeline end to end: lex ->
// preprocess -> parse -> analyze -> generate -> build, aggregating
// every stage's diagnostics into one list and returning either a
// finished ROM or that list -- never both: the driver's result is
// always exactly one of a ROM byte buffer or a non-empty error list,
// never a mix of the two. This mirrors beevik/go6502's asm.Assemble, which walks
// the same shape (lex->parse->resolve->assemble) behind one function,
// generalized here across many more stages and many targets instead of
// one fixed 6502 assembler.
package poppy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/TheAnsarya/poppy/codegen"
	"github.com/TheAnsarya/poppy/include"
	"github.com/TheAnsarya/poppy/parse"
	"github.com/TheAnsarya/poppy/rom"
	"github.com/TheAnsarya/poppy/sema"
	"github.com/TheAnsarya/poppy/srcmap"
	"github.com/TheAnsarya/poppy/target"
)

// Options configures one end-to-end build: the flat set of settings a
// manifest (or -t/-I CLI flags) resolves down to.
type Options struct {
	Target      target.Tag
	Defines     map[string]int64
	IncludePath []string
	Autolabel   bool
	Verbose     bool // gate asm.go-style per-stage trace logging
}

// Result is the pipeline's single top-level product: exactly one of
// ROM or Errors is populated.
type Result struct {
	ROM       []byte
	SourceMap *srcmap.Map
	Errors    []error
}

func (r *Result) OK() bool { return len(r.Errors) == 0 }

// Compile runs the full pipeline over the source file at path and
// returns its Result.
func Compile(path string, opts Options) *Result {
	src, err := os.ReadFile(path)
	if err != nil {
		return &Result{Errors: []error{fmt.Errorf("reading %s: %w", path, err)}}
	}
	return CompileSource(path, src, opts)
}

// CompileSource runs the pipeline over src, already read into memory,
// as if it were the file named path (used for its location's File
// field and as the base directory for relative .include paths).
func CompileSource(path string, src []byte, opts Options) *Result {
	arch, ok := target.Lookup(opts.Target)
	if !ok {
		return &Result{Errors: []error{fmt.Errorf("unrecognized target %v", opts.Target)}}
	}

	log := newStageLogger(opts.Verbose)

	log.section("lex+preprocess")
	fs := &include.DirFileSet{SearchPaths: opts.IncludePath}
	abs, aerr := filepath.Abs(path)
	if aerr != nil {
		abs = path
	}
	stream := include.New(fs, path, abs, src, arch.IsMnemonic)

	log.section("parse")
	prog, parseErrs := parse.ParseProgram(stream)
	var errs []error
	errs = append(errs, stream.Errors()...)
	errs = append(errs, parseErrs...)
	if len(errs) > 0 {
		return &Result{Errors: errs}
	}

	log.section("analyze")
	an := sema.Analyze(prog, sema.Options{
		Target:      opts.Target,
		Defines:     opts.Defines,
		Autolabel:   opts.Autolabel,
		ReadInclude: readIncludeUsing(fs, filepath.Dir(abs)),
	})
	if len(an.Errors) > 0 {
		return &Result{Errors: an.Errors}
	}

	log.section("codegen")
	sm := srcmap.New()
	cg := codegen.Generate(an, codegen.Options{Autolabel: opts.Autolabel, SourceMap: sm})
	if len(cg.Errors) > 0 {
		return &Result{Errors: cg.Errors}
	}

	log.section("rom")
	builder, err := rom.New(an.Config)
	if err != nil {
		return &Result{Errors: []error{err}}
	}
	for _, seg := range cg.Segments {
		builder.AddSegment(seg)
	}
	image, err := builder.Build()
	if err != nil {
		return &Result{Errors: []error{err}}
	}

	return &Result{ROM: image, SourceMap: sm}
}

// readIncludeUsing adapts a FileSet into the plain func(path) signature
// .incbin needs, resolving relative to dir the same way .include does.
func readIncludeUsing(fs interface {
	Resolve(fromDir, path string) (string, []byte, error)
}, dir string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		_, data, err := fs.Resolve(dir, path)
		return data, err
	}
}

// stageLogger is poppy's generalization of asm.go's logLine/logSection
// verbose trace: a no-op unless -v was passed, printing one line per
// pipeline stage entered.
type stageLogger struct{ enabled bool }

func newStageLogger(enabled bool) *stageLogger { return &stageLogger{enabled: enabled} }

func (l *stageLogger) section(name string) {
	if l.enabled {
		fmt.Fprintf(os.Stderr, "poppy: entering stage %s\n", name)
	}
}
