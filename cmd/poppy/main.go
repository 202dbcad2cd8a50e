// Poppy is a multi-target .pasm assembler. This is the thin CLI shell
// around the poppy package's pipeline: load a manifest (or take a
// single source file and flags directly), compile it, and write the
// resulting ROM image to disk.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheAnsarya/poppy"
	"github.com/TheAnsarya/poppy/manifest"
	"github.com/TheAnsarya/poppy/target"
)

var (
	manifestPath string
	configName   string
	targetName   string
	includePath  []string
	defines      []string
	output       string
	autolabel    bool
	verbose      bool
)

var command = &cobra.Command{
	Use:   "poppy [source.pasm]",
	Short: "Assemble a .pasm program into a target ROM image",
	Args:  cobra.MaximumNArgs(1),
	RunE:  run,
}

func init() {
	command.PersistentFlags().StringVarP(&manifestPath, "project", "p", "poppy.toml", "project manifest path")
	command.PersistentFlags().StringVarP(&configName, "config", "c", "", "named configuration within the manifest")
	command.PersistentFlags().StringVarP(&targetName, "target", "t", "", "target architecture (overrides the manifest/source default)")
	command.PersistentFlags().StringSliceVarP(&includePath, "include", "I", nil, "additional .include search path")
	command.PersistentFlags().StringSliceVarP(&defines, "define", "D", nil, "define NAME=VALUE, repeatable")
	command.PersistentFlags().StringVarP(&output, "output", "o", "", "output ROM path (default: source name with the target's extension)")
	command.PersistentFlags().BoolVar(&autolabel, "autolabel", false, "name unnamed call/jump targets sub_XXXX/loc_XXXX in the source map")
	command.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "trace each pipeline stage to stderr")
}

func run(cmd *cobra.Command, args []string) error {
	opts, main, err := resolveOptions(args)
	if err != nil {
		return err
	}

	result := poppy.Compile(main, opts)
	if !result.OK() {
		for _, e := range result.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		return fmt.Errorf("%d error(s) assembling %s", len(result.Errors), main)
	}

	out := output
	if out == "" {
		out = defaultOutputPath(main, opts.Target)
	}
	if err := os.WriteFile(out, result.ROM, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Fprintf(os.Stdout, "%s -> %s (%d bytes)\n", main, out, len(result.ROM))
	return nil
}

// resolveOptions merges a manifest (when present) with the CLI flags,
// the same base-then-override shape manifest.Resolve already applies
// to a configuration: flags win over the manifest, the manifest wins
// over nothing.
func resolveOptions(args []string) (poppy.Options, string, error) {
	defs, err := parseDefines(defines)
	if err != nil {
		return poppy.Options{}, "", err
	}

	if len(args) == 1 && !manifest.Exists(manifestPath) {
		tag, ok := target.ParseTag(targetName)
		if !ok {
			return poppy.Options{}, "", fmt.Errorf("unrecognized or missing -t target %q", targetName)
		}
		return poppy.Options{
			Target:      tag,
			Defines:     defs,
			IncludePath: includePath,
			Autolabel:   autolabel,
			Verbose:     verbose,
		}, args[0], nil
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return poppy.Options{}, "", err
	}
	co, err := m.Resolve(configName)
	if err != nil {
		return poppy.Options{}, "", err
	}

	main := co.Main
	if len(args) == 1 {
		main = args[0]
	}
	if targetName != "" {
		tag, ok := target.ParseTag(targetName)
		if !ok {
			return poppy.Options{}, "", fmt.Errorf("unrecognized -t target %q", targetName)
		}
		co.Target = tag
	}

	merged := make(map[string]int64, len(co.Defines)+len(defs))
	for k, v := range co.Defines {
		merged[k] = v
	}
	for k, v := range defs {
		merged[k] = v
	}

	return poppy.Options{
		Target:      co.Target,
		Defines:     merged,
		IncludePath: append(append([]string{}, co.Includes...), includePath...),
		Autolabel:   autolabel,
		Verbose:     verbose,
	}, main, nil
}

func parseDefines(raw []string) (map[string]int64, error) {
	out := make(map[string]int64, len(raw))
	for _, d := range raw {
		name, value, ok := splitDefine(d)
		if !ok {
			return nil, fmt.Errorf("invalid -D %q, want NAME=VALUE", d)
		}
		out[name] = value
	}
	return out, nil
}

func splitDefine(d string) (name string, value int64, ok bool) {
	for i := 0; i < len(d); i++ {
		if d[i] == '=' {
			name = d[:i]
			var v int64
			if _, err := fmt.Sscanf(d[i+1:], "%d", &v); err != nil {
				return "", 0, false
			}
			return name, v, true
		}
	}
	return "", 0, false
}

func defaultOutputPath(source string, tag target.Tag) string {
	ext := ".bin"
	switch tag {
	case target.MOS6502:
		ext = ".nes"
	case target.WDC65816:
		ext = ".sfc"
	case target.WDC65C02:
		ext = ".lnx"
	case target.HuC6280:
		ext = ".pce"
	case target.M68000:
		ext = ".bin"
	case target.ARM7TDMI:
		ext = ".gba"
	case target.SM83:
		ext = ".gb"
	}
	trimmed := source
	for i := len(source) - 1; i >= 0; i-- {
		if source[i] == '.' {
			trimmed = source[:i]
			break
		}
		if source[i] == '/' {
			break
		}
	}
	return trimmed + ext
}

func main() {
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
