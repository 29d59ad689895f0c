package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const versionString = "axis 0.1.0"

func usage() {
	fmt.Fprintln(os.Stderr, `usage: axis [run|build] <input.axis> [-o out] [-v] [--no-hex] [--elf]

Commands:
  run      execute a script (mode script), or interpret/warn for mode compile
  build    compile to a native ELF64 executable (mode compile)

Absent a subcommand, the source's own "mode" directive decides.`)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	envVerbose, envNoColor, envOut := envDefaults()

	fs := flag.NewFlagSet("axis", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	outFlag := fs.String("o", envOut, "output executable path (build mode)")
	verboseFlag := fs.Bool("v", envVerbose, "verbose mode: trace pipeline stages and dump generated assembly")
	noColorFlag := fs.Bool("no-color", envNoColor, "disable ANSI color in diagnostics")
	noHexFlag := fs.Bool("no-hex", false, "suppress the machine-code hex dump")
	_ = fs.Bool("elf", true, "emit an ELF64 executable (the only supported format)")
	versionFlag := fs.Bool("version", false, "print version and exit")

	if len(args) > 0 && (args[0] == "run" || args[0] == "build") {
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
	} else if err := fs.Parse(args); err != nil {
		return 1
	}

	if *versionFlag {
		fmt.Println(versionString)
		return 0
	}

	var forceRun, forceBuild bool
	rest := fs.Args()
	var inputPath string
	if len(args) > 0 && args[0] == "run" {
		forceRun = true
		if len(rest) > 0 {
			inputPath = rest[0]
		}
	} else if len(args) > 0 && args[0] == "build" {
		forceBuild = true
		if len(rest) > 0 {
			inputPath = rest[0]
		}
	} else if len(rest) > 0 {
		inputPath = rest[0]
	}

	if inputPath == "" {
		usage()
		return 1
	}

	VerboseMode = *verboseFlag
	cfg := Config{
		InputPath: inputPath,
		OutPath:   *outFlag,
		Verbose:   *verboseFlag,
		NoColor:   *noColorFlag,
		NoHex:     *noHexFlag,
	}

	source, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		Report(err, cfg.NoColor)
		return 1
	}

	prog, err := parseSource(string(source))
	if err != nil {
		Report(err, cfg.NoColor)
		return 1
	}

	p := NewPipeline(cfg)

	if forceRun && !prog.ScriptMode {
		fmt.Fprintln(os.Stderr, "warning: file uses 'mode compile' but running with 'run' command; interpreting anyway")
	}
	// Absent an explicit subcommand, the source's own mode directive
	// decides: script sources run under the interpreter, compile
	// sources produce an executable (spec.md §6). --elf is accepted and
	// ignored; it never overrides this dispatch.
	wantRun := forceRun || (!forceBuild && prog.ScriptMode)
	if wantRun {
		code, err := p.RunScript(prog)
		if err != nil {
			Report(err, cfg.NoColor)
			return 1
		}
		return code
	}

	outPath := cfg.OutPath
	if outPath == "" {
		base := filepath.Base(cfg.InputPath)
		outPath = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := p.CompileToExecutable(prog, outPath); err != nil {
		Report(err, cfg.NoColor)
		return 1
	}
	fmt.Printf("wrote %s\n", outPath)
	return 0
}
