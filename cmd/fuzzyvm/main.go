// fuzzyvm CLI - compiles and runs fuzzy controllers described by a
// fuzzyvm.toml manifest
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/fuzzyvm/pkg/bytecode"
	"github.com/chazu/fuzzyvm/server"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("fuzzyvm")

func main() {
	dir := flag.String("C", ".", "Project directory (searched upwards for fuzzyvm.toml)")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fuzzyvm [options] <command> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  compile [-o out.cbor]     Compile the rules to a bytecode chunk\n")
		fmt.Fprintf(os.Stderr, "  disasm [file.cbor]        Disassemble the rules or a compiled chunk\n")
		fmt.Fprintf(os.Stderr, "  run name=value...         Run once and print the outputs\n")
		fmt.Fprintf(os.Stderr, "  repl                      Drive the controller interactively\n")
		fmt.Fprintf(os.Stderr, "  watch                     Recompile whenever a source changes\n")
		fmt.Fprintf(os.Stderr, "  lsp                       Start the rule-file language server on stdio\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fuzzyvm run dist=25 angle=-10\n")
		fmt.Fprintf(os.Stderr, "  fuzzyvm -C ./camera compile -o camera.cbor\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "compile":
		err = handleCompileCommand(*dir, rest)
	case "disasm":
		err = handleDisasmCommand(*dir, rest)
	case "run":
		err = handleRunCommand(*dir, rest)
	case "repl":
		err = handleREPLCommand(*dir)
	case "watch":
		err = handleWatchCommand(*dir)
	case "lsp":
		err = handleLSPCommand(*dir)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// handleCompileCommand processes the `fuzzyvm compile` subcommand.
// Usage:
//
//	fuzzyvm compile              # <name>.cbor next to the manifest
//	fuzzyvm compile -o out.cbor  # custom output
func handleCompileCommand(dir string, args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	out := fs.String("o", "", "Output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := openProject(dir)
	if err != nil {
		return err
	}
	m, err := p.build()
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = filepath.Join(p.manifest.Dir, p.manifest.Controller.Name+".cbor")
	}
	data, err := bytecode.MarshalChunk(m.Chunk())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing chunk: %w", err)
	}
	fmt.Printf("Compiled %s: %d cells, max stack %d -> %s\n",
		p.manifest.Controller.Name, len(m.Chunk().Code), m.Chunk().MaxStack, path)
	return nil
}

// handleDisasmCommand prints the disassembly of the project's rules, or
// of a chunk file written by compile.
func handleDisasmCommand(dir string, args []string) error {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		chunk, err := bytecode.UnmarshalChunk(data)
		if err != nil {
			return err
		}
		if err := chunk.Validate(); err != nil {
			return err
		}
		fmt.Print(chunk.DisassembleWithName(filepath.Base(args[0])))
		return nil
	}

	p, err := openProject(dir)
	if err != nil {
		return err
	}
	m, err := p.build()
	if err != nil {
		return err
	}
	fmt.Print(m.Chunk().DisassembleWithName(p.manifest.Controller.Name))
	return nil
}

// handleRunCommand sets the given inputs, runs once and prints every
// output.
func handleRunCommand(dir string, args []string) error {
	p, err := openProject(dir)
	if err != nil {
		return err
	}
	m, err := p.build()
	if err != nil {
		return err
	}
	if err := setInputs(m, args); err != nil {
		return err
	}
	m.Run()
	fmt.Print(formatOutputs(m))
	return nil
}

func handleREPLCommand(dir string) error {
	p, err := openProject(dir)
	if err != nil {
		return err
	}
	m, err := p.build()
	if err != nil {
		return err
	}
	return runREPL(p, m)
}

func handleWatchCommand(dir string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return watchProject(ctx, dir, func(p *project, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Printf("Rebuilt %s\n", p.manifest.Controller.Name)
	})
}

// handleLSPCommand serves the language server. Without a manifest the
// server checks syntax and lowering only.
func handleLSPCommand(dir string) error {
	var opts []server.Option
	p, err := openProject(dir)
	switch {
	case err == nil:
		opts = append(opts,
			server.WithCompiler(p.compiler),
			server.WithVariables(p.inputs, p.outputs))
	case errors.Is(err, errNoManifest):
		log.Info("no manifest; variables are not resolved")
	default:
		return err
	}

	s, err := server.NewLSP(opts...)
	if err != nil {
		return err
	}
	return s.Run()
}
