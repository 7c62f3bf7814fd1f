package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/chazu/fuzzyvm/vm"
)

const (
	prompt      = "\033[32mfuzzy>\033[0m "
	historyFile = ".fuzzyvm-history"
)

var errQuit = errors.New("quit")

// runREPL drives a machine interactively.
func runREPL(p *project, m *vm.Machine) error {
	home, _ := os.UserHomeDir()
	l, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       filepath.Join(home, historyFile),
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer l.Close()
	l.CaptureExitSignal()

	fmt.Fprintf(l.Stdout(), "fuzzyvm REPL for %s (type 'help' for commands)\n", p.manifest.Controller.Name)
	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}

		err = execLine(m, line, l.Stdout())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(l.Stderr(), "error: %v\n", err)
		}
	}
}

// execLine runs one REPL command against m, writing results to w.
func execLine(m *vm.Machine, line string, w io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "help", "?":
		fmt.Fprintln(w, "Commands:")
		fmt.Fprintln(w, "  set <input> <value>   Set an input register")
		fmt.Fprintln(w, "  <input>=<value> ...   Set inputs")
		fmt.Fprintln(w, "  run                   Run the controller and print outputs")
		fmt.Fprintln(w, "  get <output>          Print one output")
		fmt.Fprintln(w, "  outputs               Print every output")
		fmt.Fprintln(w, "  inputs                List inputs")
		fmt.Fprintln(w, "  disasm                Disassemble the program")
		fmt.Fprintln(w, "  quit, exit            Leave the REPL")

	case "set":
		if len(args) != 2 {
			return errors.New("usage: set <input> <value>")
		}
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("input %s: %w", args[0], err)
		}
		return m.Input(args[0], v)

	case "run":
		m.Run()
		fmt.Fprint(w, formatOutputs(m))

	case "get":
		if len(args) != 1 {
			return errors.New("usage: get <output>")
		}
		v, err := m.Output(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s = %d\n", args[0], v)

	case "outputs":
		fmt.Fprint(w, formatOutputs(m))

	case "inputs":
		fmt.Fprintln(w, strings.Join(m.Inputs(), " "))

	case "disasm":
		fmt.Fprint(w, m.Chunk().Disassemble())

	case "quit", "exit":
		return errQuit

	default:
		if strings.Contains(cmd, "=") {
			return setInputs(m, fields)
		}
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}
