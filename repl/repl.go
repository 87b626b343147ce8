package repl

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-shellwords"
)

// ErrUnknownCommand is returned by eval for an unregistered command name.
var ErrUnknownCommand = errors.New("command not recognized. Type `help` for a list of commands.")

type (
	// REPL is a read-eval-print loop for the qpass interactive shell.
	REPL struct {
		prompt   string
		commands map[string]Command
		input    io.ReadCloser
		output   io.Writer
		rl       *readline.Instance
		stopfunc func()
	}

	// Command is a command that can be registered with the REPL. It consists
	// of a name, an action that is run when the name is input to the REPL, and
	// a usage string.
	Command struct {
		Name   string
		Action ActionFunc
		Usage  string
	}

	// ActionFunc runs a command. It receives the arguments that followed the
	// command name and returns the text to print.
	ActionFunc func([]string) (string, error)
)

// New instantiates a REPL reading from in and writing to out. Nil streams
// default to stdin and stdout.
func New(prompt string, in io.Reader, out io.Writer) *REPL {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	rc, ok := in.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(in)
	}
	r := &REPL{
		commands: make(map[string]Command),
		prompt:   prompt,
		input:    rc,
		output:   out,
	}

	r.AddCommand(Command{
		Name:  "help",
		Usage: "help: displays available commands and their usage",
		Action: func(args []string) (string, error) {
			return r.Usage(), nil
		},
	})

	r.AddCommand(Command{
		Name:  "exit",
		Usage: "exit: exit the interactive prompt",
		Action: func(args []string) (string, error) {
			return "", r.Stop()
		},
	})

	r.AddCommand(Command{
		Name:  "clear",
		Usage: "clear: clear the terminal",
		Action: func(args []string) (string, error) {
			if _, err := readline.ClearScreen(r.output); err != nil {
				return "", err
			}
			return "", nil
		},
	})

	return r
}

// OnStop registers a function to be called when the REPL stops.
func (r *REPL) OnStop(sf func()) {
	r.stopfunc = sf
}

// Stop ends the loop and runs the OnStop function.
func (r *REPL) Stop() error {
	if r.stopfunc != nil {
		r.stopfunc()
	}
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}

// Usage returns the usage for every command, sorted by name.
func (r *REPL) Usage() string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(r.commands[name].Usage)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// AddCommand registers cmd, replacing any command with the same name.
func (r *REPL) AddCommand(cmd Command) {
	r.commands[cmd.Name] = cmd
}

func (r *REPL) completer() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for name := range r.commands {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

// eval evaluates a line that was input to the REPL.
func (r *REPL) eval(line string) (string, error) {
	args, err := shellwords.Parse(line)
	if err != nil {
		return "", errors.Wrap(err, "parse command")
	}
	if len(args) == 0 {
		return "", nil
	}

	cmd, exists := r.commands[args[0]]
	if !exists {
		return "", ErrUnknownCommand
	}
	return cmd.Action(args[1:])
}

// Loop runs the read-eval-print loop until exit, EOF or an interrupt.
func (r *REPL) Loop() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       r.prompt,
		AutoComplete: r.completer(),
		Stdin:        r.input,
		Stdout:       r.output,
	})
	if err != nil {
		return errors.Wrap(err, "start readline")
	}
	defer rl.Close()
	r.rl = rl

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt && r.stopfunc != nil {
				r.stopfunc()
			}
			return nil
		}
		res, err := r.eval(line)
		if err != nil {
			fmt.Fprintln(r.output, err.Error())
			continue
		}
		fmt.Fprint(r.output, res)
	}
}
