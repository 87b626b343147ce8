package repl

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestREPLArgQuotes(t *testing.T) {
	r := New("test >", strings.NewReader(""), new(strings.Builder))

	var callArgs []string
	r.AddCommand(Command{
		Name: "testcmd",
		Action: func(args []string) (string, error) {
			callArgs = args
			return "success", nil
		},
	})

	_, err := r.eval("testcmd \"test arg with quotes and spaces\" testarg2")
	if err != nil {
		t.Fatal(err)
	}

	expectedArgs := []string{"test arg with quotes and spaces", "testarg2"}
	if !reflect.DeepEqual(callArgs, expectedArgs) {
		t.Fatalf("args incorrectly passed to repl command, got %v wanted %v\n", callArgs, expectedArgs)
	}

	_, err = r.eval("testcmd 'a!b$c' \"{}\"")
	if err != nil {
		t.Fatal(err)
	}
	expectedArgs = []string{"a!b$c", "{}"}
	if !reflect.DeepEqual(callArgs, expectedArgs) {
		t.Fatalf("args incorrectly passed to repl command, got %v wanted %v\n", callArgs, expectedArgs)
	}
}

func TestREPLCmd(t *testing.T) {
	r := New("test >", nil, nil)

	called := false
	r.AddCommand(Command{
		Name: "testcmd",
		Action: func(args []string) (string, error) {
			called = len(args) == 2 && args[0] == "arg1" && args[1] == "arg2"
			return "success", nil
		},
		Usage: "test usage",
	})

	res, err := r.eval("testcmd arg1 arg2")
	if err != nil {
		t.Fatal(err)
	}
	if res != "success" {
		t.Fatal("eval returned the wrong result")
	}
	if !called {
		t.Fatal("testcmd was not called with the correct args")
	}
}

func TestREPLCmdError(t *testing.T) {
	r := New("test >", nil, nil)
	testerr := errors.New("testerr")

	r.AddCommand(Command{
		Name: "testcmd",
		Action: func(args []string) (string, error) {
			return "", testerr
		},
	})

	res, err := r.eval("testcmd")
	if err != testerr {
		t.Fatal("testcmd did not return testerr")
	}
	if res != "" {
		t.Fatal("result string was not empty")
	}

	if _, err := r.eval("nosuchcmd"); err != ErrUnknownCommand {
		t.Fatal("expected ErrUnknownCommand")
	}
	if res, err := r.eval("   "); err != nil || res != "" {
		t.Fatal("blank line should be a no-op")
	}
	if _, err := r.eval("testcmd \"unterminated"); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestREPLUsageSorted(t *testing.T) {
	r := New("test >", nil, nil)
	r.AddCommand(Command{Name: "gen", Usage: "gen: generate"})
	want := "clear: clear the terminal\nexit: exit the interactive prompt\ngen: generate\nhelp: displays available commands and their usage\n"
	if r.Usage() != want {
		t.Fatalf("got %q", r.Usage())
	}
	res, err := r.eval("help")
	if err != nil || res != want {
		t.Fatal("help did not print usage")
	}
}

func TestREPLStop(t *testing.T) {
	r := New("test >", nil, nil)
	stopped := false
	r.OnStop(func() { stopped = true })
	if _, err := r.eval("exit"); err != nil {
		t.Fatal(err)
	}
	if !stopped {
		t.Fatal("stopfunc was not called")
	}
}
