package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// errCanceled marks a command the user backed out of.
var errCanceled = errors.New("canceled")

// execIface defines the command surface the REPL needs. App satisfies it;
// tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Update(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	ChangePassword(ctx context.Context, args []string) error
	Logs(ctx context.Context, args []string) error
	Generate(ctx context.Context, args []string) error
}

type command struct {
	run          func(execIface, context.Context, []string) error
	requireLogin bool
}

var commands = map[string]command{
	"register": {run: execIface.Register},
	"login":    {run: execIface.Login},
	"generate": {run: execIface.Generate},
	"logs":     {run: execIface.Logs, requireLogin: true},
	"logout":   {run: execIface.Logout, requireLogin: true},
	"list":     {run: execIface.List, requireLogin: true},
	"l":        {run: execIface.List, requireLogin: true},
	"add":      {run: execIface.Add, requireLogin: true},
	"show":     {run: execIface.Show, requireLogin: true},
	"get":      {run: execIface.Show, requireLogin: true},
	"update":   {run: execIface.Update, requireLogin: true},
	"delete":   {run: execIface.Delete, requireLogin: true},
	"passwd":   {run: execIface.ChangePassword, requireLogin: true},
}

const (
	helpLoggedOut = "Available commands: register, login, generate [length], exit"
	helpLoggedIn  = "Available commands: (l)ist, add, show <domain>, update <domain>, delete <domain>, passwd, generate [length], logs [n], logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// The first token is the command and the rest are its arguments. The loop
// exits on end of input or when the user types "exit" or "quit".
//
// Handler errors are reported to w and never end the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "sk%s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, helpLoggedIn)
			} else {
				fmt.Fprintln(w, helpLoggedOut)
			}
			continue
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		}

		cmd, ok := commands[name]
		if !ok {
			fmt.Fprintln(w, "Unknown command:", name)
			continue
		}
		if cmd.requireLogin && !a.isLoggedIn() {
			fmt.Fprintln(w, "Please log in first.")
			continue
		}

		if err := cmd.run(a, ctx, args); err != nil && !errors.Is(err, errCanceled) {
			fmt.Fprintln(w, describe(err))
		}
	}
}
