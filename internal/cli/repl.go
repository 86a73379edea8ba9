package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL drives. *App satisfies it;
// tests use a stub.
type execIface interface {
	isLoggedIn() bool
	Accounts(ctx context.Context) error
	Login(ctx context.Context) error
	Use(ctx context.Context, ref string) error
	Forget(ctx context.Context, ref string) error
	Files(ctx context.Context) error
	Put(ctx context.Context, path string) error
	Get(ctx context.Context, key, dest string) error
	Link(ctx context.Context, key string) error
	Fetch(ctx context.Context, link, dest string) error
	Logout(ctx context.Context) error
}

const (
	helpOffline = "Available commands: accounts, login, use <account>, forget <account>, fetch <url> [dest], exit"
	helpOnline  = "Available commands: ls, put <file>, get <key> [dest], link <key>, fetch <url> [dest], accounts, forget <account>, logout, exit"
)

// runREPL reads commands from reader until EOF or "exit"/"quit" and
// dispatches them to a. Handler errors are reported by the handlers
// themselves, so the loop ignores them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(out, "credvault (%s)> ", statusFn())

		line, err := readLine(reader)
		if err != nil {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, helpOnline)
			} else {
				fmt.Fprintln(out, helpOffline)
			}

		case "accounts":
			_ = a.Accounts(ctx)

		case "login":
			_ = a.Login(ctx)

		case "use":
			if len(args) != 1 {
				fmt.Fprintln(out, "Usage: use <account>")
				continue
			}
			_ = a.Use(ctx, args[0])

		case "forget":
			if len(args) != 1 {
				fmt.Fprintln(out, "Usage: forget <account>")
				continue
			}
			_ = a.Forget(ctx, args[0])

		case "ls", "list":
			_ = a.Files(ctx)

		case "put":
			if len(args) != 1 {
				fmt.Fprintln(out, "Usage: put <file>")
				continue
			}
			_ = a.Put(ctx, args[0])

		case "get":
			if len(args) < 1 || len(args) > 2 {
				fmt.Fprintln(out, "Usage: get <key> [dest]")
				continue
			}
			dest := ""
			if len(args) == 2 {
				dest = args[1]
			}
			_ = a.Get(ctx, args[0], dest)

		case "link":
			if len(args) != 1 {
				fmt.Fprintln(out, "Usage: link <key>")
				continue
			}
			_ = a.Link(ctx, args[0])

		case "fetch":
			if len(args) < 1 || len(args) > 2 {
				fmt.Fprintln(out, "Usage: fetch <url> [dest]")
				continue
			}
			dest := ""
			if len(args) == 2 {
				dest = args[1]
			}
			_ = a.Fetch(ctx, args[0], dest)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}
	}
}

// Run starts the interactive shell on the App's input.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to credvault (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader, a.out)
}
