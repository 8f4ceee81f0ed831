package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = func(a ...any) { fmt.Println(a...) }

// execIface is the command surface the REPL dispatches to. The App type
// satisfies it; tests substitute a stub.
type execIface interface {
	isUnlocked() bool
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Add(ctx context.Context) error
	Update(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, target string) error
	Show(ctx context.Context, id, target string) error
	Search(ctx context.Context, query, target string) error
	Sync(ctx context.Context, from, to string) error
	Status(ctx context.Context) error
	Generate(ctx context.Context) error
	ShowConfig(ctx context.Context) error
}

// runREPL reads a line, dispatches the first token as the command and
// reports handler errors to the user. Exits on EOF or "exit"/"quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("passvault %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isUnlocked() {
				printlnFn("Available commands: add, update <id>, delete <id>, list [storage], show <id> [storage], search <query> [storage], sync <from> <to>, status, gen, config, lock, exit")
			} else {
				printlnFn("Available commands: unlock, gen, config, exit")
			}

		case "unlock":
			err = a.Unlock(ctx)

		case "lock":
			err = a.Lock(ctx)

		case "add":
			err = a.Add(ctx)

		case "update":
			if len(args) < 1 {
				printlnFn("Usage: update <id>")
				continue
			}
			err = a.Update(ctx, args[0])

		case "delete", "rm":
			if len(args) < 1 {
				printlnFn("Usage: delete <id>")
				continue
			}
			err = a.Delete(ctx, args[0])

		case "l", "list":
			err = a.List(ctx, optional(args, 0, "all"))

		case "show":
			if len(args) < 1 {
				printlnFn("Usage: show <id> [storage]")
				continue
			}
			err = a.Show(ctx, args[0], optional(args, 1, "all"))

		case "search":
			if len(args) < 1 {
				printlnFn("Usage: search <query> [storage]")
				continue
			}
			err = a.Search(ctx, args[0], optional(args, 1, "all"))

		case "sync":
			if len(args) < 2 {
				printlnFn("Usage: sync <from> <to>")
				continue
			}
			err = a.Sync(ctx, args[0], args[1])

		case "status":
			err = a.Status(ctx)

		case "gen":
			err = a.Generate(ctx)

		case "config":
			err = a.ShowConfig(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}

func optional(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}
