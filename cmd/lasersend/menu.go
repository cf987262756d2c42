package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/mastercactapus/lasersend/stream"
)

type menuCommand struct {
	names []string
	help  string
}

var menuCommands = []menuCommand{
	{[]string{"p", "print", "prnt"}, "Print a .gcode file"},
	{[]string{"h", "help"}, "Display help menu"},
	{[]string{"e", "exit"}, "Exit program"},
}

func (a *app) printHelp() {
	fmt.Fprintln(a.out, "Use these commands to run the laser cutter:")
	color := isTerminal(a.out)
	for _, c := range menuCommands {
		name := fmt.Sprintf("%-12s", strings.Join(c.names[:2], ", "))
		if color {
			name = commandStyle.Render(name)
		}
		fmt.Fprintf(a.out, "%s %s\n", name, c.help)
	}
}

func lookupCommand(input string) (string, bool) {
	for _, c := range menuCommands {
		for _, n := range c.names {
			if n == input {
				return c.names[0], true
			}
		}
	}
	return "", false
}

// suggestCommand returns the closest command name to input, if any is close.
func suggestCommand(input string) string {
	best, bestDist := "", 3
	for _, c := range menuCommands {
		for _, n := range c.names[1:] {
			if d := levenshtein.ComputeDistance(input, n); d < bestDist {
				best, bestDist = n, d
			}
		}
	}
	return best
}

func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	line, err := a.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimSpace(line), err
}

// menu runs the interactive prompt until exit, EOF or cancellation.
// A file given on the command line is printed first.
func (a *app) menu(ctx context.Context, file string) error {
	if file != "" {
		a.print(ctx, file)
	}

	for ctx.Err() == nil {
		input, err := a.readLine(">> ")
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if input == "" {
			continue
		}

		cmd, ok := lookupCommand(input)
		switch {
		case !ok:
			fmt.Fprintf(a.out, "%q is an invalid command.", input)
			if s := suggestCommand(input); s != "" {
				fmt.Fprintf(a.out, " Did you mean %q?", s)
			}
			fmt.Fprintln(a.out, " Choose one of the commands below:")
			a.printHelp()
		case cmd == "e":
			return nil
		case cmd == "h":
			a.printHelp()
		case cmd == "p":
			path, err := a.readLine("Enter filepath of .gcode file: ")
			if err != nil && err != io.EOF {
				return err
			}
			a.print(ctx, path)
		}
	}
	return nil
}

// print loads, optionally previews, and sends a file after confirmation.
func (a *app) print(ctx context.Context, file string) {
	if file == "" {
		file = a.cfg.DefaultFile
	}
	p, err := a.load(file)
	if err != nil {
		fmt.Fprintln(a.out, "ERROR:", err)
		return
	}

	ok, err := a.confirm("Do you want to preview the gcode?")
	if err != nil {
		fmt.Fprintln(a.out, "\nERROR:", err)
		return
	}
	if ok {
		if err := a.printPreview(p); err != nil {
			fmt.Fprintln(a.out, "ERROR:", err)
			return
		}
	}

	w := stream.All
	if start, found := a.resumeIndex(file); found && start > 0 && start < len(p) {
		ok, err := a.confirm(fmt.Sprintf("Resume the previous job at line %d?", start+1))
		if err != nil {
			fmt.Fprintln(a.out, "\nERROR:", err)
			return
		}
		if ok {
			w.Start = start
		}
	}

	ok, err = a.confirm("Ok to send to laser?")
	if err != nil {
		fmt.Fprintln(a.out, "\nERROR:", err)
		return
	}
	if !ok {
		return
	}
	a.printResult(a.send(ctx, file, p, w))
}
