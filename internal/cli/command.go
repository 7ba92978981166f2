package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// helpColumn is the width the usage column is padded to in the command list.
const helpColumn = 26

// Command is one bufdev subcommand: its flags, its help text and the
// function that does the work.
type Command struct {
	// Flags are parsed from the arguments after the command name. Nil
	// means the command takes no flags.
	Flags *flag.FlagSet

	// Usage starts with the command name, followed by its arguments, e.g.
	// "init-config [flags] [path]".
	Usage string

	// Short appears next to Usage in the top-level command list.
	Short string

	// Long is printed by --help. Short stands in when it is empty.
	Long string

	// Exec receives the positional arguments left after flag parsing.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name is the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine is the command's row in the top-level command list.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-*s %s", helpColumn, c.Usage, c.Short)
}

func (c *Command) printHelp(o *IO) {
	o.Println("Usage: bufdev", c.Usage)
	o.Println()

	if c.Long != "" {
		o.Println(c.Long)
	} else {
		o.Println(c.Short)
	}

	if c.Flags == nil || !c.Flags.HasFlags() {
		return
	}

	var defaults strings.Builder
	c.Flags.SetOutput(&defaults)
	c.Flags.PrintDefaults()

	o.Println()
	o.Println("Flags:")
	o.Printf("%s", defaults.String())
}

// Run parses args, calls Exec and returns the process exit code. Errors
// go to stderr as "error: ..."; a flag error also prints the command help.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	if c.Flags == nil {
		c.Flags = flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	}

	// pflag's own error and usage printing is replaced by printHelp.
	c.Flags.SetOutput(&strings.Builder{})

	err := c.Flags.Parse(args)

	switch {
	case errors.Is(err, flag.ErrHelp):
		c.printHelp(o)

		return 0
	case err != nil:
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.printHelp(o)

		return 1
	}

	err = c.Exec(ctx, o, c.Flags.Args())
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return o.Finish()
}
