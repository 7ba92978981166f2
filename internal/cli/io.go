package cli

import (
	"fmt"
	"io"
)

// IO is the output side of one command run. Stdout and stderr are kept
// apart, and warnings are buffered until there is output to place them
// around.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string

	// headPrinted is set once the warnings have gone out ahead of stdout.
	headPrinted bool
}

// NewIO returns an IO writing to out and errOut.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn queues "issue: action" as a warning. A queued warning is printed on
// stderr once before the first stdout line and again by Finish, and turns
// the exit code into 1.
func (o *IO) Warn(issue string, action string) {
	o.warnings = append(o.warnings, issue+": "+action)
}

// Println is fmt.Println on stdout.
func (o *IO) Println(a ...any) {
	o.printHead()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf is fmt.Printf on stdout.
func (o *IO) Printf(format string, a ...any) {
	o.printHead()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln is fmt.Println on stderr. It does not flush warnings.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Out exposes stdout for code that writes to it directly, such as the shell.
func (o *IO) Out() io.Writer { return o.out }

// Finish writes the trailing copy of the warnings and returns the exit
// code: 1 when anything was warned about, 0 otherwise.
func (o *IO) Finish() int {
	o.printHead()
	o.printWarnings()

	if len(o.warnings) > 0 {
		return 1
	}

	return 0
}

func (o *IO) printHead() {
	if o.headPrinted || len(o.warnings) == 0 {
		return
	}

	o.headPrinted = true
	o.printWarnings()
}

func (o *IO) printWarnings() {
	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}
}
