package cli

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/bufdev/pkg/bufdev"
)

const historyFileName = ".bufdev_history"

var errQuit = errors.New("quit")

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)
	script := fs.Bool("script", false, "read commands from stdin even on a terminal")
	strict := fs.Bool("strict", false, "exit 1 if any command fails")
	echo := fs.Bool("echo", false, "echo each script line before its output")

	return &Command{
		Flags: fs,
		Usage: "shell [flags]",
		Short: "Open sessions and drive them interactively",
		Long: `Start a shell over a fresh set of instances.

On a terminal the shell is interactive with line editing and history.
Otherwise commands are read line by line from stdin. Type 'help' inside
the shell for the command list.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			reg, stop, err := a.newRegistry()
			if err != nil {
				return err
			}
			defer stop()

			sh := NewShell(reg, o.Out())
			defer sh.CloseAll()

			if !*script && isTerminal(a.in) {
				return sh.RunInteractive(ctx, historyPath(a.env))
			}

			failed, err := sh.RunScript(ctx, a.in, *echo)
			if err != nil {
				return err
			}

			if *strict && failed > 0 {
				o.Warn(fmt.Sprintf("%d shell commands failed", failed), "see the error lines above")
			}

			return nil
		},
	}
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func historyPath(env map[string]string) string {
	home := env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, historyFileName)
}

// Shell executes shell lines against a registry. Sessions are addressed by
// handle numbers starting at 1, like file descriptors.
type Shell struct {
	reg      *bufdev.Registry
	out      io.Writer
	sessions map[int]bufdev.Session
	next     int
}

// NewShell creates a shell writing results to out.
func NewShell(reg *bufdev.Registry, out io.Writer) *Shell {
	return &Shell{reg: reg, out: out, sessions: map[int]bufdev.Session{}, next: 1}
}

// CloseAll closes every open session.
func (sh *Shell) CloseAll() {
	for _, h := range sh.handles() {
		_ = sh.sessions[h].Close()
		delete(sh.sessions, h)
	}
}

// RunScript executes lines from r until EOF, exit, or ctx is done. Lines
// starting with '#' are comments. Returns the number of failed commands.
func (sh *Shell) RunScript(ctx context.Context, r io.Reader, echo bool) (int, error) {
	if r == nil {
		return 0, nil
	}

	scanner := bufio.NewScanner(r)
	failed := 0

	for scanner.Scan() {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if echo {
			sh.printf("> %s\n", line)
		}

		err := sh.Exec(line)
		if errors.Is(err, errQuit) {
			return failed, nil
		}

		if err != nil {
			failed++

			sh.printError(err)
		}
	}

	err := scanner.Err()
	if err != nil {
		return failed, fmt.Errorf("reading input: %w", err)
	}

	return failed, nil
}

// RunInteractive runs the line-editing prompt until exit, Ctrl-C, EOF, or
// ctx is done.
func (sh *Shell) RunInteractive(ctx context.Context, history string) error {
	state := liner.NewLiner()
	defer state.Close()

	state.SetCtrlCAborts(true)
	state.SetCompleter(completer)

	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}

		defer saveHistory(state, history)
	}

	ids := sh.reg.IDs()
	sh.printf("bufdev shell (instances %d-%d, single_open=%v)\n", ids[0], ids[len(ids)-1], sh.reg.SingleOpen())
	sh.printf("Type 'help' for available commands.\n\n")

	for ctx.Err() == nil {
		line, err := state.Prompt("bufdev> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				sh.printf("\nBye!\n")

				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		state.AppendHistory(line)

		err = sh.Exec(line)
		if errors.Is(err, errQuit) {
			sh.printf("Bye!\n")

			return nil
		}

		if err != nil {
			sh.printError(err)
		}
	}

	return nil
}

func saveHistory(state *liner.State, path string) {
	f, err := os.Create(path)
	if err != nil {
		return
	}

	_, _ = state.WriteHistory(f)
	_ = f.Close()
}

var shellCommands = []string{
	"open", "close", "read", "write", "seek", "ioctl",
	"info", "sessions", "help", "exit", "quit", "q",
}

func completer(line string) []string {
	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range shellCommands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

// Exec runs one shell line. It returns errQuit for exit commands.
func (sh *Shell) Exec(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "exit", "quit", "q":
		return errQuit
	case "help", "?":
		sh.printHelp()

		return nil
	case "open":
		return sh.cmdOpen(args)
	case "close":
		return sh.cmdClose(args)
	case "read":
		return sh.cmdRead(args)
	case "write":
		return sh.cmdWrite(line, args)
	case "seek":
		return sh.cmdSeek(args)
	case "ioctl":
		return sh.cmdIoctl(args)
	case "info":
		return sh.cmdInfo(args)
	case "sessions":
		sh.cmdSessions()

		return nil
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
}

func (sh *Shell) printHelp() {
	sh.printf("Commands:\n")
	sh.printf("  open <id> [ro|wo|rw]                    Open a session, prints its handle\n")
	sh.printf("  close <h>                               Close a session\n")
	sh.printf("  read <h> <n>                            Read up to n bytes at the cursor\n")
	sh.printf("  write <h> <text>                        Write text at the cursor (quote for escapes)\n")
	sh.printf("  seek <h> <off> [set|cur|end]            Move the cursor\n")
	sh.printf("  ioctl <h> capacity|length|clear|fill <b> Issue a control command\n")
	sh.printf("  info [id]                               Show instance state\n")
	sh.printf("  sessions                                List open sessions\n")
	sh.printf("  help                                    Show this help\n")
	sh.printf("  exit / quit / q                         Exit\n")
}

func (sh *Shell) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(sh.out, format, a...)
}

func (sh *Shell) printError(err error) {
	if name := errnoName(err); name != "" {
		sh.printf("error: %v (%s)\n", err, name)

		return
	}

	sh.printf("error: %v\n", err)
}

func (sh *Shell) handles() []int {
	hs := make([]int, 0, len(sh.sessions))
	for h := range sh.sessions {
		hs = append(hs, h)
	}

	sort.Ints(hs)

	return hs
}

func (sh *Shell) session(arg string) (int, bufdev.Session, error) {
	h, err := strconv.Atoi(arg)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid handle %q", arg)
	}

	s, ok := sh.sessions[h]
	if !ok {
		return 0, nil, fmt.Errorf("handle %d: %w", h, bufdev.ErrClosed)
	}

	return h, s, nil
}

func usageErr(usage string) error {
	return fmt.Errorf("usage: %s", usage)
}

func (sh *Shell) cmdOpen(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageErr("open <id> [ro|wo|rw]")
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}

	mode := bufdev.ReadWrite
	if len(args) == 2 {
		mode, err = bufdev.ParseMode(args[1])
		if err != nil {
			return err
		}
	}

	s, err := sh.reg.Open(id, mode)
	if err != nil {
		return err
	}

	h := sh.next
	sh.next++
	sh.sessions[h] = s

	sh.printf("handle %d: instance %d (%s)\n", h, id, mode)

	return nil
}

func (sh *Shell) cmdClose(args []string) error {
	if len(args) != 1 {
		return usageErr("close <h>")
	}

	h, s, err := sh.session(args[0])
	if err != nil {
		return err
	}

	delete(sh.sessions, h)

	err = s.Close()
	if err != nil {
		return err
	}

	sh.printf("closed %d\n", h)

	return nil
}

func (sh *Shell) cmdRead(args []string) error {
	if len(args) != 2 {
		return usageErr("read <h> <n>")
	}

	_, s, err := sh.session(args[0])
	if err != nil {
		return err
	}

	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid length %q", args[1])
	}

	if n < 0 {
		return fmt.Errorf("read length %d: %w", n, bufdev.ErrInvalidInput)
	}

	// No read returns more than the capacity.
	n = min(n, s.Instance().Capacity())
	buf := make([]byte, n)

	got, err := s.ReadTo(bufdev.UserBuffer(buf), n)
	if err != nil {
		return err
	}

	sh.printf("read %d: %q (cursor %d)\n", got, buf[:got], s.Cursor())

	return nil
}

// cmdWrite writes everything after the handle. A double-quoted argument is
// unquoted with Go escape rules so tests can write newlines and NULs.
func (sh *Shell) cmdWrite(line string, args []string) error {
	if len(args) < 2 {
		return usageErr("write <h> <text>")
	}

	_, s, err := sh.session(args[0])
	if err != nil {
		return err
	}

	text := restAfter(line, 2)

	if strings.HasPrefix(text, `"`) {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return fmt.Errorf("invalid quoted text: %w", err)
		}

		text = unquoted
	}

	payload := []byte(text)

	n, err := s.WriteFrom(bufdev.UserBuffer(payload), len(payload))
	if err != nil {
		return err
	}

	if n < len(payload) {
		sh.printf("wrote %d of %d (cursor %d)\n", n, len(payload), s.Cursor())
	} else {
		sh.printf("wrote %d (cursor %d)\n", n, s.Cursor())
	}

	return nil
}

// restAfter returns line with its first n fields and the following blanks
// removed.
func restAfter(line string, n int) string {
	rest := strings.TrimSpace(line)
	for range n {
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}

		rest = strings.TrimLeft(rest[idx:], " \t")
	}

	return rest
}

func (sh *Shell) cmdSeek(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usageErr("seek <h> <off> [set|cur|end]")
	}

	_, s, err := sh.session(args[0])
	if err != nil {
		return err
	}

	off, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid offset %q", args[1])
	}

	whence := io.SeekStart

	if len(args) == 3 {
		switch strings.ToLower(args[2]) {
		case "set", "start":
			whence = io.SeekStart
		case "cur", "current":
			whence = io.SeekCurrent
		case "end":
			whence = io.SeekEnd
		default:
			return fmt.Errorf("whence %q: %w", args[2], bufdev.ErrInvalidInput)
		}
	}

	pos, err := s.Seek(off, whence)
	if err != nil {
		return err
	}

	sh.printf("cursor %d\n", pos)

	return nil
}

func (sh *Shell) cmdIoctl(args []string) error {
	if len(args) < 2 {
		return usageErr("ioctl <h> capacity|length|clear|fill <byte>")
	}

	_, s, err := sh.session(args[0])
	if err != nil {
		return err
	}

	switch strings.ToLower(args[1]) {
	case "capacity", "length":
		cmd := bufdev.CmdGetCapacity
		if strings.ToLower(args[1]) == "length" {
			cmd = bufdev.CmdGetValidLength
		}

		arg := make([]byte, cmd.Size())

		err := s.Control(cmd, arg)
		if err != nil {
			return err
		}

		sh.printf("%s %d\n", strings.ToLower(args[1]), binary.LittleEndian.Uint64(arg))
	case "clear":
		err := s.Control(bufdev.CmdClearBuffer, nil)
		if err != nil {
			return err
		}

		sh.printf("cleared\n")
	case "fill":
		if len(args) != 3 {
			return usageErr("ioctl <h> fill <byte>")
		}

		b, err := parseByte(args[2])
		if err != nil {
			return err
		}

		err = s.Control(bufdev.CmdFillBuffer, []byte{b})
		if err != nil {
			return err
		}

		sh.printf("filled with %#02x\n", b)
	default:
		raw, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("unknown control %q", args[1])
		}

		// A raw opcode: useful to probe command validation.
		arg := make([]byte, bufdev.Command(raw).Size())

		err = s.Control(bufdev.Command(raw), arg)
		if err != nil {
			return err
		}

		sh.printf("ok\n")
	}

	return nil
}

// parseByte accepts a single character or a number (decimal, 0x hex).
func parseByte(s string) (byte, error) {
	if v, err := strconv.ParseUint(s, 0, 8); err == nil {
		return byte(v), nil
	}

	if len(s) == 1 {
		return s[0], nil
	}

	return 0, fmt.Errorf("fill byte %q: %w", s, bufdev.ErrInvalidInput)
}

func (sh *Shell) cmdInfo(args []string) error {
	ids := sh.reg.IDs()

	if len(args) > 0 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		ids = []int{id}
	}

	for _, id := range ids {
		info, err := sh.reg.Info(id)
		if err != nil {
			return err
		}

		sh.printf("instance %d: capacity=%d valid=%d perm=%s open=%d serial=%s\n",
			info.ID, info.Capacity, info.ValidLen, info.Permission, info.OpenSessions, info.Serial)
	}

	return nil
}

func (sh *Shell) cmdSessions() {
	if len(sh.sessions) == 0 {
		sh.printf("(no open sessions)\n")

		return
	}

	for _, h := range sh.handles() {
		s := sh.sessions[h]
		sh.printf("handle %d: instance %d mode=%s cursor=%d\n", h, s.Instance().ID(), s.Mode(), s.Cursor())
	}
}
