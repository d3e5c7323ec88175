package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	prompt "github.com/joeycumines/go-prompt"
	pstrings "github.com/joeycumines/go-prompt/strings"

	"github.com/bft-labs/multiflow/pkg/multiflow"
)

var commands = []prompt.Suggest{
	{Text: "high", Description: "Switch to the high priority flow"},
	{Text: "low", Description: "Switch to the low priority flow (deferred commit)"},
	{Text: "block", Description: "Wait for the flow on read and write"},
	{Text: "nonblock", Description: "Return at once when the flow is not ready"},
	{Text: "timeout", Description: "timeout <seconds>: bound blocking waits (implies block)"},
	{Text: "write", Description: "write <text>: write text to the current flow"},
	{Text: "read", Description: "read <bytes>: read up to bytes from the current flow"},
	{Text: "attach", Description: "attach <minor>: move the session to another device"},
	{Text: "enable", Description: "enable <minor>: accept new sessions"},
	{Text: "disable", Description: "disable <minor>: refuse new sessions"},
	{Text: "status", Description: "Show the session settings"},
	{Text: "stats", Description: "stats [minor]: show device counters"},
	{Text: "help", Description: "Show this list"},
	{Text: "quit", Description: "Leave the shell"},
}

// lockedWriter serializes command output and asynchronous completions.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type shell struct {
	ctx     context.Context
	mf      *multiflow.Multiflow
	out     *lockedWriter
	session *multiflow.Session
	wg      sync.WaitGroup
}

func newShell(ctx context.Context, mf *multiflow.Multiflow, out io.Writer) *shell {
	return &shell{ctx: ctx, mf: mf, out: &lockedWriter{w: out}}
}

// attach moves the shell to minor. The previous session is kept if the new
// one cannot be opened.
func (sh *shell) attach(minor int) error {
	s, err := sh.mf.Attach(minor)
	if err != nil {
		return fmt.Errorf("attach minor %d: %w", minor, err)
	}
	if sh.session != nil {
		_ = sh.session.Close()
	}
	sh.session = s

	sh.wg.Add(1)
	go func() {
		defer sh.wg.Done()
		for c := range s.Notifications() {
			sh.out.printf("minor %d: %d bytes committed\n", c.Minor, c.Bytes)
		}
	}()

	sh.out.printf("attached to minor %d\n", minor)
	return nil
}

// close detaches and waits for pending completion output.
func (sh *shell) close() {
	if sh.session != nil {
		_ = sh.session.Close()
		sh.session = nil
	}
	sh.wg.Wait()
}

// exec runs one command line and reports whether the shell should exit.
func (sh *shell) exec(line string) bool {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]
	s := sh.session

	switch cmd {
	case "quit", "exit":
		return true

	case "help", "?":
		for _, c := range commands {
			sh.out.printf("  %-9s %s\n", c.Text, c.Description)
		}

	case "high":
		s.SetPriority(multiflow.High)
		sh.out.printf("switched to high priority\n")

	case "low":
		s.SetPriority(multiflow.Low)
		sh.out.printf("switched to low priority\n")

	case "block":
		s.SetBlocking(true)
		sh.out.printf("switched to blocking operations\n")

	case "nonblock":
		s.SetBlocking(false)
		sh.out.printf("switched to non-blocking operations\n")

	case "timeout":
		seconds, ok := sh.intArg(cmd, args)
		if !ok {
			return false
		}
		d := s.SetTimeout(seconds)
		sh.out.printf("blocking timeout set to %s\n", d)

	case "write":
		text := strings.TrimSpace(line[len(fields[0]):])
		n, err := s.Write(sh.ctx, []byte(text))
		if err != nil {
			sh.out.printf("write error: %v\n", err)
			return false
		}
		sh.out.printf("%d bytes written to minor %d\n", n, s.Minor())

	case "read":
		size, ok := sh.intArg(cmd, args)
		if !ok {
			return false
		}
		if size <= 0 {
			sh.out.printf("read: size must be positive\n")
			return false
		}
		buf := make([]byte, size)
		n, err := s.Read(sh.ctx, buf)
		if err != nil {
			sh.out.printf("read error: %v\n", err)
			return false
		}
		sh.out.printf("%d bytes read from minor %d: %q\n", n, s.Minor(), buf[:n])

	case "attach":
		minor, ok := sh.intArg(cmd, args)
		if !ok {
			return false
		}
		if err := sh.attach(minor); err != nil {
			sh.out.printf("%v\n", err)
		}

	case "enable", "disable":
		minor, ok := sh.intArg(cmd, args)
		if !ok {
			return false
		}
		var err error
		if cmd == "enable" {
			err = sh.mf.Enable(minor)
		} else {
			err = sh.mf.Disable(minor)
		}
		if err != nil {
			sh.out.printf("%s: %v\n", cmd, err)
			return false
		}
		sh.out.printf("minor %d %sd\n", minor, cmd)

	case "status":
		sh.out.printf("minor %d, %s priority, blocking=%t, timeout=%s\n",
			s.Minor(), s.Priority(), s.Blocking(), s.Timeout())

	case "stats":
		stats := sh.mf.Stats()
		if len(args) > 0 {
			minor, ok := sh.intArg(cmd, args)
			if !ok {
				return false
			}
			if minor < 0 || minor >= len(stats) {
				sh.out.printf("stats: %v\n", fmt.Errorf("minor %d: %w", minor, multiflow.ErrNoSuchDevice))
				return false
			}
			stats = stats[minor : minor+1]
		}
		printStats(sh.out, stats)

	default:
		sh.out.printf("unknown command %q, type help\n", cmd)
	}
	return false
}

func (sh *shell) intArg(cmd string, args []string) (int, bool) {
	if len(args) != 1 {
		sh.out.printf("%s: expected one number\n", cmd)
		return 0, false
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		sh.out.printf("%s: %q is not a number\n", cmd, args[0])
		return 0, false
	}
	return v, true
}

// runScript executes commands line by line until quit or EOF.
func (sh *shell) runScript(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if sh.exec(sc.Text()) {
			return nil
		}
		if sh.ctx.Err() != nil {
			return nil
		}
	}
	return sc.Err()
}

// runPrompt executes commands from the terminal with completion until quit.
func (sh *shell) runPrompt() {
	p := prompt.New(
		func(in string) { sh.exec(in) },
		prompt.WithPrefix("multiflow> "),
		prompt.WithTitle("multiflow"),
		prompt.WithCompleter(complete),
		prompt.WithExitChecker(func(in string, breakline bool) bool {
			return breakline && isQuit(in)
		}),
	)
	p.RunNoExit()
}

func isQuit(in string) bool {
	switch strings.ToLower(strings.TrimSpace(in)) {
	case "quit", "exit":
		return true
	}
	return false
}

// complete suggests command names for the first word only.
func complete(d prompt.Document) ([]prompt.Suggest, pstrings.RuneNumber, pstrings.RuneNumber) {
	endIndex := d.CurrentRuneIndex()
	w := d.GetWordBeforeCursor()
	startIndex := endIndex - pstrings.RuneCountInString(w)
	if startIndex != 0 {
		return nil, startIndex, endIndex
	}
	return prompt.FilterHasPrefix(commands, w, true), startIndex, endIndex
}
