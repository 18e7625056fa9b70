// Package shell drives the storefront screens from a line-oriented terminal.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/aminexfrad/F-S-SHOP/internal/auth"
	"github.com/aminexfrad/F-S-SHOP/internal/cart"
	"github.com/aminexfrad/F-S-SHOP/internal/catalog"
	"github.com/aminexfrad/F-S-SHOP/internal/checkout"
	"github.com/aminexfrad/F-S-SHOP/internal/config"
	"github.com/aminexfrad/F-S-SHOP/internal/navigation"
	"github.com/aminexfrad/F-S-SHOP/internal/notice"
	"github.com/aminexfrad/F-S-SHOP/internal/profile"
	"github.com/aminexfrad/F-S-SHOP/internal/session"
	"github.com/aminexfrad/F-S-SHOP/internal/shopapi"
	"github.com/google/shlex"
	"go.uber.org/zap"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
	// ErrQuit ends Run without an error.
	ErrQuit = errors.New("quit")
)

const prompt = "storefront> "

// Outbox is the queue behind the outbox notify policy.
type Outbox interface {
	checkout.Enqueuer
	PendingCount(ctx context.Context) (int, error)
}

// Flusher delivers queued notify events now.
type Flusher interface {
	ProcessOnce(ctx context.Context) int
}

type Deps struct {
	API     *shopapi.API
	Session *session.Session
	Nav     navigation.Navigator
	Notices *notice.Board
	Catalog *catalog.Service
	Detail  *catalog.Detail
	Auth    *auth.Service
	Profile *profile.Service

	// MediaOrigin prefixes relative image paths, e.g. http://localhost:8000.
	MediaOrigin string

	Policy  config.NotifyPolicy
	Outbox  Outbox
	Flusher Flusher
	Logger  *zap.Logger
}

type Shell struct {
	deps   Deps
	logger *zap.Logger

	outMu sync.Mutex
	out   io.Writer

	mu     sync.Mutex
	filter catalog.Filter
	vm     *cart.ViewModel
	flow   *checkout.Flow
}

func New(deps Deps, out io.Writer) *Shell {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &Shell{
		deps:   deps,
		logger: deps.Logger.Named("shell"),
		out:    out,
		filter: catalog.DefaultFilter(),
	}
	if deps.Notices != nil {
		deps.Notices.Subscribe(s.showNotice)
	}
	return s
}

// MediaOrigin is the scheme and host of a GraphQL endpoint URL.
func MediaOrigin(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Navigator prints every location change to w.
func Navigator(w io.Writer) navigation.Navigator {
	var mu sync.Mutex
	return navigation.Func(func(path string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "-> %s\n", path)
	})
}

// Run reads commands from in until EOF, quit or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	s.printf("%s", prompt)
	for {
		select {
		case <-ctx.Done():
			s.printf("\n")
			return nil
		case line, ok := <-lines:
			if !ok {
				s.printf("\n")
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			err := s.Exec(ctx, line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				s.report(err)
			}
			s.printf("%s", prompt)
		}
	}
}

// Exec runs one command line. Words split the way a POSIX shell splits them.
func (s *Shell) Exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return s.execArgs(ctx, args)
}

// RunArgs runs one command given as separate arguments, printing any failure.
func (s *Shell) RunArgs(ctx context.Context, args []string) error {
	err := s.execArgs(ctx, args)
	if err == nil || errors.Is(err, ErrQuit) {
		return nil
	}
	s.report(err)
	return err
}

func (s *Shell) execArgs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	// a fresh tree per line, cobra keeps the context of the first execution on subcommands
	root := s.rootCommand()
	root.SetArgs(args)
	s.logger.Debug("exec", zap.String("command", args[0]))
	cmd, err := root.ExecuteContextC(ctx)
	if err != nil && cmd == root {
		return fmt.Errorf("%w %q, try help", ErrUnknownCommand, args[0])
	}
	return err
}

// Close detaches the open cart view.
func (s *Shell) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropCartLocked()
}

func (s *Shell) report(err error) {
	var fe *auth.FormError
	switch {
	case errors.As(err, &fe):
		s.printf("%s\n", fe.Message)
	case errors.Is(err, session.ErrNotAuthenticated):
		s.printf("please log in first\n")
	case errors.Is(err, session.ErrLoading):
		s.printf("session is still loading, try again\n")
	default:
		s.printf("error: %v\n", err)
	}
}

func (s *Shell) showNotice(n notice.Notice, visible bool) {
	if !visible {
		return
	}
	s.printf("[%s] %s\n", n.Kind, n.Message)
}

func (s *Shell) printf(format string, a ...any) {
	fmt.Fprintf(outWriter{s}, format, a...)
}

// outWriter serialises writes to the shell output.
type outWriter struct{ s *Shell }

func (w outWriter) Write(p []byte) (int, error) {
	w.s.outMu.Lock()
	defer w.s.outMu.Unlock()
	return w.s.out.Write(p)
}
