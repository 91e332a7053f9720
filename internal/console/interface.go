package console

import (
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/internal/usecase"
	"browser-agent-engine/pkg/logg"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errExit = errors.New("exit")

type Interface struct {
	logger     *zap.Logger
	usecase    *usecase.Service
	shutdowner fx.Shutdowner
	in         io.Reader
	out        io.Writer
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
}

type Params struct {
	fx.In

	Logger     *zap.Logger
	Usecase    *usecase.Service
	Shutdowner fx.Shutdowner
}

func NewInterface(params Params) *Interface {
	return New(params.Logger, params.Usecase, params.Shutdowner, os.Stdin, os.Stdout)
}

func New(logger *zap.Logger, uc *usecase.Service, shutdowner fx.Shutdowner, in io.Reader, out io.Writer) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		logger:     logger.With(zap.String(logg.Layer, "Console")),
		usecase:    uc,
		shutdowner: shutdowner,
		in:         in,
		out:        out,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start reads commands until input ends or the user exits, then asks the
// application to shut down.
func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	scanner := bufio.NewScanner(i.in)

	for i.ctx.Err() == nil {
		fmt.Fprint(i.out, "\n> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if errors.Is(err, errExit) {
				break
			}

			i.logger.Error("Command error", zap.Error(err))
			fmt.Fprintf(i.out, "Error: %v\n", err)
		}
	}

	if i.shutdowner != nil && i.ctx.Err() == nil {
		return i.shutdowner.Shutdown()
	}

	return nil
}

// Stop cancels the action in flight. It is safe to call more than once.
func (i *Interface) Stop() {
	i.stopOnce.Do(func() {
		i.logger.Info("Stopping console interface...")
		i.cancel()
	})
}

func (i *Interface) handleCommand(input string) error {
	command, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(command) {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		fmt.Fprintln(i.out, "Shutting down...")

		return errExit
	case "open", "navigate", "goto":
		if arg == "" {
			return errors.New("usage: open <url>")
		}

		return i.execute(entity.EngineAction{Type: entity.ActionTypeNavigate, URL: arg})
	case "consent":
		return i.execute(entity.EngineAction{Type: entity.ActionTypeConsent})
	case "login":
		return i.execute(entity.EngineAction{Type: entity.ActionTypeLogin, URL: arg})
	case "find":
		if arg == "" {
			return errors.New("usage: find <text>")
		}

		return i.execute(entity.EngineAction{Type: entity.ActionTypeFind, Text: arg})
	case "teardown":
		return i.execute(entity.EngineAction{Type: entity.ActionTypeTeardown})
	case "history":
		i.printHistory()

		return nil
	default:
		return fmt.Errorf("unknown command %q, type help", command)
	}
}

func (i *Interface) execute(action entity.EngineAction) error {
	record, err := i.usecase.Engine.Execute(i.ctx, action)
	if err != nil {
		if record != nil && record.Detail != "" {
			fmt.Fprintf(i.out, "Failed: %s\n", record.Detail)
		}

		return err
	}

	status := "OK"
	if !record.Success {
		status = "FAILED"
	}

	fmt.Fprintf(i.out, "[%s] %s: %s\n", status, record.Description, record.Detail)

	return nil
}

func (i *Interface) printHistory() {
	for _, r := range i.usecase.Engine.History() {
		status := "ok"
		if !r.Success {
			status = "failed"
		}

		fmt.Fprintf(i.out, "%s  %-8s %-6s %s\n", r.StartedAt.Format("15:04:05"), r.Type, status, r.Description)
	}
}

func (i *Interface) printBanner() {
	fmt.Fprintln(i.out, "\nBrowser Agent Engine")
	fmt.Fprintln(i.out, "Heuristic element resolution, consent handling and login")
}

func (i *Interface) printHelp() {
	help := `
Available commands:
  open <url>     - Navigate to a page (cookie banners are accepted automatically)
  consent        - Accept the cookie consent banner on the current page
  login [url]    - Log in with LOGIN_USERNAME / LOGIN_PASSWORD
  find <text>    - Resolve the element best described by text
  teardown       - Close extra pages, clear cookies and storage, close the browser
  history        - Show executed actions
  help, h        - Show this help message
  exit, quit, q  - Exit the application
`
	fmt.Fprintln(i.out, help)
}
