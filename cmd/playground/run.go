package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	configloader "github.com/foxseedlab/mensetsu/external/config"
	progressimpl "github.com/foxseedlab/mensetsu/external/progress"
	repositoryimpl "github.com/foxseedlab/mensetsu/external/repository"
	voiceimpl "github.com/foxseedlab/mensetsu/external/voice"
	"github.com/foxseedlab/mensetsu/internal/auth"
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/progress"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/session"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const (
	devTokenTTL         = 24 * time.Hour
	statusPrintInterval = 15 * time.Second
	shutdownSaveTimeout = 15 * time.Second
)

const helpText = `commands:
  start   start or resume the call
  end     end the interview and mark it completed
  save    save progress and leave
  load    load saved progress
  mute    toggle the microphone
  retry   clear an error and try again
  status  print the timer
  exit    leave (asks for confirmation during a call)`

func newRunCmd() *cobra.Command {
	var interviewID, userID string
	var local bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an interview session against the voice vendor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configloader.Load()
			if err != nil {
				return err
			}
			initLogger(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSession(ctx, cfg, runOptions{
				interviewID: interviewID,
				userID:      userID,
				local:       local,
				in:          cmd.InOrStdin(),
				out:         cmd.OutOrStdout(),
			})
		},
	}
	cmd.Flags().StringVar(&interviewID, "interview", "", "interview id")
	cmd.Flags().StringVar(&userID, "user", "dev-user", "user id")
	cmd.Flags().BoolVar(&local, "local", false, "read and write progress through the storage backend instead of the API")
	_ = cmd.MarkFlagRequired("interview")
	return cmd
}

type runOptions struct {
	interviewID string
	userID      string
	local       bool
	in          io.Reader
	out         io.Writer
}

// Logs go to stderr so they do not interleave with the prompt.
func initLogger(cfg *config.Config) {
	logLevel := slog.LevelWarn
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func runSession(ctx context.Context, cfg *config.Config, opts runOptions) error {
	if cfg.ProgressAPIToken == "" {
		token, err := auth.NewAuthenticator(cfg.JWTSecret).Sign(opts.userID, devTokenTTL)
		if err != nil {
			return err
		}
		cfg.ProgressAPIToken = token
	}

	injector := do.New()
	do.ProvideValue(injector, cfg)
	voiceimpl.RegisterDI(injector)
	if opts.local {
		repositoryimpl.RegisterDI(injector)
		do.Provide(injector, func(i do.Injector) (progress.Client, error) {
			repo := do.MustInvoke[repository.Repository](i)
			return progressimpl.NewRepositoryClient(repo, opts.userID), nil
		})
	} else {
		progressimpl.RegisterDI(injector)
	}
	session.RegisterDI(injector)

	def, err := loadDefinition(ctx, injector, cfg, opts)
	if err != nil {
		return err
	}
	if opts.local {
		defer do.MustInvoke[repository.Repository](injector).Close()
	}

	factory, err := do.Invoke[*session.Factory](injector)
	if err != nil {
		return fmt.Errorf("failed to build session factory: %w", err)
	}
	term := newTerminal(opts.out)
	m := factory.New(session.User{ID: opts.userID}, def, term, term)

	term.println(fmt.Sprintf("%s at %s (%s)", def.Role, def.Company, def.Difficulty))
	term.printStatus(m.State())
	if m.CheckExistingProgress(ctx) {
		term.println(mutedStyle.Render("saved progress found, type load to resume"))
	}
	term.println(mutedStyle.Render(helpText))

	go watch(ctx, m, term)
	return repl(ctx, m, term, opts.in)
}

func loadDefinition(ctx context.Context, injector do.Injector, cfg *config.Config, opts runOptions) (interview.Definition, error) {
	if !opts.local {
		return fetchInterview(ctx, cfg.ProgressAPIURL, cfg.ProgressAPIToken, opts.interviewID)
	}
	repo, err := do.Invoke[repository.Repository](injector)
	if err != nil {
		return interview.Definition{}, fmt.Errorf("failed to open storage: %w", err)
	}
	rec, err := repo.GetInterview(ctx, opts.interviewID)
	if err != nil {
		return interview.Definition{}, fmt.Errorf("load interview %s: %w", opts.interviewID, err)
	}
	return rec.Definition(), nil
}

func repl(ctx context.Context, m *session.Manager, term *terminal, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		select {
		case <-term.Done():
			return nil
		case <-ctx.Done():
			return leaveOnSignal(m)
		case line, ok := <-lines:
			if !ok {
				return leaveOnSignal(m)
			}
			if line == "" {
				continue
			}
			if err := dispatch(ctx, m, term, line); err != nil {
				term.println(errorStyle.Render(err.Error()))
			}
		}
	}
}

func dispatch(ctx context.Context, m *session.Manager, term *terminal, line string) error {
	view := m.State()
	if view.ExitPending {
		switch line {
		case "y", "yes":
			return m.ConfirmExit(ctx)
		default:
			m.CancelExit()
			return nil
		}
	}

	switch line {
	case "start":
		return m.StartCall(ctx)
	case "end":
		return m.EndCall(ctx)
	case "save":
		return m.SaveAndQuit(ctx)
	case "load":
		return m.LoadProgress(ctx)
	case "mute":
		m.ToggleMute()
		return nil
	case "retry":
		return m.RetryAfterError()
	case "status":
		term.printStatus(view)
		return nil
	case "exit", "quit":
		if m.RequestExit() {
			term.println(warningStyle.Render("leave the interview? progress will be saved [y/N]"))
			return nil
		}
		term.Back()
		return nil
	case "help":
		term.println(mutedStyle.Render(helpText))
		return nil
	default:
		return fmt.Errorf("unknown command %q, type help", line)
	}
}

func leaveOnSignal(m *session.Manager) error {
	if m.State().Status != session.StatusActive {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownSaveTimeout)
	defer cancel()
	return m.SaveAndQuit(ctx)
}

// watch prints finalized turns as they arrive and the timer periodically
// while a call is live.
func watch(ctx context.Context, m *session.Manager, term *terminal) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	printed := 0
	lastStatus := m.State().Status
	var lastPrint time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-term.Done():
			return
		case now := <-ticker.C:
			view := m.State()
			if len(view.Transcript) < printed {
				printed = 0
			}
			for _, turn := range view.Transcript[printed:] {
				term.printTurn(turn)
			}
			printed = len(view.Transcript)

			if view.Status != lastStatus || (view.Status == session.StatusActive && now.Sub(lastPrint) >= statusPrintInterval) {
				term.printStatus(view)
				lastStatus = view.Status
				lastPrint = now
			}
		}
	}
}
