// Package oxycord wires the login flow together: session storage, the
// background worker, the UI loop, the terminal surface, the login endpoint
// client and the captcha browser.
package oxycord

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"pkt.systems/oxycord/internal/appconfig"
	"pkt.systems/oxycord/internal/captcha"
	"pkt.systems/oxycord/internal/chatapi"
	"pkt.systems/oxycord/internal/credstore"
	"pkt.systems/oxycord/internal/login"
	"pkt.systems/oxycord/internal/session"
	"pkt.systems/oxycord/internal/term"
	"pkt.systems/oxycord/internal/uiloop"
	"pkt.systems/oxycord/internal/worker"
	"pkt.systems/oxycord/schema"
	"pkt.systems/pslog"
)

// DefaultStopTimeout bounds how long shutdown waits for the running task.
const DefaultStopTimeout = 30 * time.Second

// Config configures the app.
type Config struct {
	SessionFile  string
	Encrypt      bool
	KeyStorePath string
	API          chatapi.Options
	Captcha      captcha.Options
	StopTimeout  time.Duration
}

// ConfigFromFile maps the on-disk configuration onto Config.
func ConfigFromFile(cfg appconfig.Config) Config {
	return Config{
		SessionFile:  cfg.SessionFile(),
		Encrypt:      cfg.Store.Encrypt,
		KeyStorePath: cfg.KeyStorePath(),
		API: chatapi.Options{
			BaseURL:   cfg.API.BaseURL,
			UserAgent: cfg.API.UserAgent,
			Timeout:   cfg.APITimeout(),
		},
		Captcha: captcha.Options{
			LoginURL:    cfg.Captcha.LoginURL,
			Binding:     cfg.Captcha.Binding,
			Width:       cfg.Captcha.Width,
			Height:      cfg.Captcha.Height,
			ChromePath:  cfg.Captcha.ChromePath,
			UserDataDir: cfg.Captcha.UserDataDir,
		},
	}
}

// Deps carries the terminal streams and optional collaborator overrides.
type Deps struct {
	In     io.Reader
	Out    io.Writer
	Logger pslog.Logger
	// Client replaces the HTTP login client when set.
	Client login.Client
	// Captcha replaces the browser flow when set.
	Captcha login.Extractor
	// ReadPassword replaces the no-echo password prompt when set.
	ReadPassword term.PasswordReader
}

// App runs the login flow and the session maintenance commands.
type App struct {
	cfg  Config
	deps Deps
	log  pslog.Logger
}

// New validates cfg and returns an App.
func New(cfg Config, deps Deps) (*App, error) {
	if cfg.SessionFile == "" {
		return nil, errors.New("session file is required")
	}
	if cfg.Encrypt && cfg.KeyStorePath == "" {
		return nil, errors.New("key store path is required when encryption is enabled")
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &App{cfg: cfg, deps: deps, log: logger}, nil
}

// Login runs the interactive flow until the user is signed in, gives up,
// or a fatal fault occurs. A nil error or schema.ErrAbandoned are benign.
func (a *App) Login(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	data, err := store.Load()
	if err != nil {
		a.log.Error("session load failed", "err", err)
		return err
	}
	state := session.New(data)

	sup, handle, err := worker.Start(ctx, worker.Options{Slots: 1, Name: "login", Logger: a.log})
	if err != nil {
		a.log.Error("worker start failed", "err", err)
		return err
	}
	defer a.stopWorker(sup)

	loop := uiloop.New(a.log)
	terminal, err := term.New(term.Options{
		In:           a.deps.In,
		Out:          a.deps.Out,
		Loop:         loop,
		ReadPassword: a.deps.ReadPassword,
		Logger:       a.log,
	})
	if err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}
	extractor, err := a.extractor()
	if err != nil {
		return err
	}
	machine, err := login.New(login.Options{
		Loop:    loop,
		Worker:  handle,
		Session: state,
		Store:   store,
		Client:  client,
		Captcha: extractor,
		View:    terminal,
		Logger:  a.log,
		OnAuthenticated: func(string) {
			loop.Quit(nil)
		},
	})
	if err != nil {
		return err
	}
	terminal.Bind(machine.Submit)

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	go terminal.Run(inputCtx)

	loop.Post(machine.Start)
	runErr := loop.Run(ctx)
	switch {
	case runErr == nil:
		a.log.Info("login ok", "state", machine.State().String())
	case errors.Is(runErr, schema.ErrAbandoned):
		a.log.Info("login abandoned", "state", machine.State().String())
	default:
		a.log.Error("login failed", "state", machine.State().String(), "err", runErr)
	}
	return runErr
}

// Status reports whether a session token is stored. It never creates the
// key store.
func (a *App) Status() (bool, error) {
	if _, err := os.Stat(a.cfg.SessionFile); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	store, err := a.openStore()
	if err != nil {
		return false, err
	}
	data, err := store.Load()
	if err != nil {
		return false, err
	}
	return data.HasToken(), nil
}

// Logout removes the stored session.
func (a *App) Logout() error {
	store, err := credstore.New(a.cfg.SessionFile, nil, a.log)
	if err != nil {
		return err
	}
	return store.Clear()
}

// ExitCode maps the outcome of a command to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, schema.ErrAbandoned), errors.Is(err, context.Canceled):
		return schema.ExitOK
	default:
		return schema.ExitFailure
	}
}

func (a *App) openStore() (*credstore.Store, error) {
	var sealer credstore.Sealer = credstore.PlainSealer{}
	if a.cfg.Encrypt {
		keySealer, err := credstore.NewKeySealer(a.cfg.KeyStorePath, a.log)
		if err != nil {
			return nil, err
		}
		sealer = keySealer
	}
	return credstore.New(a.cfg.SessionFile, sealer, a.log)
}

func (a *App) client() (login.Client, error) {
	if a.deps.Client != nil {
		return a.deps.Client, nil
	}
	opts := a.cfg.API
	opts.Logger = a.log
	return chatapi.New(opts)
}

func (a *App) extractor() (login.Extractor, error) {
	if a.deps.Captcha != nil {
		return a.deps.Captcha, nil
	}
	opts := a.cfg.Captcha
	opts.Logger = a.log
	return captcha.New(opts)
}

func (a *App) stopWorker(sup *worker.Supervisor) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.StopTimeout)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		a.log.Warn("worker stop failed", "err", err)
	}
}
