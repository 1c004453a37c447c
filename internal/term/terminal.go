// Package term is a minimal line-oriented terminal surface for the login
// flow.
package term

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"pkt.systems/kryptograf/keymgmt"

	"pkt.systems/oxycord/internal/uiloop"
	"pkt.systems/oxycord/schema"
	"pkt.systems/pslog"
)

// PasswordReader prompts for a secret without echo.
type PasswordReader func(in io.Reader, prompt string, out io.Writer) ([]byte, error)

// Options configures a Terminal.
type Options struct {
	In           io.Reader
	Out          io.Writer
	Loop         *uiloop.Loop
	ReadPassword PasswordReader
	Logger       pslog.Logger
}

// Terminal renders login states and collects credentials. Render methods
// run on the UI loop; prompting happens on the goroutine started by Run.
type Terminal struct {
	in           io.Reader
	out          io.Writer
	loop         *uiloop.Loop
	readPassword PasswordReader
	log          pslog.Logger

	outMu  sync.Mutex
	forms  chan schema.LoginAttempt
	submit func(schema.LoginAttempt) error
}

// New builds a Terminal.
func New(opts Options) (*Terminal, error) {
	if opts.In == nil || opts.Out == nil {
		return nil, errors.New("terminal input and output are required")
	}
	if opts.Loop == nil {
		return nil, errors.New("terminal ui loop is required")
	}
	read := opts.ReadPassword
	if read == nil {
		read = promptPassphrase
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Terminal{
		in:           opts.In,
		out:          opts.Out,
		loop:         opts.Loop,
		readPassword: read,
		log:          logger,
		forms:        make(chan schema.LoginAttempt, 1),
	}, nil
}

// Bind sets the submission target. It must be called before Run.
func (t *Terminal) Bind(submit func(schema.LoginAttempt) error) {
	t.submit = submit
}

// RenderForm prints the form header and any errors, then asks the input
// goroutine for credentials.
func (t *Terminal) RenderForm(prefill schema.LoginAttempt, formErr string, fieldErrs map[schema.FieldName]string) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Discord login"))
	b.WriteString("\n")
	if formErr != "" {
		b.WriteString(errorStyle.Render(formErr))
		b.WriteString("\n")
	}
	for _, field := range []schema.FieldName{schema.FieldEmail, schema.FieldPassword} {
		if msg := fieldErrs[field]; msg != "" {
			b.WriteString(fieldErrorStyle.Render(fmt.Sprintf("%s: %s", field, msg)))
			b.WriteString("\n")
		}
	}
	t.write(b.String())
	select {
	case <-t.forms:
	default:
	}
	t.forms <- prefill
}

// RenderWaiting prints a progress label.
func (t *Terminal) RenderWaiting(msg string) {
	t.write(waitingStyle.Render(msg) + "\n")
}

// RenderSuccess prints the signed-in notice.
func (t *Terminal) RenderSuccess() {
	t.write(successStyle.Render("Signed in.") + "\n")
}

// Run prompts for credentials each time a form is rendered and posts the
// submission onto the UI loop. End of input quits the loop with
// schema.ErrAbandoned. Run returns when ctx ends or input is exhausted.
func (t *Terminal) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case prefill := <-t.forms:
			attempt, err := t.prompt(prefill)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					t.log.Info("terminal input closed")
					t.loop.Quit(schema.ErrAbandoned)
				} else {
					t.log.Warn("terminal input failed", "err", err)
					t.loop.Quit(fmt.Errorf("read credentials: %w", err))
				}
				return
			}
			t.loop.Post(func() {
				if t.submit == nil {
					return
				}
				if err := t.submit(attempt); err != nil {
					t.log.Debug("terminal submit rejected", "err", err)
				}
			})
		}
	}
}

func (t *Terminal) prompt(prefill schema.LoginAttempt) (schema.LoginAttempt, error) {
	emailPrompt := "Email: "
	if prefill.Email != "" {
		emailPrompt = fmt.Sprintf("Email %s: ", hintStyle.Render("["+prefill.Email+"]"))
	}
	t.write(emailPrompt)
	email, err := readLine(t.in)
	if err != nil {
		return schema.LoginAttempt{}, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		email = prefill.Email
	}

	passwordPrompt := "Password: "
	if prefill.Password != "" {
		passwordPrompt = fmt.Sprintf("Password %s: ", hintStyle.Render("[keep]"))
	}
	t.outMu.Lock()
	secret, err := t.readPassword(t.in, passwordPrompt, t.out)
	t.outMu.Unlock()
	if err != nil {
		return schema.LoginAttempt{}, err
	}
	password := strings.TrimRight(string(secret), "\r\n")
	if password == "" {
		password = prefill.Password
	}
	return schema.LoginAttempt{Email: email, Password: password}, nil
}

func promptPassphrase(in io.Reader, prompt string, out io.Writer) ([]byte, error) {
	secret, err := keymgmt.PromptPassphrase(in, prompt, out)
	if err != nil {
		return nil, err
	}
	return []byte(secret), nil
}

func (t *Terminal) write(s string) {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	_, _ = io.WriteString(t.out, s)
}

// readLine reads one byte at a time so no input past the newline is
// consumed before the password prompt reads from the same stream.
func readLine(r io.Reader) (string, error) {
	var (
		line []byte
		buf  [1]byte
	)
	for {
		n, err := r.Read(buf[:])
		if n > 0 {
			if buf[0] == '\n' {
				return strings.TrimRight(string(line), "\r"), nil
			}
			line = append(line, buf[0])
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return string(line), nil
			}
			return "", err
		}
	}
}
