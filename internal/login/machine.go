// Package login drives credential submission and the captcha fallback.
//
// Machine methods run on the UI loop. The network exchange, the captcha
// flow and session persistence run as one background task per submission.
package login

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"pkt.systems/oxycord/internal/bridge"
	"pkt.systems/oxycord/internal/logx"
	"pkt.systems/oxycord/internal/session"
	"pkt.systems/oxycord/internal/uiloop"
	"pkt.systems/oxycord/internal/worker"
	"pkt.systems/oxycord/schema"
	"pkt.systems/pslog"
)

// Client posts credentials to the login endpoint and returns the raw body.
type Client interface {
	Login(ctx context.Context, attempt schema.LoginAttempt) ([]byte, error)
}

// Extractor runs the interactive captcha flow. ok is false when the user
// gave up without producing a token.
type Extractor interface {
	Extract(ctx context.Context) (token string, ok bool, err error)
}

// View renders machine states. All calls happen on the UI loop.
type View interface {
	RenderForm(prefill schema.LoginAttempt, formErr string, fieldErrs map[schema.FieldName]string)
	RenderWaiting(msg string)
	RenderSuccess()
}

// Options wires a Machine.
type Options struct {
	Loop    *uiloop.Loop
	Worker  worker.Handle
	Session *session.State
	Store   session.Saver
	Client  Client
	Captcha Extractor
	View    View
	Logger  pslog.Logger
	// OnAuthenticated runs on the UI loop once a token is held.
	OnAuthenticated func(token string)
	// OnTransition runs on the UI loop after every state change.
	OnTransition func(from, to State)
}

// Machine is the login state machine.
type Machine struct {
	loop    *uiloop.Loop
	worker  worker.Handle
	session *session.State
	store   session.Saver
	client  Client
	captcha Extractor
	view    View
	log     pslog.Logger

	onAuthenticated func(string)
	onTransition    func(State, State)

	state State
}

// New validates opts and returns a machine in StateForm.
func New(opts Options) (*Machine, error) {
	switch {
	case opts.Loop == nil:
		return nil, errors.New("login: ui loop is required")
	case opts.Session == nil:
		return nil, errors.New("login: session state is required")
	case opts.Client == nil:
		return nil, errors.New("login: api client is required")
	case opts.Captcha == nil:
		return nil, errors.New("login: captcha extractor is required")
	case opts.View == nil:
		return nil, errors.New("login: view is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Machine{
		loop:            opts.Loop,
		worker:          opts.Worker,
		session:         opts.Session,
		store:           opts.Store,
		client:          opts.Client,
		captcha:         opts.Captcha,
		view:            opts.View,
		log:             logger,
		onAuthenticated: opts.OnAuthenticated,
		onTransition:    opts.OnTransition,
		state:           StateForm,
	}, nil
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Start shows the form, or goes straight to success when a token is
// already stored.
func (m *Machine) Start() {
	if token, ok := m.session.Token(); ok {
		m.log.Info("login skipped", "reason", "stored session")
		m.succeed(token)
		return
	}
	m.log.Debug("login form shown")
	m.view.RenderForm(schema.LoginAttempt{}, "", nil)
}

// Submit validates attempt and, when valid, hands it to the background
// worker. It returns ErrBusy unless the form is showing, and a validation
// error when a field is empty.
func (m *Machine) Submit(attempt schema.LoginAttempt) error {
	if m.state != StateForm {
		m.log.Debug("login submit rejected", "state", m.state.String())
		return schema.ErrBusy
	}
	if err := m.validate(attempt); err != nil {
		return err
	}
	id := uuid.NewString()
	log := logx.WithAttempt(m.log, id, attempt.Email)
	m.transition(StateSubmitting)
	m.view.RenderWaiting(LabelLoggingIn)
	log.Info("login submit")
	bridge.Submit(m.loop, m.worker, "login", func(ctx context.Context) result {
		ctx = logx.ContextWithAttempt(ctx, id)
		return m.attempt(logx.ContextWithTaskLogger(ctx, log, "login"), attempt)
	}, func(r result) {
		m.react(log, attempt, r)
	})
	return nil
}

func (m *Machine) validate(attempt schema.LoginAttempt) error {
	fieldErrs := map[schema.FieldName]string{}
	var errs []error
	if strings.TrimSpace(attempt.Email) == "" {
		fieldErrs[schema.FieldEmail] = schema.ErrEmptyEmail.Error()
		errs = append(errs, schema.ErrEmptyEmail)
	}
	if attempt.Password == "" {
		fieldErrs[schema.FieldPassword] = schema.ErrEmptyPassword.Error()
		errs = append(errs, schema.ErrEmptyPassword)
	}
	if len(errs) == 0 {
		return nil
	}
	m.view.RenderForm(attempt, "", fieldErrs)
	return errors.Join(errs...)
}

type resultKind int

const (
	resultAuthenticated resultKind = iota
	resultRejected
	resultAbandoned
	resultFailed
)

type result struct {
	kind   resultKind
	token  string
	detail string
	err    error
}

// attempt runs on the worker.
func (m *Machine) attempt(ctx context.Context, attempt schema.LoginAttempt) result {
	log := logx.Ctx(ctx)
	body, err := m.client.Login(ctx, attempt)
	if err != nil {
		if !errors.Is(err, schema.ErrTransport) {
			err = fmt.Errorf("%w: %w", schema.ErrTransport, err)
		}
		return result{kind: resultFailed, err: err}
	}
	outcome := Classify(body)
	log.Debug("login response classified", "outcome", outcome.Kind.String())
	switch outcome.Kind {
	case OutcomeSuccess:
		return m.commit(log, outcome.Token)
	case OutcomeInvalidCredentials:
		return result{kind: resultRejected, detail: outcome.Detail}
	case OutcomeCaptchaRequired:
		return m.solveCaptcha(ctx, log)
	case OutcomeProtocolError:
		return result{kind: resultFailed, err: fmt.Errorf("%w: %s", schema.ErrProtocol, outcome.Detail)}
	default:
		return result{kind: resultFailed, err: fmt.Errorf("%w: %s", schema.ErrTransport, outcome.Detail)}
	}
}

func (m *Machine) solveCaptcha(ctx context.Context, log pslog.Logger) result {
	m.loop.Post(func() {
		if m.state == StateSubmitting {
			m.transition(StateCaptchaPending)
			m.view.RenderWaiting(LabelCaptcha)
		}
	})
	log.Info("captcha flow start")
	token, ok, err := m.captcha.Extract(ctx)
	if err != nil {
		log.Warn("captcha flow failed", "err", err)
		return result{kind: resultFailed, err: fmt.Errorf("captcha: %w", err)}
	}
	if !ok {
		log.Info("captcha flow abandoned")
		return result{kind: resultAbandoned}
	}
	log.Info("captcha flow ok")
	return m.commit(log, token)
}

func (m *Machine) commit(log pslog.Logger, token string) result {
	if err := m.session.Commit(token, m.store); err != nil {
		log.Warn("session commit failed", "err", err)
		return result{kind: resultFailed, err: err}
	}
	log.Debug("session commit ok")
	return result{kind: resultAuthenticated, token: token}
}

// react runs on the UI loop.
func (m *Machine) react(log pslog.Logger, attempt schema.LoginAttempt, r result) {
	switch r.kind {
	case resultAuthenticated:
		log.Info("login ok")
		m.succeed(r.token)
	case resultRejected:
		log.Info("login rejected", "detail", r.detail)
		m.transition(StateForm)
		m.view.RenderForm(attempt, rejectionMessage(r.detail), nil)
	case resultAbandoned:
		m.transition(StateAbandoned)
		m.loop.Quit(schema.ErrAbandoned)
	case resultFailed:
		log.Error("login failed", "err", r.err)
		m.transition(StateFailed)
		m.loop.Quit(r.err)
	}
}

func (m *Machine) succeed(token string) {
	m.transition(StateSuccess)
	m.view.RenderWaiting(LabelLoading)
	m.view.RenderSuccess()
	if m.onAuthenticated != nil {
		m.onAuthenticated(token)
	}
}

func (m *Machine) transition(to State) {
	from := m.state
	m.state = to
	if from == to {
		return
	}
	logx.WithState(m.log, to.String()).Debug("login state change", "from", from.String())
	if m.onTransition != nil {
		m.onTransition(from, to)
	}
}

func rejectionMessage(detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" || strings.EqualFold(detail, MsgIncorrectLogin) {
		return MsgIncorrectLogin
	}
	return MsgIncorrectLogin + ": " + detail
}
