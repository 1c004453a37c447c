package term

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"pkt.systems/oxycord/internal/uiloop"
	"pkt.systems/oxycord/schema"
)

func linePassword(in io.Reader, prompt string, out io.Writer) ([]byte, error) {
	_, _ = io.WriteString(out, prompt)
	line, err := readLine(in)
	return []byte(line), err
}

func runTerminal(t *testing.T, input string, submit func(*uiloop.Loop, schema.LoginAttempt) error, render func(*Terminal)) (string, error) {
	t.Helper()
	loop := uiloop.New(nil)
	out := &bytes.Buffer{}
	term, err := New(Options{In: strings.NewReader(input), Out: out, Loop: loop, ReadPassword: linePassword})
	if err != nil {
		t.Fatalf("new terminal: %v", err)
	}
	term.Bind(func(a schema.LoginAttempt) error { return submit(loop, a) })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		term.Run(ctx)
	}()
	loop.Post(func() { render(term) })
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	var runErr error
	select {
	case runErr = <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("loop did not stop")
	}
	cancel()
	<-readerDone
	return out.String(), runErr
}

func TestTerminalSubmitsCredentials(t *testing.T) {
	var got []schema.LoginAttempt
	out, err := runTerminal(t, "a@b.c\nhunter2\n", func(loop *uiloop.Loop, a schema.LoginAttempt) error {
		got = append(got, a)
		loop.Quit(nil)
		return nil
	}, func(term *Terminal) {
		term.RenderForm(schema.LoginAttempt{}, "", nil)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 1 || got[0].Email != "a@b.c" || got[0].Password != "hunter2" {
		t.Fatalf("unexpected submissions %+v", got)
	}
	if !strings.Contains(out, "Email: ") || !strings.Contains(out, "Password: ") {
		t.Fatalf("expected prompts in output, got %q", out)
	}
}

func TestTerminalKeepsPrefillOnEnter(t *testing.T) {
	var got schema.LoginAttempt
	out, err := runTerminal(t, "\n\n", func(loop *uiloop.Loop, a schema.LoginAttempt) error {
		got = a
		loop.Quit(nil)
		return nil
	}, func(term *Terminal) {
		term.RenderForm(schema.LoginAttempt{Email: "old@b.c", Password: "old"}, "Incorrect login info", map[schema.FieldName]string{
			schema.FieldPassword: "password is required",
		})
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.Email != "old@b.c" || got.Password != "old" {
		t.Fatalf("expected prefill to be kept, got %+v", got)
	}
	if !strings.Contains(out, "Incorrect login info") {
		t.Fatalf("expected form error in output, got %q", out)
	}
	if !strings.Contains(out, "password is required") {
		t.Fatalf("expected field error in output, got %q", out)
	}
}

func TestTerminalEOFAbandons(t *testing.T) {
	_, err := runTerminal(t, "", func(loop *uiloop.Loop, a schema.LoginAttempt) error {
		loop.Quit(errors.New("unexpected submit"))
		return nil
	}, func(term *Terminal) {
		term.RenderForm(schema.LoginAttempt{}, "", nil)
	})
	if !errors.Is(err, schema.ErrAbandoned) {
		t.Fatalf("expected ErrAbandoned, got %v", err)
	}
}

func TestTerminalRendersWaitingAndSuccess(t *testing.T) {
	loop := uiloop.New(nil)
	out := &bytes.Buffer{}
	term, err := New(Options{In: strings.NewReader(""), Out: out, Loop: loop})
	if err != nil {
		t.Fatalf("new terminal: %v", err)
	}
	term.RenderWaiting("Logging in...")
	term.RenderSuccess()
	text := out.String()
	if !strings.Contains(text, "Logging in...") || !strings.Contains(text, "Signed in.") {
		t.Fatalf("unexpected output %q", text)
	}
}

func TestReadLine(t *testing.T) {
	r := strings.NewReader("first\r\nsecond\nlast")
	for _, want := range []string{"first", "second", "last"} {
		got, err := readLine(r)
		if err != nil {
			t.Fatalf("read line: %v", err)
		}
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
	if _, err := readLine(r); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestNewRequiresIO(t *testing.T) {
	if _, err := New(Options{Loop: uiloop.New(nil)}); err == nil {
		t.Fatalf("expected error without input/output")
	}
	if _, err := New(Options{In: strings.NewReader(""), Out: io.Discard}); err == nil {
		t.Fatalf("expected error without loop")
	}
}
