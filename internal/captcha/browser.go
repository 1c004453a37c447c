// Package captcha opens a real browser on the login page so the user can
// solve an interactive challenge, and captures the session token the page
// sends once the login completes.
package captcha

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"pkt.systems/pslog"
)

// Browser runs the captcha flow in a headful Chrome.
type Browser struct {
	opts Options
	log  pslog.Logger
}

// New validates opts and returns a Browser.
func New(opts Options) (*Browser, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Browser{opts: opts, log: logger.With("login_url", opts.LoginURL)}, nil
}

// Extract blocks until the page reports a token or the user closes the
// window. Closing the window returns ok=false with a nil error. Launch and
// navigation failures, and cancellation of ctx, are errors.
func (b *Browser) Extract(ctx context.Context) (string, bool, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.opts.allocatorOptions()...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	tokens := make(chan string, 1)
	closed := make(chan struct{})
	var closeOnce sync.Once
	markClosed := func() { closeOnce.Do(func() { close(closed) }) }

	chromedp.ListenTarget(tabCtx, func(ev any) {
		called, ok := ev.(*runtime.EventBindingCalled)
		if !ok || called.Name != b.opts.Binding {
			return
		}
		if token, ok := acceptPayload(called.Payload); ok {
			select {
			case tokens <- token:
			default:
			}
		}
	})

	script := captureScript(b.opts.Binding)
	err := chromedp.Run(tabCtx,
		runtime.AddBinding(b.opts.Binding),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}),
		chromedp.Navigate(b.opts.LoginURL),
	)
	if err != nil {
		b.log.Warn("captcha browser launch failed", "err", err)
		return "", false, fmt.Errorf("captcha browser: %w", err)
	}

	tabID := chromedp.FromContext(tabCtx).Target.TargetID
	chromedp.ListenBrowser(tabCtx, func(ev any) {
		switch ev := ev.(type) {
		case *target.EventTargetDestroyed:
			if ev.TargetID == tabID {
				markClosed()
			}
		case *target.EventTargetCrashed:
			if ev.TargetID == tabID {
				markClosed()
			}
		}
	})
	b.log.Info("captcha browser open")

	select {
	case token := <-tokens:
		b.log.Info("captcha token captured")
		return token, true, nil
	case <-closed:
		b.log.Info("captcha browser closed by user")
		return "", false, nil
	case <-tabCtx.Done():
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		b.log.Info("captcha browser connection lost")
		return "", false, nil
	}
}
