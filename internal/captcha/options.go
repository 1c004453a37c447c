package captcha

import (
	_ "embed"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/chromedp/chromedp"

	"pkt.systems/pslog"
)

const (
	// DefaultLoginURL is the page opened for the interactive challenge.
	DefaultLoginURL = "https://discord.com/login"
	// DefaultBinding is the page-visible callback that receives the token.
	DefaultBinding = "oxycordCapture"
	// DefaultWidth and DefaultHeight size the browser window.
	DefaultWidth  = 800
	DefaultHeight = 600

	bindingPlaceholder = "__BINDING__"
)

//go:embed capture.js
var captureSource string

var bindingName = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Options configures the captcha browser.
type Options struct {
	LoginURL    string
	Binding     string
	Width       int
	Height      int
	ChromePath  string
	UserDataDir string
	Logger      pslog.Logger
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.LoginURL) == "" {
		o.LoginURL = DefaultLoginURL
	}
	if strings.TrimSpace(o.Binding) == "" {
		o.Binding = DefaultBinding
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

func (o Options) validate() error {
	parsed, err := url.Parse(o.LoginURL)
	if err != nil {
		return fmt.Errorf("captcha login url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("captcha login url must be http or https: %q", o.LoginURL)
	}
	if !bindingName.MatchString(o.Binding) {
		return fmt.Errorf("captcha binding %q is not a valid identifier", o.Binding)
	}
	return nil
}

// allocatorOptions starts from chromedp's defaults and shows the window.
func (o Options) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", false),
		chromedp.WindowSize(o.Width, o.Height),
	)
	if path := strings.TrimSpace(o.ChromePath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	if dir := strings.TrimSpace(o.UserDataDir); dir != "" {
		opts = append(opts, chromedp.UserDataDir(dir))
	}
	return opts
}

// captureScript renders the page hook for binding.
func captureScript(binding string) string {
	return strings.ReplaceAll(captureSource, bindingPlaceholder, binding)
}

// acceptPayload filters a binding payload down to a usable token.
func acceptPayload(payload string) (string, bool) {
	token := strings.TrimSpace(payload)
	if token == "" || strings.HasPrefix(token, "Bearer") {
		return "", false
	}
	return token, true
}
