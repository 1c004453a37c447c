package captcha

import (
	"strings"
	"testing"
)

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	if opts.LoginURL != DefaultLoginURL {
		t.Fatalf("expected default login url, got %q", opts.LoginURL)
	}
	if opts.Binding != DefaultBinding {
		t.Fatalf("expected default binding, got %q", opts.Binding)
	}
	if opts.Width != 800 || opts.Height != 600 {
		t.Fatalf("expected 800x600, got %dx%d", opts.Width, opts.Height)
	}
	if err := opts.validate(); err != nil {
		t.Fatalf("validate defaults: %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "custom", opts: Options{LoginURL: "http://127.0.0.1:8080/login", Binding: "$capture_1"}},
		{name: "bad-scheme", opts: Options{LoginURL: "file:///etc/passwd"}, wantErr: true},
		{name: "bad-binding", opts: Options{Binding: "not valid"}, wantErr: true},
		{name: "binding-injection", opts: Options{Binding: `x";alert(1);"`}, wantErr: true},
	}
	for _, tc := range tests {
		_, err := New(tc.opts)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v wantErr=%v", tc.name, err, tc.wantErr)
		}
	}
}

func TestAllocatorOptionsGrowWithPaths(t *testing.T) {
	base := Options{}.withDefaults().allocatorOptions()
	withPaths := Options{ChromePath: "/usr/bin/chromium", UserDataDir: "/tmp/profile"}.withDefaults().allocatorOptions()
	if len(withPaths) != len(base)+2 {
		t.Fatalf("expected exec path and user data dir options, got %d vs %d", len(withPaths), len(base))
	}
}

func TestCaptureScriptUsesBinding(t *testing.T) {
	script := captureScript("myHook")
	if strings.Contains(script, bindingPlaceholder) {
		t.Fatalf("placeholder left in script")
	}
	if !strings.Contains(script, `"myHook"`) {
		t.Fatalf("binding name missing from script")
	}
	for _, want := range []string{"setRequestHeader", "Authorization", "Bearer", "fetch"} {
		if !strings.Contains(script, want) {
			t.Fatalf("script missing %q", want)
		}
	}
}

func TestAcceptPayload(t *testing.T) {
	tests := []struct {
		payload string
		want    string
		ok      bool
	}{
		{payload: "mfa.token", want: "mfa.token", ok: true},
		{payload: "  padded  ", want: "padded", ok: true},
		{payload: "", ok: false},
		{payload: "Bearer abc", ok: false},
	}
	for _, tc := range tests {
		got, ok := acceptPayload(tc.payload)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("acceptPayload(%q) = %q, %v; want %q, %v", tc.payload, got, ok, tc.want, tc.ok)
		}
	}
}
