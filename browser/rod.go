package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/pmnprobe/config"
	"github.com/use-agent/pmnprobe/models"
	"github.com/ysmood/gson"
)

// RodSession is the go-rod backed Session. It manages one browser process
// and its tabs.
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	home     *rod.Page
	active   *rod.Page
	router   *rod.HijackRouter
	cfg      config.BrowserConfig

	// ctx scopes the background dialog watchers; cancel stops them.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	dialogs map[proto.TargetTargetID]*dialogState

	closeOnce sync.Once
	closeErr  error
}

var _ Session = (*RodSession)(nil)

// Open launches a browser and prepares its home tab.
//
// The browser binary must already be installed: a missing binary is a
// DRIVER_MISSING error rather than a silent download.
func Open(ctx context.Context, cfg config.BrowserConfig) (*RodSession, error) {
	bin, err := resolveBin(cfg.BrowserBin)
	if err != nil {
		return nil, err
	}

	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	// The search form may open its results in a new tab.
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewProbeError(
			models.ErrCodeBrowserLaunch,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "bin", bin, "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, models.NewProbeError(
			models.ErrCodeBrowserLaunch,
			"failed to connect to browser",
			err,
		)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s := &RodSession{
		launcher: l,
		browser:  b,
		cfg:      cfg,
		ctx:      watchCtx,
		cancel:   cancel,
		dialogs:  make(map[proto.TargetTargetID]*dialogState),
	}
	if err := s.initHome(); err != nil {
		_ = s.Close()
		return nil, models.NewProbeError(
			models.ErrCodeBrowserLaunch,
			"failed to prepare home tab",
			err,
		)
	}
	return s, nil
}

// resolveBin returns the browser binary to launch.
func resolveBin(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", models.NewProbeError(
				models.ErrCodeDriverMissing,
				fmt.Sprintf("browser binary %q not usable", configured),
				err,
			)
		}
		return configured, nil
	}
	path, has := launcher.LookPath()
	if !has {
		return "", models.NewProbeError(
			models.ErrCodeDriverMissing,
			"no Chrome/Chromium found on this system; install one or set PMN_BROWSER_BIN",
			nil,
		)
	}
	return path, nil
}

// initHome creates the home tab, applies stealth, headers and resource
// blocking to it, and closes whatever tab the browser started with.
func (s *RodSession) initHome() error {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return err
	}
	s.home = page
	s.active = page

	if err := (proto.PageEnable{}).Call(page); err != nil {
		return err
	}
	s.watchDialogs(page)

	// Stealth JS and resource blocking only apply to navigations that
	// happen after they are installed.
	if s.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}
	if s.cfg.UserAgent != "" {
		if uaErr := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      s.cfg.UserAgent,
			AcceptLanguage: s.cfg.AcceptLanguage,
		}); uaErr != nil {
			slog.Warn("user agent override failed", "error", uaErr)
		}
	}
	if s.cfg.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"Accept-Language": s.cfg.AcceptLanguage}),
		}.Call(page)
	}
	s.router = setupHijack(page, s.cfg.BlockedResourceTypes)

	return s.CloseExtraTabs(context.Background())
}

func (s *RodSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.active.Context(navCtx).Navigate(url)
}

func (s *RodSession) Find(ctx context.Context, kind SelectorKind, selector string) ([]Element, error) {
	p := s.active.Context(ctx)

	var (
		els rod.Elements
		err error
	)
	switch kind {
	case CSS:
		els, err = p.Elements(selector)
	case XPath:
		els, err = p.ElementsX(selector)
	default:
		return nil, fmt.Errorf("browser: unknown selector kind %d", kind)
	}
	if err != nil {
		return nil, err
	}

	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

// CurrentLocation reads the URL through the Target domain, which keeps
// answering while a JavaScript dialog blocks the page.
func (s *RodSession) CurrentLocation(ctx context.Context) (string, error) {
	info, err := s.active.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (s *RodSession) AbortPendingLoad(ctx context.Context) error {
	return proto.PageStopLoading{}.Call(s.active.Context(ctx))
}

func (s *RodSession) HTML(ctx context.Context) (string, error) {
	return s.active.Context(ctx).HTML()
}

// AcceptDialog reports whether a dialog opened on the active tab since the
// last call. The background watcher normally accepts it already; one still
// showing is accepted here.
func (s *RodSession) AcceptDialog(ctx context.Context) (bool, error) {
	st := s.watchDialogs(s.active)
	seen := st.take()
	if !st.open.Load() {
		return seen, nil
	}
	if err := (proto.PageHandleJavaScriptDialog{Accept: true}).Call(s.active.Context(ctx)); err != nil {
		return seen, err
	}
	st.closed()
	return true, nil
}

// watchDialogs starts, once per tab, a background listener that accepts every
// JavaScript dialog as soon as it opens. A showing dialog freezes the page
// and every DOM call on it.
func (s *RodSession) watchDialogs(page *rod.Page) *dialogState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.dialogs[page.TargetID]; ok {
		return st
	}
	st := &dialogState{}
	s.dialogs[page.TargetID] = st

	p := page.Context(s.ctx)
	wait := p.EachEvent(
		func(e *proto.PageJavascriptDialogOpening) {
			st.opened()
			slog.Debug("javascript dialog opened", "type", e.Type, "message", e.Message)
			go func() {
				if err := (proto.PageHandleJavaScriptDialog{Accept: true}).Call(p); err != nil {
					slog.Debug("dialog auto-accept failed", "error", err)
				}
			}()
		},
		func(_ *proto.PageJavascriptDialogClosed) {
			st.closed()
		},
	)
	go wait()
	return st
}

func (s *RodSession) forgetDialogs(id proto.TargetTargetID) {
	s.mu.Lock()
	delete(s.dialogs, id)
	s.mu.Unlock()
}

func (s *RodSession) FollowNewTab(ctx context.Context) (bool, error) {
	pages, err := s.browser.Context(ctx).Pages()
	if err != nil {
		return false, err
	}

	var next *rod.Page
	for _, p := range pages {
		if p.TargetID == s.home.TargetID {
			continue
		}
		next = p
		if p.TargetID != s.active.TargetID {
			break
		}
	}
	if next == nil {
		return false, nil
	}
	if next.TargetID != s.active.TargetID {
		_ = (proto.PageEnable{}).Call(next)
		s.watchDialogs(next)
		// A dialog that opened before the watcher existed; errors mean none.
		_ = (proto.PageHandleJavaScriptDialog{Accept: true}).Call(next.Context(ctx))
		slog.Debug("following new tab", "target", next.TargetID)
	}
	s.active = next
	return true, nil
}

func (s *RodSession) CloseExtraTabs(ctx context.Context) error {
	s.active = s.home

	pages, err := s.browser.Context(ctx).Pages()
	if err != nil {
		return err
	}
	var firstErr error
	for _, p := range pages {
		if p.TargetID == s.home.TargetID {
			continue
		}
		s.forgetDialogs(p.TargetID)
		if closeErr := p.Close(); closeErr != nil && firstErr == nil {
			firstErr = closeErr
		}
	}
	return firstErr
}

// Close kills the browser process and removes its profile directory.
// Safe to call more than once; only the first call does anything.
func (s *RodSession) Close() error {
	s.closeOnce.Do(func() {
		slog.Info("browser session shutting down")
		s.cancel()
		if s.router != nil {
			_ = s.router.Stop()
		}
		s.closeErr = s.browser.Close()
		s.launcher.Cleanup()
		slog.Info("browser session closed")
	})
	return s.closeErr
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) SelectAll(ctx context.Context) error {
	return e.el.Context(ctx).SelectAllText()
}

func (e *rodElement) Press(ctx context.Context, key Key) error {
	k, ok := rodKeys[key]
	if !ok {
		return fmt.Errorf("browser: unsupported key %d", key)
	}
	return e.el.Context(ctx).Type(k)
}

func (e *rodElement) Type(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}

func (e *rodElement) IsVisible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

var rodKeys = map[Key]input.Key{
	KeyEnter:     input.Enter,
	KeyDelete:    input.Delete,
	KeyBackspace: input.Backspace,
}
