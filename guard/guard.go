package guard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jonwraymond/guardian/session"
)

// Decision is the outcome of evaluating a screen against a session.
type Decision int

const (
	// DecisionRender shows the screen.
	DecisionRender Decision = iota
	// DecisionWait renders nothing until the session resolves.
	DecisionWait
	// DecisionRedirect renders nothing and sends the user to the login screen.
	DecisionRedirect
)

func (d Decision) String() string {
	switch d {
	case DecisionRender:
		return "render"
	case DecisionWait:
		return "wait"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decide evaluates screen for the session snapshot.
func Decide(snap session.Snapshot, screen Screen) Decision {
	switch {
	case !screen.Protected:
		return DecisionRender
	case snap.Authenticated():
		return DecisionRender
	case !snap.Resolved():
		return DecisionWait
	default:
		return DecisionRedirect
	}
}

// Navigator presents screens.
//
// Contract:
//   - Show displays the named screen.
//   - Redirect replaces the current screen with the named one.
//   - Clear removes what is displayed without showing anything else.
//   - Calls happen on the goroutine that caused the decision, one at a time.
type Navigator interface {
	Show(screen string)
	Redirect(screen string)
	Clear()
}

// Source supplies session snapshots and transitions. *session.Manager
// implements it.
type Source interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

var _ Source = (*session.Manager)(nil)

// Config configures a Guard.
type Config struct {
	// Screens is the catalogue. Default: DefaultScreens.
	Screens []Screen

	// LoginScreen is the redirect target. Default: ScreenLogin.
	LoginScreen string

	// HomeScreen is shown after sign-in when no protected screen was
	// requested. Default: ScreenHome.
	HomeScreen string
}

// Guard applies Decide to navigation and to every session transition.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Close stops reacting to the session; later Navigate calls still work.
type Guard struct {
	source  Source
	nav     Navigator
	screens map[string]Screen
	login   string
	home    string

	mu       sync.Mutex
	current  string // requested screen
	shown    string // screen the navigator displays, empty while waiting
	returnTo string // protected screen requested before a redirect
	signedIn bool   // last snapshot seen was authenticated

	unsubscribe func()
	closeOnce   sync.Once
}

// New creates a Guard and subscribes it to source.
func New(source Source, nav Navigator, cfg Config) (*Guard, error) {
	if source == nil || nav == nil {
		return nil, errors.New("guard: source and navigator are required")
	}
	if len(cfg.Screens) == 0 {
		cfg.Screens = DefaultScreens
	}
	if cfg.LoginScreen == "" {
		cfg.LoginScreen = ScreenLogin
	}
	if cfg.HomeScreen == "" {
		cfg.HomeScreen = ScreenHome
	}

	g := &Guard{
		source:  source,
		nav:     nav,
		screens: make(map[string]Screen, len(cfg.Screens)),
		login:   cfg.LoginScreen,
		home:    cfg.HomeScreen,
	}
	for _, s := range cfg.Screens {
		g.screens[s.Name] = s
	}
	if s, ok := g.screens[g.login]; !ok || s.Protected {
		return nil, fmt.Errorf("%w: login screen %q must be a public screen", ErrUnknownScreen, g.login)
	}
	if _, ok := g.screens[g.home]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScreen, g.home)
	}

	g.signedIn = source.Snapshot().Authenticated()
	g.unsubscribe = source.Subscribe(g.onChange)
	return g, nil
}

// Navigate requests a screen and returns the decision taken for it.
func (g *Guard) Navigate(name string) (Decision, error) {
	screen, ok := g.screens[name]
	if !ok {
		return DecisionRedirect, fmt.Errorf("%w: %q", ErrUnknownScreen, name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = name
	snap := g.source.Snapshot()
	g.signedIn = snap.Authenticated()
	return g.applyLocked(screen, snap), nil
}

// Current returns the screen displayed, or "" while waiting.
func (g *Guard) Current() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shown
}

// Close unsubscribes from the session.
func (g *Guard) Close() {
	g.closeOnce.Do(g.unsubscribe)
}

func (g *Guard) onChange(snap session.Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	wasSignedIn := g.signedIn
	g.signedIn = snap.Authenticated()
	if g.current == "" {
		return
	}
	screen := g.screens[g.current]

	// Signing in from a public screen continues to the screen that was
	// refused, or home. A user already signed in stays where they are.
	if snap.Authenticated() && !wasSignedIn && !screen.Protected {
		target := g.returnTo
		if target == "" {
			target = g.home
		}
		g.returnTo = ""
		g.current = target
		g.shown = target
		g.nav.Redirect(target)
		return
	}

	g.applyLocked(screen, snap)
}

func (g *Guard) applyLocked(screen Screen, snap session.Snapshot) Decision {
	d := Decide(snap, screen)
	switch d {
	case DecisionRender:
		if g.shown != screen.Name {
			g.shown = screen.Name
			g.nav.Show(screen.Name)
		}
	case DecisionWait:
		if g.shown != "" {
			g.shown = ""
			g.nav.Clear()
		}
	case DecisionRedirect:
		g.returnTo = screen.Name
		g.current = g.login
		g.shown = g.login
		g.nav.Redirect(g.login)
	}
	return d
}
