package navigation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/route"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
)

var (
	ErrScreenNotFound = errors.New("screen not found")
	ErrRedirectLoop   = errors.New("too many redirects")
	ErrNotStarted     = errors.New("navigator not started")
)

const maxRedirects = 4

// Mountable is a component composed around a screen while it is shown
type Mountable interface {
	Mount(ctx context.Context)
	Unmount()
}

// View is what the navigator currently shows
type View struct {
	Screen      route.Screen
	Requested   string
	Redirects   []route.Decision
	Composition route.Composition
}

// Navigator evaluates screens against the live session and keeps the
// tracking agent mounted exactly while the shown screen composes it.
type Navigator struct {
	store   session.Store
	screens route.Screens
	paths   route.Paths
	agent   Mountable
	logger  *slog.Logger

	navMu       sync.Mutex
	mu          sync.RWMutex
	ctx         context.Context
	view        View
	requested   string
	mounted     bool
	unsubscribe func()
	onChange    []func(View)
}

func NewNavigator(store session.Store, screens route.Screens, paths route.Paths, agent Mountable, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		store:   store,
		screens: screens,
		paths:   paths,
		agent:   agent,
		logger:  logger,
	}
}

// Start waits for the session bootstrap, then follows session changes.
// Nothing is evaluated before the bootstrap resolves.
func (n *Navigator) Start(ctx context.Context) error {
	select {
	case <-n.store.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	n.mu.Lock()
	n.ctx = ctx
	n.mu.Unlock()

	unsubscribe := n.store.Subscribe(func(session.Session) {
		n.mu.RLock()
		requested := n.requested
		n.mu.RUnlock()
		if requested == "" {
			return
		}
		if _, err := n.Navigate(requested); err != nil {
			n.logger.Error("Re-evaluating screen after session change failed", "path", requested, "error", err)
		}
	})

	n.mu.Lock()
	n.unsubscribe = unsubscribe
	n.mu.Unlock()
	return nil
}

// OnChange registers fn for every new view. fn runs during navigation and
// must not change the session.
func (n *Navigator) OnChange(fn func(View)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = append(n.onChange, fn)
}

// Navigate shows the screen at path, following guard redirects.
func (n *Navigator) Navigate(path string) (View, error) {
	n.navMu.Lock()
	defer n.navMu.Unlock()

	n.mu.RLock()
	ctx := n.ctx
	n.mu.RUnlock()
	if ctx == nil {
		return View{}, ErrNotStarted
	}

	sess := n.store.Current()
	view := View{Requested: path}
	current := path

	for {
		screen, ok := n.screens.Lookup(current)
		if !ok {
			return View{}, ErrScreenNotFound
		}

		d := screen.Evaluate(sess, current, n.paths)
		if d.Allowed() {
			view.Screen = screen
			view.Composition = d.Composition
			break
		}

		view.Redirects = append(view.Redirects, d)
		if len(view.Redirects) > maxRedirects {
			return View{}, ErrRedirectLoop
		}
		n.logger.Debug("Screen redirected", "from", current, "to", d.Target, "role", sess.Role())
		current = d.Target
	}

	n.mu.Lock()
	n.requested = view.Screen.Path
	n.view = view
	wasMounted := n.mounted
	n.mounted = view.Composition.TrackingAgent
	listeners := append([]func(View){}, n.onChange...)
	n.mu.Unlock()

	switch {
	case view.Composition.TrackingAgent && !wasMounted:
		n.agent.Mount(ctx)
	case !view.Composition.TrackingAgent && wasMounted:
		n.agent.Unmount()
	}

	for _, fn := range listeners {
		fn(view)
	}
	return view, nil
}

// Current returns the view on screen
func (n *Navigator) Current() View {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.view
}

// Close stops following the session and unmounts the agent
func (n *Navigator) Close() {
	n.navMu.Lock()
	defer n.navMu.Unlock()

	n.mu.Lock()
	unsubscribe := n.unsubscribe
	n.unsubscribe = nil
	wasMounted := n.mounted
	n.mounted = false
	n.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if wasMounted {
		n.agent.Unmount()
	}
}
