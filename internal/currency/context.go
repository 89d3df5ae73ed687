package currency

import (
	"context"
	"fmt"
	"sync"
)

// PreferenceKey is the single key the selected currency is stored under.
const PreferenceKey = "preferred-currency"

// Store persists per-session preferences. GetPreference returns "" with a
// nil error when nothing is stored.
type Store interface {
	GetPreference(ctx context.Context, session, key string) (string, error)
	SetPreference(ctx context.Context, session, key, value string) error
}

// Context holds the selected currency of one browser session.
type Context struct {
	mu      sync.RWMutex
	session string
	current Code
	store   Store
}

// Load restores the session's currency. A missing, invalid or unreadable
// value falls back to Default; a store failure is still returned so the
// caller can log it, alongside a usable Context.
func Load(ctx context.Context, store Store, session string) (*Context, error) {
	c := &Context{session: session, current: Default, store: store}
	if store == nil {
		return c, nil
	}

	saved, err := store.GetPreference(ctx, session, PreferenceKey)
	if err != nil {
		return c, fmt.Errorf("load currency preference: %w", err)
	}
	if code := Code(saved); code.IsValid() {
		c.current = code
	}
	return c, nil
}

func (c *Context) Session() string {
	return c.session
}

func (c *Context) Currency() Code {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Context) Symbol() string {
	return c.Currency().Symbol()
}

// Set switches the session currency and persists it. An invalid code leaves
// the current selection untouched.
func (c *Context) Set(ctx context.Context, code Code) error {
	if !code.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}

	c.mu.Lock()
	c.current = code
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	if err := c.store.SetPreference(ctx, c.session, PreferenceKey, string(code)); err != nil {
		return fmt.Errorf("save currency preference: %w", err)
	}
	return nil
}
