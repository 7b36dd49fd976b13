package panel

import "sync"

// Factory builds a fresh panel.
type Factory func() Panel

// Variants picks a panel implementation from a device class string. It
// replaces swapping the type of a live panel: the class is looked up once,
// before the panel is bound.
type Variants struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewVariants() *Variants {
	return &Variants{factories: make(map[string]Factory)}
}

func (v *Variants) Register(class string, f Factory) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.factories[class] = f
}

// For builds the panel registered for class, or fallback when none is.
func (v *Variants) For(class string, fallback Factory) Panel {
	v.mu.RLock()
	f, ok := v.factories[class]
	v.mu.RUnlock()
	if !ok {
		f = fallback
	}
	if f == nil {
		return nil
	}
	return f()
}

// Has reports whether class has a dedicated panel.
func (v *Variants) Has(class string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.factories[class]
	return ok
}
