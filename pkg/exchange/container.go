package exchange

import (
	"fmt"
	"sort"
	"sync"
)

// Container holds live exchange instances keyed by name. The aggregator
// addresses platforms through it rather than holding references directly,
// so exchanges can be swapped or torn down at runtime.
type Container struct {
	mu        sync.RWMutex
	exchanges map[string]Exchange
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{exchanges: make(map[string]Exchange)}
}

// Register installs an exchange under the given name, replacing any
// previous instance with that name.
func (c *Container) Register(name string, ex Exchange) {
	c.mu.Lock()
	c.exchanges[name] = ex
	c.mu.Unlock()
}

// Get returns the exchange registered under name.
func (c *Container) Get(name string) (Exchange, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ex, ok := c.exchanges[name]
	if !ok {
		return nil, fmt.Errorf("exchange %q not found", name)
	}
	return ex, nil
}

// Names returns the registered exchange names in sorted order.
func (c *Container) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.exchanges))
	for name := range c.exchanges {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Unregister removes the named exchange. Unknown names are ignored.
func (c *Container) Unregister(name string) {
	c.mu.Lock()
	delete(c.exchanges, name)
	c.mu.Unlock()
}

// Clear drops every registered exchange.
func (c *Container) Clear() {
	c.mu.Lock()
	c.exchanges = make(map[string]Exchange)
	c.mu.Unlock()
}

// Exists reports whether an exchange is registered under name.
func (c *Container) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.exchanges[name]
	return ok
}
