// Package keyring manages a rotating set of API keys for one platform, so
// a session can fail over to the next key when the platform rejects or
// throttles the current one.
package keyring

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// APIKey is one credential set with its usage bookkeeping.
type APIKey struct {
	ID         string
	Key        string
	Secret     string
	Passphrase string
	Disabled   bool
	LastUsed   time.Time
	ErrorCount int
}

// RotationStrategy controls when OnError advances to the next key.
type RotationStrategy int

const (
	// RotationRoundRobin never rotates on errors; callers rotate manually.
	RotationRoundRobin RotationStrategy = iota
	// RotationOnError rotates after any platform error.
	RotationOnError
	// RotationOnRateLimit rotates after throttling and auth errors.
	RotationOnRateLimit
)

// KeyRing is a thread-safe rotating key set.
type KeyRing struct {
	mu       sync.RWMutex
	keys     []*APIKey
	current  int
	strategy RotationStrategy
	log      zerolog.Logger
}

// New builds a key ring over a copy of the given keys.
func New(keys []*APIKey, strategy RotationStrategy) *KeyRing {
	copied := make([]*APIKey, len(keys))
	for i, k := range keys {
		c := *k
		copied[i] = &c
	}
	return &KeyRing{keys: copied, strategy: strategy, log: zerolog.Nop()}
}

// SetLogger attaches a logger for rotation events.
func (k *KeyRing) SetLogger(log zerolog.Logger) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.log = log
}

// Current returns the active key, nil when every key is disabled or the
// ring is empty.
func (k *KeyRing) Current() *APIKey {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.currentLocked()
}

func (k *KeyRing) currentLocked() *APIKey {
	for i := 0; i < len(k.keys); i++ {
		idx := (k.current + i) % len(k.keys)
		if !k.keys[idx].Disabled {
			return k.keys[idx]
		}
	}
	return nil
}

// Rotate advances to the next enabled key.
func (k *KeyRing) Rotate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.rotateLocked()
}

func (k *KeyRing) rotateLocked() {
	if len(k.keys) == 0 {
		return
	}
	start := k.current
	for {
		k.current = (k.current + 1) % len(k.keys)
		if !k.keys[k.current].Disabled || k.current == start {
			if k.current != start {
				k.log.Info().Str("key_id", k.keys[k.current].ID).Msg("rotated to api key")
			}
			return
		}
	}
}

// OnError records an error against the active key and rotates when the
// strategy says so.
func (k *KeyRing) OnError() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.keys) == 0 {
		return
	}
	k.keys[k.current].ErrorCount++
	if k.strategy == RotationOnError || k.strategy == RotationOnRateLimit {
		k.rotateLocked()
	}
}

// MarkUsed stamps the active key's last-used time.
func (k *KeyRing) MarkUsed() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.keys) == 0 {
		return
	}
	k.keys[k.current].LastUsed = time.Now()
}

// Disable takes a key out of rotation by id.
func (k *KeyRing) Disable(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range k.keys {
		if key.ID == id {
			key.Disabled = true
		}
	}
	if len(k.keys) > 0 && k.keys[k.current].Disabled {
		k.rotateLocked()
	}
}

// Enable puts a key back into rotation by id.
func (k *KeyRing) Enable(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range k.keys {
		if key.ID == id {
			key.Disabled = false
		}
	}
}

// Size reports the number of keys, enabled or not.
func (k *KeyRing) Size() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}
