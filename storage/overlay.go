package storage

import "sync"

// Overlay buffers writes on top of a base database. Reads consult the
// buffered writes first and fall through to the base. Commit flushes the
// buffer into the base; Discard drops it, restoring the base view. Hosts
// wrap each engine call in an overlay so a failed call leaves no state
// behind.
type Overlay struct {
	base    Database
	mu      sync.RWMutex
	pending map[string][]byte
}

// NewOverlay returns an empty overlay on top of base.
func NewOverlay(base Database) *Overlay {
	return &Overlay{
		base:    base,
		pending: make(map[string][]byte),
	}
}

// Put buffers the pair; the base is untouched until Commit.
func (o *Overlay) Put(key []byte, value []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending[string(key)] = append([]byte(nil), value...)
	return nil
}

// Get returns the buffered value when present, otherwise the base value.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	o.mu.RLock()
	value, ok := o.pending[string(key)]
	o.mu.RUnlock()
	if ok {
		return value, nil
	}
	return o.base.Get(key)
}

// Has reports presence in the buffer or the base.
func (o *Overlay) Has(key []byte) (bool, error) {
	o.mu.RLock()
	_, ok := o.pending[string(key)]
	o.mu.RUnlock()
	if ok {
		return true, nil
	}
	return o.base.Has(key)
}

// Commit flushes the buffered writes into the base and clears the buffer.
// On a write error the remaining buffer is kept so the caller can retry.
func (o *Overlay) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for key, value := range o.pending {
		if err := o.base.Put([]byte(key), value); err != nil {
			return err
		}
		delete(o.pending, key)
	}
	return nil
}

// Discard drops every buffered write, restoring the base view.
func (o *Overlay) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = make(map[string][]byte)
}

// Close discards the buffer and closes the base.
func (o *Overlay) Close() {
	o.Discard()
	o.base.Close()
}
