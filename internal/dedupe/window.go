// ABOUTME: Time window suppressing repeated submissions of the same content
// ABOUTME: Size-bounded, insertion-ordered, with background expiry of old fingerprints

package dedupe

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// Fingerprint returns a stable key for a submission. Parts are trimmed and
// case-folded so a resubmitted form with cosmetic differences still matches.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type claim struct {
	at      time.Time
	element *list.Element
}

// Window remembers claimed keys for a fixed duration. When full, the oldest
// claim is dropped first.
type Window struct {
	mu      sync.Mutex
	claims  map[string]*claim
	order   *list.List // keys, oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// New creates a window holding up to maxSize keys for ttl each. A background
// goroutine expires old keys until Close.
func New(ttl time.Duration, maxSize int) *Window {
	if maxSize <= 0 {
		maxSize = 1
	}
	w := &Window{
		claims:  make(map[string]*claim),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.sweepLoop()
	return w
}

// Claim records key and reports true if it was not already claimed within
// the window. A false result means the submission is a duplicate.
func (w *Window) Claim(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if c, ok := w.claims[key]; ok {
		if now.Sub(c.at) < w.ttl {
			return false
		}
		w.order.Remove(c.element)
		delete(w.claims, key)
	}

	if len(w.claims) >= w.maxSize {
		w.dropOldestLocked()
	}
	w.claims[key] = &claim{at: now, element: w.order.PushBack(key)}
	return true
}

// Release forgets key so the same content can be submitted again, for
// example after the submission failed.
func (w *Window) Release(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if c, ok := w.claims[key]; ok {
		w.order.Remove(c.element)
		delete(w.claims, key)
	}
}

// Len returns the number of keys currently held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.claims)
}

func (w *Window) dropOldestLocked() {
	front := w.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	w.order.Remove(front)
	delete(w.claims, key)
}

func (w *Window) sweepLoop() {
	defer w.wg.Done()

	interval := w.ttl
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.done:
			return
		}
	}
}

// sweep drops expired keys. Keys are in claim order, so it stops at the
// first key still inside the window.
func (w *Window) sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for e := w.order.Front(); e != nil; {
		key, _ := e.Value.(string)
		c := w.claims[key]
		if c != nil && now.Sub(c.at) < w.ttl {
			return
		}
		next := e.Next()
		w.order.Remove(e)
		delete(w.claims, key)
		e = next
	}
}

// Close stops the background sweep and waits for it to exit. It is safe to
// call multiple times.
func (w *Window) Close() {
	w.mu.Lock()
	if !w.closed {
		close(w.done)
		w.closed = true
	}
	w.mu.Unlock()
	w.wg.Wait()
}
