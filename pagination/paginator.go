package pagination

import (
	"context"
	"errors"
	"sync"

	"github.com/xcg-dev/dgkit"
)

// Paginator tracks a cursor over a forward-only page source, buffering every
// page it has seen so backward movement never re-invokes the source.
//
// All cursor mutation runs under one per-instance mutex: two near
// simultaneous triggers on the same paginator serialize instead of both
// reading the cursor before either writes it.
type Paginator struct {
	mu        sync.Mutex
	source    Source
	buffer    []Page
	pos       int
	primed    bool
	exhausted bool
}

// New builds a paginator over src. Nothing is pulled until the first
// navigation call.
func New(src Source) *Paginator {
	return &Paginator{source: src}
}

// pullLocked fetches one more page into the buffer. Callers hold p.mu.
func (p *Paginator) pullLocked(ctx context.Context) (Page, bool, error) {
	if p.exhausted {
		return Page{}, false, nil
	}
	page, err := p.source.Next(ctx)
	if errors.Is(err, ErrExhausted) {
		p.exhausted = true
		return Page{}, false, nil
	}
	if err != nil {
		return Page{}, false, err
	}
	p.buffer = append(p.buffer, page)
	return page, true, nil
}

// Next advances to the next page, pulling from the source when the cursor is
// at the buffer's edge. moved is false for the no-op move past an exhausted
// source, in which case the current page is returned unchanged.
func (p *Paginator) Next(ctx context.Context) (page Page, moved bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.primed {
		if _, ok, err := p.pullLocked(ctx); err != nil || !ok {
			if err == nil {
				err = ErrExhausted
			}
			return Page{}, false, err
		}
		p.primed = true
		p.pos = 0
		return p.buffer[0], true, nil
	}

	if p.pos+1 < len(p.buffer) {
		p.pos++
		return p.buffer[p.pos], true, nil
	}

	if _, ok, err := p.pullLocked(ctx); err != nil {
		return Page{}, false, err
	} else if !ok {
		return p.buffer[p.pos], false, nil
	}
	p.pos++
	return p.buffer[p.pos], true, nil
}

// Previous steps back one page. It never touches the source; at position
// zero it is a no-op returning the current page.
func (p *Paginator) Previous() (page Page, moved bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.primed {
		return Page{}, false
	}
	if p.pos == 0 {
		return p.buffer[0], false
	}
	p.pos--
	return p.buffer[p.pos], true
}

// First jumps back to the first buffered page.
func (p *Paginator) First() (page Page, moved bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.primed {
		return Page{}, false
	}
	moved = p.pos != 0
	p.pos = 0
	return p.buffer[0], moved
}

// Last drains the source and jumps to the final page. Only safe for finite
// sources; unbounded ones fail with dgkit.ErrUnsupportedOperation.
func (p *Paginator) Last(ctx context.Context) (page Page, moved bool, err error) {
	if isUnbounded(p.source) {
		return Page{}, false, dgkit.ErrUnsupportedOperation
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.exhausted {
		if _, _, err := p.pullLocked(ctx); err != nil {
			return Page{}, false, err
		}
	}
	if len(p.buffer) == 0 {
		return Page{}, false, ErrExhausted
	}
	if !p.primed {
		p.primed = true
		p.pos = 0
	}
	moved = p.pos != len(p.buffer)-1
	p.pos = len(p.buffer) - 1
	return p.buffer[p.pos], moved, nil
}

// Current returns the page under the cursor, ok=false before the first pull.
func (p *Paginator) Current() (Page, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.primed {
		return Page{}, false
	}
	return p.buffer[p.pos], true
}

// Position returns the zero-based cursor index.
func (p *Paginator) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

// Len returns how many pages have been buffered so far.
func (p *Paginator) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

// Exhausted reports whether the source has signalled completion.
func (p *Paginator) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exhausted
}
