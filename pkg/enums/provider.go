// Package enums resolves ENUM and MULTISELECT option lists from
// backend-declared sources. Lookups never block: they return the current
// State and start at most one background fetch per source.
package enums

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-formcards/pkg/logging"
	"github.com/goliatone/go-formcards/pkg/schema"
)

// Status describes where a source is in its fetch lifecycle.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

const (
	DefaultTTL          = 60 * time.Second
	DefaultFailureTTL   = 5 * time.Second
	DefaultFetchTimeout = 15 * time.Second
)

// State is a snapshot of one source.
type State struct {
	Status  Status
	Options []schema.EnumOption
	Err     error
}

// Settled reports whether the state is final for the current epoch.
func (s State) Settled() bool {
	return s.Status != StatusLoading
}

// Label returns the label of the option whose value matches value.
func (s State) Label(value any) (string, bool) {
	return LabelFor(s.Options, value)
}

// LabelFor finds the option matching value by its text form.
func LabelFor(options []schema.EnumOption, value any) (string, bool) {
	if value == nil {
		return "", false
	}
	want := fmt.Sprint(value)
	for _, opt := range options {
		if fmt.Sprint(opt.Value) == want {
			return opt.Label, true
		}
	}
	return "", false
}

// Listener is notified whenever a source settles under its current epoch.
type Listener func(source string, state State)

// Option configures the Provider.
type Option func(*Provider)

// WithTTL sets how long successful results are served from cache.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithFailureTTL sets how long a failure is reported before the next lookup
// retries the fetch.
func WithFailureTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl >= 0 {
			p.failureTTL = ttl
		}
	}
}

// WithFetchTimeout bounds each background fetch.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		if timeout > 0 {
			p.fetchTimeout = timeout
		}
	}
}

// WithLogger reports fetch failures and discarded results.
func WithLogger(logger logging.Logger) Option {
	return func(p *Provider) {
		p.logger = logging.OrNoop(logger)
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

type entry struct {
	state     State
	settledAt time.Time
	loading   bool
	done      chan struct{}
}

// Provider caches option lists per source.
type Provider struct {
	fetcher      Fetcher
	ttl          time.Duration
	failureTTL   time.Duration
	fetchTimeout time.Duration
	logger       logging.Logger
	now          func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	epochs    map[string]uint64
	listeners map[int]Listener
	nextID    int
	inflight  sync.WaitGroup
}

// NewProvider builds a Provider on top of fetcher.
func NewProvider(fetcher Fetcher, options ...Option) *Provider {
	p := &Provider{
		fetcher:      fetcher,
		ttl:          DefaultTTL,
		failureTTL:   DefaultFailureTTL,
		fetchTimeout: DefaultFetchTimeout,
		logger:       logging.Noop(),
		now:          time.Now,
		entries:      make(map[string]*entry),
		epochs:       make(map[string]uint64),
		listeners:    make(map[int]Listener),
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Options returns the option state for field. Non-option fields and fields
// without a source are Idle and never fetch; injected static options are
// Ready without a fetch.
func (p *Provider) Options(ctx context.Context, field schema.FieldDefinition) State {
	if !field.Type.Normalize().HasOptions() {
		return State{Status: StatusIdle}
	}
	if len(field.Options) > 0 {
		return State{Status: StatusReady, Options: append([]schema.EnumOption(nil), field.Options...)}
	}
	return p.Lookup(ctx, field.EnumSource)
}

// Lookup returns the current state for source, starting a background fetch
// when nothing fresh is cached and none is in flight.
func (p *Provider) Lookup(ctx context.Context, source string) State {
	state, _ := p.lookup(ctx, source)
	return state
}

func (p *Provider) lookup(ctx context.Context, source string) (State, <-chan struct{}) {
	source = strings.TrimSpace(source)
	if source == "" || p == nil {
		return State{Status: StatusIdle}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.entries[source]
	if e != nil && (e.loading || p.freshLocked(e)) {
		return e.state, e.done
	}
	if e == nil {
		e = &entry{state: State{Status: StatusLoading}}
		p.entries[source] = e
	} else if e.state.Status != StatusReady {
		// Stale successes keep serving their options while refreshing.
		e.state = State{Status: StatusLoading}
	}
	e.loading = true
	e.done = make(chan struct{})

	epoch := p.epochs[source]
	p.inflight.Add(1)
	go p.load(context.WithoutCancel(ctx), source, epoch, e.done)
	return e.state, e.done
}

func (p *Provider) freshLocked(e *entry) bool {
	age := p.now().Sub(e.settledAt)
	switch e.state.Status {
	case StatusReady:
		return age < p.ttl
	case StatusFailed:
		return age < p.failureTTL
	default:
		return false
	}
}

func (p *Provider) load(ctx context.Context, source string, epoch uint64, done chan struct{}) {
	defer p.inflight.Done()
	defer close(done)

	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	options, err := p.fetch(ctx, source)
	p.settle(source, epoch, options, err)
}

func (p *Provider) fetch(ctx context.Context, source string) (options []schema.EnumOption, err error) {
	defer func() {
		if r := recover(); r != nil {
			options = nil
			err = &EnumFetchError{Source: source, Err: fmt.Errorf("fetcher panic: %v", r)}
		}
	}()
	if p.fetcher == nil {
		return nil, &EnumFetchError{Source: source, Err: fmt.Errorf("no fetcher configured")}
	}
	options, err = p.fetcher.FetchOptions(ctx, source)
	if err != nil {
		if _, ok := err.(*EnumFetchError); !ok {
			err = &EnumFetchError{Source: source, Err: err}
		}
		return nil, err
	}
	return options, nil
}

func (p *Provider) settle(source string, epoch uint64, options []schema.EnumOption, err error) {
	p.mu.Lock()
	if p.epochs[source] != epoch {
		p.mu.Unlock()
		p.logger.Printf("enums: discarding stale result for %q (epoch %d)", source, epoch)
		return
	}
	e := p.entries[source]
	if e == nil {
		p.mu.Unlock()
		return
	}
	if err != nil {
		e.state = State{Status: StatusFailed, Err: err}
	} else {
		if options == nil {
			options = []schema.EnumOption{}
		}
		e.state = State{Status: StatusReady, Options: options}
	}
	e.loading = false
	e.settledAt = p.now()
	state := e.state
	listeners := make([]Listener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Printf("enums: %v", err)
	}
	for _, fn := range listeners {
		fn(source, state)
	}
}

// Wait blocks until source settles or ctx is done, starting a fetch when
// needed. Server-side renders call it before composing.
func (p *Provider) Wait(ctx context.Context, source string) (State, error) {
	for {
		state, done := p.lookup(ctx, source)
		if state.Settled() || done == nil {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return p.Peek(source), fmt.Errorf("enums: wait %q: %w", source, ctx.Err())
		case <-done:
		}
	}
}

// Peek returns the cached state without starting a fetch.
func (p *Provider) Peek(source string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.entries[strings.TrimSpace(source)]; e != nil {
		return e.state
	}
	return State{Status: StatusIdle}
}

// Invalidate drops the cached state for source and bumps its epoch so an
// in-flight fetch cannot write back.
func (p *Provider) Invalidate(source string) {
	source = strings.TrimSpace(source)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epochs[source]++
	delete(p.entries, source)
}

// InvalidateAll drops every source.
func (p *Provider) InvalidateAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for source := range p.entries {
		p.epochs[source]++
	}
	p.entries = make(map[string]*entry)
}

// Subscribe registers fn and returns a function removing it.
func (p *Provider) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}
