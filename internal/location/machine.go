package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	opRequest = "request"
	opResolve = "resolve"
)

// Machine owns the location state of one session. It is the only writer;
// consumers read snapshots through State.
type Machine struct {
	locator       Locator
	permissions   PermissionSource
	geocoder      Geocoder
	fixOpts       FixOptions
	lookupTimeout time.Duration
	logger        *zap.Logger

	// platform work runs on ctx so that Close tears it down
	ctx    context.Context
	cancel context.CancelFunc

	flight    singleflight.Group
	subscribe sync.Once

	mu    sync.RWMutex
	state State
}

type Option func(*Machine)

func WithPermissionSource(p PermissionSource) Option {
	return func(m *Machine) { m.permissions = p }
}

func WithGeocoder(g Geocoder) Option {
	return func(m *Machine) { m.geocoder = g }
}

func WithFixOptions(opts FixOptions) Option {
	return func(m *Machine) {
		if opts.Timeout <= 0 {
			opts.Timeout = DefaultTimeout
		}
		m.fixOpts = opts
	}
}

// WithLookupTimeout bounds the reverse lookup. It defaults to the fix timeout.
func WithLookupTimeout(d time.Duration) Option {
	return func(m *Machine) { m.lookupTimeout = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// NewMachine creates a machine in the prompt state. A nil locator means the
// platform has no geolocation capability at all.
func NewMachine(locator Locator, opts ...Option) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		locator: locator,
		fixOpts: DefaultFixOptions(),
		logger:  zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
		state:   State{Status: StatusPrompt},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.lookupTimeout <= 0 {
		m.lookupTimeout = m.fixOpts.Timeout
	}
	return m
}

// State returns a snapshot of the current location state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Close abandons any in-flight platform request. The machine is unusable afterwards.
func (m *Machine) Close() {
	m.cancel()
}

// QueryInitialStatus reads the stored platform permission, if the platform
// can report it, and subscribes to later changes. Without a permission source
// the machine stays in prompt.
func (m *Machine) QueryInitialStatus(ctx context.Context) {
	if m.locator == nil {
		m.markUnavailable()
		return
	}
	if m.permissions == nil {
		return
	}

	status, err := m.permissions.Permission(ctx)
	if err != nil {
		m.logger.Warn("Failed to query location permission", zap.Error(err))
		return
	}
	m.applyPlatformStatus(status)

	m.subscribe.Do(func() {
		m.permissions.OnChange(m.applyPlatformStatus)
	})
}

// RequestPermission asks the platform for a fix, which prompts the user when
// needed. Concurrent calls share one platform request. It returns when the
// attempt completes or ctx is done; the outcome is read from State.
func (m *Machine) RequestPermission(ctx context.Context) {
	m.singleFlight(ctx, opRequest, m.requestPermission)
}

// ResolveLocation acquires a fresh fix when permission is granted and no
// coordinates are known yet. Otherwise it returns immediately.
func (m *Machine) ResolveLocation(ctx context.Context) {
	m.singleFlight(ctx, opResolve, m.resolveLocation)
}

func (m *Machine) singleFlight(ctx context.Context, key string, fn func()) {
	if m.ctx.Err() != nil {
		return
	}
	ch := m.flight.DoChan(key, func() (any, error) {
		fn()
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (m *Machine) requestPermission() {
	if m.locator == nil {
		m.markUnavailable()
		return
	}
	if m.State().Status == StatusUnavailable {
		return
	}
	m.acquire()
}

func (m *Machine) resolveLocation() {
	s := m.State()
	if s.Status != StatusGranted || s.HasCoordinates() {
		return
	}
	m.acquire()
}

func (m *Machine) acquire() {
	m.mu.Lock()
	m.state.Resolving = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.state.Resolving = false
		m.mu.Unlock()
	}()

	fixCtx, cancel := context.WithTimeout(m.ctx, m.fixOpts.Timeout)
	coords, err := m.locator.RequestFix(fixCtx, m.fixOpts)
	cancel()
	if m.ctx.Err() != nil {
		return
	}
	if err != nil {
		m.fail(classify(err))
		return
	}

	if m.applyFix(coords) && m.geocoder != nil {
		m.lookupRegion(coords)
	}
}

// AcceptFix records a position the platform delivered on its own, outside
// any pending request, e.g. one shared after the request timed out. It runs
// the same transition and reverse lookup as a requested fix and reports
// false when the machine is closed or unavailable.
func (m *Machine) AcceptFix(coords Coordinates) bool {
	if m.ctx.Err() != nil {
		return false
	}
	if !m.applyFix(coords) {
		return false
	}
	if m.geocoder != nil {
		m.lookupRegion(coords)
	}
	return true
}

func (m *Machine) applyFix(coords Coordinates) bool {
	m.mu.Lock()
	if m.state.Status == StatusUnavailable {
		m.mu.Unlock()
		return false
	}
	m.state.Coordinates = &coords
	m.state.Status = StatusGranted
	m.state.LastError = nil
	m.mu.Unlock()
	m.logger.Debug("Location resolved", zap.Stringer("coordinates", coords))
	return true
}

func (m *Machine) lookupRegion(coords Coordinates) {
	ctx, cancel := context.WithTimeout(m.ctx, m.lookupTimeout)
	defer cancel()

	region, err := m.geocoder.ReverseGeocode(ctx, coords)
	if m.ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		// coordinates and permission stay as they are
		le := NewError(LocalityResolutionFailed, err)
		var ge *Error
		if errors.As(err, &ge) && ge.Kind == LocalityResolutionFailed {
			le = ge
		}
		m.state.LastError = le
		m.logger.Warn("Reverse geocoding failed",
			zap.Error(err),
			zap.Stringer("coordinates", coords))
		return
	}
	m.state.Region = &region
}

func (m *Machine) fail(e *Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Status == StatusUnavailable {
		return
	}
	m.state.LastError = e
	switch e.Kind {
	case PermissionDenied:
		m.state.Status = StatusDenied
	case CapabilityUnavailable:
		m.state.Status = StatusUnavailable
	}
	m.logger.Info("Location request failed",
		zap.String("kind", string(e.Kind)),
		zap.String("status", string(m.state.Status)),
		zap.Error(e))
}

func (m *Machine) markUnavailable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Status = StatusUnavailable
	m.state.LastError = NewError(CapabilityUnavailable, nil)
}

func (m *Machine) applyPlatformStatus(status PermissionStatus) {
	switch status {
	case StatusPrompt, StatusGranted, StatusDenied:
	default:
		m.logger.Warn("Ignoring unknown platform permission state", zap.String("state", string(status)))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status == StatusUnavailable {
		return
	}
	if m.state.Status != status {
		m.logger.Debug("Location permission changed",
			zap.String("from", string(m.state.Status)),
			zap.String("to", string(status)))
	}
	m.state.Status = status
}
