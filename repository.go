package logrepo

import (
	"context"
	"reflect"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type adapterEntry struct {
	name    string
	adapter Adapter
}

// Repository routes log events to registered adapters.
//
// Each Log call runs the same pipeline: the enabled gate, sanitizer
// selection and redaction, optional formatting, then fan-out to every live
// adapter in registration order. A failing adapter never affects the others
// or the caller. All methods are safe for concurrent use.
type Repository struct {
	enabled atomic.Bool

	// mu serializes writers. Log only loads the two pointers below.
	mu       sync.Mutex
	adapters atomic.Pointer[[]adapterEntry]
	config   atomic.Pointer[Config]
}

var (
	instance   atomic.Pointer[Repository]
	instanceMu sync.Mutex
)

// New creates an independent repository. A nil cfg means DefaultConfig().
// The supplied Config is copied; later changes to it have no effect.
func New(cfg *Config) (*Repository, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapError(ErrCodeConfigValidation, "invalid repository configuration", err)
	}

	live := cfg.Clone()
	live.applyDefaults()

	r := &Repository{}
	r.adapters.Store(&[]adapterEntry{})
	r.config.Store(live)
	r.enabled.Store(live.Enabled)

	if len(live.Adapters) > 0 {
		r.warn(live, "Config.Adapters is deprecated and ignored; use RegisterAdapter", nil)
	}
	return r, nil
}

// GetInstance returns the process-wide repository, creating it from cfg on
// the first call. Later calls ignore cfg. An invalid cfg falls back to
// DefaultConfig() with a warning.
func GetInstance(cfg *Config) *Repository {
	if r := instance.Load(); r != nil {
		return r
	}

	instanceMu.Lock()
	defer instanceMu.Unlock()

	if r := instance.Load(); r != nil {
		return r
	}

	r, err := New(cfg)
	if err != nil {
		handler := DefaultWarningHandler
		if cfg != nil && cfg.WarningHandler != nil {
			handler = cfg.WarningHandler
		}
		safeWarn(handler, "invalid configuration, using defaults", err)
		r, _ = New(nil)
	}
	instance.Store(r)
	return r
}

// ResetInstance destroys the process-wide repository, if any, so the next
// GetInstance call builds a fresh one. Teardown errors are ignored.
func ResetInstance() {
	instanceMu.Lock()
	r := instance.Swap(nil)
	instanceMu.Unlock()

	if r != nil {
		_ = r.Destroy(context.Background())
	}
}

func (r *Repository) Enable()         { r.enabled.Store(true) }
func (r *Repository) Disable()        { r.enabled.Store(false) }
func (r *Repository) IsEnabled() bool { return r.enabled.Load() }

// RegisterAdapter makes adapter live under name.
//
// When config is non-nil the adapter is initialized with it first. An
// adapter that fails to initialize, panics, or reports itself disabled is
// not tracked; the failure is reported to the warning handler and
// RegisterAdapter still returns nil. Registering an existing name replaces
// that adapter in place without destroying it.
//
// Errors are returned only for invalid arguments or when MaxAdapterCount
// would be exceeded.
func (r *Repository) RegisterAdapter(ctx context.Context, name string, adapter Adapter, config any) error {
	if name == "" {
		return NewError(ErrCodeEmptyName, "adapter name cannot be empty")
	}
	if isNil(adapter) {
		return NewError(ErrCodeNilAdapter, "adapter cannot be nil").WithContext("adapter", name)
	}
	if !r.HasAdapter(name) && r.AdapterCount() >= MaxAdapterCount {
		return NewError(ErrCodeMaxAdaptersExceeded, "maximum adapter count exceeded").
			WithContext("adapter", name).WithContext("max", MaxAdapterCount)
	}

	cfg := r.config.Load()

	if config != nil {
		if err := initializeAdapter(ctx, adapter, config); err != nil {
			r.adapterFailure(ctx, cfg, name, "failed to initialize, adapter excluded", err)
			return nil
		}
	}

	enabled, err := adapterEnabled(adapter)
	if err != nil {
		r.adapterFailure(ctx, cfg, name, "panicked in IsEnabled, adapter excluded", err)
		return nil
	}
	if !enabled {
		return nil
	}

	r.mu.Lock()
	current := *r.adapters.Load()
	idx := slices.IndexFunc(current, func(e adapterEntry) bool { return e.name == name })
	if idx < 0 && len(current) >= MaxAdapterCount {
		r.mu.Unlock()
		return NewError(ErrCodeMaxAdaptersExceeded, "maximum adapter count exceeded").
			WithContext("adapter", name).WithContext("max", MaxAdapterCount)
	}
	next := make([]adapterEntry, len(current), len(current)+1)
	copy(next, current)
	if idx >= 0 {
		next[idx].adapter = adapter
	} else {
		next = append(next, adapterEntry{name: name, adapter: adapter})
	}
	r.adapters.Store(&next)
	r.mu.Unlock()

	r.trigger(ctx, cfg, HookOnRegister, &HookContext{Adapter: name})
	return nil
}

// UnregisterAdapter removes name and then destroys it. Teardown failures are
// reported as warnings; the adapter is gone either way. It reports whether
// name was registered.
func (r *Repository) UnregisterAdapter(ctx context.Context, name string) bool {
	r.mu.Lock()
	current := *r.adapters.Load()
	idx := slices.IndexFunc(current, func(e adapterEntry) bool { return e.name == name })
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	removed := current[idx]
	next := make([]adapterEntry, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	r.adapters.Store(&next)
	r.mu.Unlock()

	cfg := r.config.Load()
	r.destroyAdapter(ctx, cfg, removed)
	r.trigger(ctx, cfg, HookOnUnregister, &HookContext{Adapter: name})
	return true
}

// Log delivers one event to every live adapter. It never panics and never
// blocks on anything but the adapters' own Log methods.
func (r *Repository) Log(level Level, message string, lc *LogContext) {
	if !r.enabled.Load() {
		return
	}

	entries := *r.adapters.Load()
	cfg := r.config.Load()
	if len(entries) == 0 && cfg.Hooks.Count() == 0 {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.warn(cfg, "log pipeline panicked", PanicError(ErrCodeAdapterLog, "pipeline", rec))
		}
	}()

	delivered := r.prepare(cfg, level, message, lc)

	ctx := context.Background()
	if cfg.Hooks.CountFor(HookBeforeLog) > 0 {
		hookCtx := &HookContext{Level: level, Message: message, LogContext: delivered, Timestamp: time.Now()}
		if err := cfg.Hooks.Trigger(ctx, HookBeforeLog, hookCtx); err != nil {
			return
		}
	}

	for _, e := range entries {
		r.deliver(cfg, e, level, message, delivered)
	}

	if cfg.Hooks.CountFor(HookAfterLog) > 0 {
		err := cfg.Hooks.Trigger(ctx, HookAfterLog, &HookContext{
			Level: level, Message: message, LogContext: delivered, Timestamp: time.Now(),
		})
		if err != nil {
			r.warn(cfg, "hook failed for event "+HookAfterLog.String(), err)
		}
	}
}

// prepare sanitizes lc and attaches formatted output. The result is either
// lc itself, when nothing applies, or a copy.
func (r *Repository) prepare(cfg *Config, level Level, message string, lc *LogContext) *LogContext {
	out := sanitizeContext(cfg, lc)

	formatter := cfg.Formatters.Default
	if formatter == nil {
		return out
	}

	var enriched LogContext
	if out != nil {
		enriched = *out
	}
	if enriched.Timestamp.IsZero() {
		enriched.Timestamp = time.Now()
	}

	formatted := formatter.Format(level, message, &enriched)

	meta := make(map[string]any, len(enriched.Metadata)+1)
	for k, v := range enriched.Metadata {
		meta[k] = v
	}
	meta[FormattedOutputKey] = formatted
	enriched.Metadata = meta
	return &enriched
}

func (r *Repository) deliver(cfg *Config, e adapterEntry, level Level, message string, lc *LogContext) {
	defer func() {
		if rec := recover(); rec != nil {
			err := PanicError(ErrCodeAdapterLog, "adapter "+e.name+" panicked in Log", rec)
			r.adapterFailure(context.Background(), cfg, e.name, "failed to log", err)
		}
	}()
	e.adapter.Log(level, message, lc)
}

// SanitizeContext returns lc with Data, Metadata and object-valued Error
// sanitized. The sanitizer is chosen in priority order: lc.Sanitizer, the
// sanitizer registered for lc.Tag, then the default sanitizer when
// sanitization is enabled. When none applies, or lc.SkipSanitization is set,
// lc is returned as is. lc itself is never modified.
func (r *Repository) SanitizeContext(lc *LogContext) *LogContext {
	return sanitizeContext(r.config.Load(), lc)
}

func sanitizeContext(cfg *Config, lc *LogContext) *LogContext {
	if lc == nil || lc.SkipSanitization {
		return lc
	}
	s := selectSanitizer(cfg, lc)
	if s == nil {
		return lc
	}

	out := *lc
	if lc.Data != nil {
		out.Data = s.Sanitize(lc.Data)
	}
	if lc.Metadata != nil {
		out.Metadata = asMetadata(s.Sanitize(lc.Metadata))
	}
	if lc.Error != nil && isObject(lc.Error) {
		out.Error = s.Sanitize(lc.Error)
	}
	return &out
}

func selectSanitizer(cfg *Config, lc *LogContext) Sanitizer {
	if lc.Sanitizer != nil {
		return lc.Sanitizer
	}
	if lc.Tag != "" && cfg.Registry != nil {
		if s, ok := cfg.Registry.Get(lc.Tag); ok {
			return s
		}
	}
	if cfg.Sanitization.Enabled && cfg.Sanitization.DefaultSanitizer != nil {
		return cfg.Sanitization.DefaultSanitizer
	}
	return nil
}

// asMetadata keeps a sanitizer's result usable as metadata.
func asMetadata(v any) map[string]any {
	switch m := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return m
	default:
		return map[string]any{"value": v}
	}
}

// isObject reports whether an Error slot value is structured. Strings and
// other scalars are left alone.
func isObject(v any) bool {
	if _, ok := v.(error); ok {
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Struct, reflect.Ptr, reflect.Slice, reflect.Array, reflect.Interface:
		return true
	default:
		return false
	}
}

// RegisterSanitizer registers s for tag in the repository's registry.
func (r *Repository) RegisterSanitizer(tag string, s Sanitizer) error {
	return r.config.Load().Registry.Register(tag, s)
}

// GetConfig returns a copy of the live configuration.
func (r *Repository) GetConfig() *Config {
	return r.config.Load().Clone()
}

// UpdateConfig merges patch into the live configuration. A non-empty
// patch.Adapters only produces a warning.
func (r *Repository) UpdateConfig(patch ConfigPatch) error {
	if err := patch.validate(); err != nil {
		return WrapError(ErrCodeConfigValidation, "invalid configuration patch", err)
	}

	r.mu.Lock()
	next := patch.apply(r.config.Load())
	r.config.Store(next)
	r.mu.Unlock()

	if len(patch.Adapters) > 0 {
		r.warn(next, "adapters cannot be changed through UpdateConfig; use RegisterAdapter and UnregisterAdapter", nil)
	}
	return nil
}

// Destroy disables the repository and tears down every adapter concurrently,
// at most DestroyConcurrency at a time. Teardown failures are reported as
// warnings. The returned error is non-nil only if ctx ended first.
func (r *Repository) Destroy(ctx context.Context) error {
	r.enabled.Store(false)

	r.mu.Lock()
	entries := *r.adapters.Swap(&[]adapterEntry{})
	r.mu.Unlock()

	cfg := r.config.Load()

	var g errgroup.Group
	g.SetLimit(DestroyConcurrency)
	for _, e := range entries {
		e := e // per-iteration copy (go directive < 1.22)
		g.Go(func() error {
			r.destroyAdapter(ctx, cfg, e)
			return nil
		})
	}
	_ = g.Wait()

	r.trigger(ctx, cfg, HookOnDestroy, &HookContext{})
	return ctx.Err()
}

func (r *Repository) destroyAdapter(ctx context.Context, cfg *Config, e adapterEntry) {
	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = PanicError(ErrCodeAdapterDestroy, "panic in Destroy", rec)
			}
		}()
		return e.adapter.Destroy(ctx)
	}()
	if err != nil {
		r.adapterFailure(ctx, cfg, e.name, "failed to tear down", WrapError(ErrCodeAdapterDestroy, "destroy", err))
	}
}

// AdapterNames lists live adapters in registration order.
func (r *Repository) AdapterNames() []string {
	entries := *r.adapters.Load()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Adapter returns the live adapter registered under name.
func (r *Repository) Adapter(name string) (Adapter, bool) {
	for _, e := range *r.adapters.Load() {
		if e.name == name {
			return e.adapter, true
		}
	}
	return nil, false
}

func (r *Repository) HasAdapter(name string) bool {
	_, ok := r.Adapter(name)
	return ok
}

func (r *Repository) AdapterCount() int {
	return len(*r.adapters.Load())
}

func initializeAdapter(ctx context.Context, adapter Adapter, config any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = PanicError(ErrCodeAdapterInit, "panic in Initialize", rec)
		}
	}()
	if err := adapter.Initialize(ctx, config); err != nil {
		return WrapError(ErrCodeAdapterInit, "initialize", err)
	}
	return nil
}

func adapterEnabled(adapter Adapter) (enabled bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = PanicError(ErrCodeAdapterInit, "panic in IsEnabled", rec)
		}
	}()
	return adapter.IsEnabled(), nil
}

func (r *Repository) adapterFailure(ctx context.Context, cfg *Config, name, what string, err error) {
	r.warn(cfg, "adapter "+strconv.Quote(name)+" "+what, err)
	r.trigger(ctx, cfg, HookOnAdapterError, &HookContext{Adapter: name, Error: err})
}

func (r *Repository) trigger(ctx context.Context, cfg *Config, event HookEvent, hookCtx *HookContext) {
	if cfg.Hooks.CountFor(event) == 0 {
		return
	}
	hookCtx.Event = event
	if hookCtx.Timestamp.IsZero() {
		hookCtx.Timestamp = time.Now()
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.warn(cfg, "hook panicked for event "+event.String(), PanicError(ErrCodeAdapterLog, "hook", rec))
		}
	}()
	if err := cfg.Hooks.Trigger(ctx, event, hookCtx); err != nil {
		r.warn(cfg, "hook failed for event "+event.String(), err)
	}
}

func (r *Repository) warn(cfg *Config, message string, err error) {
	safeWarn(cfg.WarningHandler, message, err)
}

func safeWarn(handler WarningHandler, message string, err error) {
	if handler == nil {
		handler = DefaultWarningHandler
	}
	defer func() {
		if rec := recover(); rec != nil {
			DefaultWarningHandler(message, err)
		}
	}()
	handler(message, err)
}

func isNil(adapter Adapter) bool {
	if adapter == nil {
		return true
	}
	v := reflect.ValueOf(adapter)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
