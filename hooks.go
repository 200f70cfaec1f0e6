package logrepo

import (
	"context"
	"sync"
	"time"
)

// HookEvent represents the type of event that triggers a hook.
type HookEvent int

const (
	// HookBeforeLog runs after sanitization and formatting, before fan-out.
	// Returning an error drops the event.
	HookBeforeLog HookEvent = iota

	// HookAfterLog runs once every adapter has been called.
	HookAfterLog

	// HookOnAdapterError runs when an adapter fails to initialize, log or tear down.
	HookOnAdapterError

	// HookOnRegister runs when an adapter becomes live.
	HookOnRegister

	// HookOnUnregister runs after an adapter has been removed.
	HookOnUnregister

	// HookOnDestroy runs when the repository is destroyed.
	HookOnDestroy
)

func (e HookEvent) String() string {
	switch e {
	case HookBeforeLog:
		return "BeforeLog"
	case HookAfterLog:
		return "AfterLog"
	case HookOnAdapterError:
		return "OnAdapterError"
	case HookOnRegister:
		return "OnRegister"
	case HookOnUnregister:
		return "OnUnregister"
	case HookOnDestroy:
		return "OnDestroy"
	default:
		return "Unknown"
	}
}

// HookContext provides contextual information for hook execution.
type HookContext struct {
	Event HookEvent

	// Level and Message are set for log events.
	Level   Level
	Message string

	// LogContext is the sanitized context delivered to adapters.
	LogContext *LogContext

	// Adapter names the adapter involved, for adapter lifecycle events.
	Adapter string

	Error     error
	Timestamp time.Time
}

// Hook is a function called during repository lifecycle events.
// If a BeforeLog hook returns an error, the event is not delivered.
type Hook func(ctx context.Context, hookCtx *HookContext) error

// HookErrorHandler handles errors returned by hooks.
// The handler should not panic.
type HookErrorHandler func(event HookEvent, hookCtx *HookContext, err error)

// HookErrorRecorder records hook errors for later inspection.
//
// Usage:
//
//	recorder := NewHookErrorRecorder()
//	hooks := NewHookRegistryWithErrorHandler(recorder.Handler())
//	// ... after hooks run ...
//	for _, info := range recorder.Errors() {
//	    fmt.Println(info.Event, info.Error)
//	}
type HookErrorRecorder struct {
	mu     sync.Mutex
	errors []HookErrorInfo
}

// HookErrorInfo contains information about a hook error.
type HookErrorInfo struct {
	Event     HookEvent
	Timestamp time.Time
	Error     error
	Message   string
	Adapter   string
}

func NewHookErrorRecorder() *HookErrorRecorder {
	return &HookErrorRecorder{
		errors: make([]HookErrorInfo, 0),
	}
}

// Handler returns a HookErrorHandler that records errors to this recorder.
func (r *HookErrorRecorder) Handler() HookErrorHandler {
	return func(event HookEvent, hookCtx *HookContext, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		info := HookErrorInfo{
			Event:     event,
			Timestamp: time.Now(),
			Error:     err,
		}
		if hookCtx != nil {
			info.Message = hookCtx.Message
			info.Adapter = hookCtx.Adapter
		}

		r.errors = append(r.errors, info)
	}
}

func (r *HookErrorRecorder) Errors() []HookErrorInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]HookErrorInfo, len(r.errors))
	copy(result, r.errors)
	return result
}

func (r *HookErrorRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func (r *HookErrorRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = r.errors[:0]
}

func (r *HookErrorRecorder) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors) > 0
}

// HookRegistry manages hooks by event type. It is safe for concurrent use.
//
// Without an error handler, Trigger stops at the first failing hook and
// returns its error. With one, every hook runs, each error goes to the
// handler, and the first error is returned.
type HookRegistry struct {
	mu           sync.RWMutex
	hooks        map[HookEvent][]Hook
	errorHandler HookErrorHandler
}

func NewHookRegistry() *HookRegistry {
	return &HookRegistry{
		hooks: make(map[HookEvent][]Hook),
	}
}

// NewHookRegistryWithErrorHandler creates a registry that runs every hook
// and reports failures to handler.
func NewHookRegistryWithErrorHandler(handler HookErrorHandler) *HookRegistry {
	return &HookRegistry{
		hooks:        make(map[HookEvent][]Hook),
		errorHandler: handler,
	}
}

// SetErrorHandler sets the error handler. Nil restores stop-on-first-error.
func (r *HookRegistry) SetErrorHandler(handler HookErrorHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorHandler = handler
}

// Add registers a hook for an event. Nil hooks are ignored.
// Hooks run in the order they were added.
func (r *HookRegistry) Add(event HookEvent, hook Hook) {
	if hook == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[event] = append(r.hooks[event], hook)
}

// Trigger runs all hooks registered for event.
func (r *HookRegistry) Trigger(ctx context.Context, event HookEvent, hookCtx *HookContext) error {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	hooks := r.hooks[event]
	handler := r.errorHandler
	r.mu.RUnlock()

	if len(hooks) == 0 {
		return nil
	}

	var firstErr error
	for _, hook := range hooks {
		if err := hook(ctx, hookCtx); err != nil {
			if handler == nil {
				return err
			}
			handler(event, hookCtx, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// Clone copies the registry. Hook functions are shared.
func (r *HookRegistry) Clone() *HookRegistry {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := &HookRegistry{
		hooks:        make(map[HookEvent][]Hook, len(r.hooks)),
		errorHandler: r.errorHandler,
	}
	for event, hooks := range r.hooks {
		clone.hooks[event] = append([]Hook(nil), hooks...)
	}
	return clone
}

// Count returns the total number of registered hooks.
func (r *HookRegistry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, hooks := range r.hooks {
		count += len(hooks)
	}
	return count
}

func (r *HookRegistry) CountFor(event HookEvent) int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[event])
}

func (r *HookRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = make(map[HookEvent][]Hook)
}

// ClearFor removes all hooks for one event.
func (r *HookRegistry) ClearFor(event HookEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hooks, event)
}

// HookBuilder provides a fluent interface for building hook registries.
type HookBuilder struct {
	registry *HookRegistry
}

func NewHookBuilder() *HookBuilder {
	return &HookBuilder{
		registry: NewHookRegistry(),
	}
}

func (b *HookBuilder) BeforeLog(hook Hook) *HookBuilder {
	b.registry.Add(HookBeforeLog, hook)
	return b
}

func (b *HookBuilder) AfterLog(hook Hook) *HookBuilder {
	b.registry.Add(HookAfterLog, hook)
	return b
}

func (b *HookBuilder) OnAdapterError(hook Hook) *HookBuilder {
	b.registry.Add(HookOnAdapterError, hook)
	return b
}

func (b *HookBuilder) OnRegister(hook Hook) *HookBuilder {
	b.registry.Add(HookOnRegister, hook)
	return b
}

func (b *HookBuilder) OnUnregister(hook Hook) *HookBuilder {
	b.registry.Add(HookOnUnregister, hook)
	return b
}

func (b *HookBuilder) OnDestroy(hook Hook) *HookBuilder {
	b.registry.Add(HookOnDestroy, hook)
	return b
}

// ErrorHandler sets the registry's error handler.
func (b *HookBuilder) ErrorHandler(handler HookErrorHandler) *HookBuilder {
	b.registry.SetErrorHandler(handler)
	return b
}

func (b *HookBuilder) Build() *HookRegistry {
	return b.registry
}
