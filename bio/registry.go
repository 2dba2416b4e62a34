package bio

import (
	"sync"

	"github.com/joeycumines/go-mcukernel/kerrors"
	"github.com/joeycumines/go-mcukernel/klog"
)

// defaultAsyncWorkers bounds the synthesized-async worker pool when a
// Registry is constructed with RegistryConfig.AsyncWorkers <= 0.
const defaultAsyncWorkers = 4

// RegistryConfig tunes a Registry. The zero value is valid; AsyncWorkers
// falls back to defaultAsyncWorkers.
type RegistryConfig struct {
	// AsyncWorkers bounds the number of goroutines synthesizing
	// ReadAsync/WriteAsync for devices without a native async path
	// (spec §4.4). **Defaults to 4, if 0.**
	AsyncWorkers int
}

func (c *RegistryConfig) asyncWorkers() int {
	if c == nil || c.AsyncWorkers <= 0 {
		return defaultAsyncWorkers
	}
	return c.AsyncWorkers
}

type registryEntry struct {
	dev          Device
	openCount    int
	unregistered bool
}

// Registry is the kernel's name-to-device map (spec §3, §9). It also owns
// the bounded worker pool used to synthesize async I/O for devices that
// don't implement AsyncDevice natively (async.go).
type Registry struct {
	mu      sync.Mutex
	devices map[string]*registryEntry

	asyncSem chan struct{}
}

// NewRegistry constructs an empty Registry.
func NewRegistry(cfg *RegistryConfig) *Registry {
	var c RegistryConfig
	if cfg != nil {
		c = *cfg
	}
	return &Registry{
		devices:  make(map[string]*registryEntry),
		asyncSem: make(chan struct{}, c.asyncWorkers()),
	}
}

// Register adds dev to the registry under its own Device.Name(). Fails
// AlreadyExists if that name is already registered.
func (r *Registry) Register(dev Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := dev.Name()
	if e, ok := r.devices[name]; ok && !e.unregistered {
		return kerrors.New(kerrors.AlreadyExists, "bio.Register")
	}
	r.devices[name] = &registryEntry{dev: dev}
	return nil
}

// Handle is an open reference to a registered Device (spec §4.4 "open").
type Handle struct {
	reg    *Registry
	name   string
	device Device
	closed bool
}

// Device returns the handle's underlying Device.
func (h *Handle) Device() Device { return h.device }

// Open looks up name and returns a Handle, incrementing the device's open
// count (spec §4.4 "open"). Fails NotFound if no such device is
// registered, or if it has been unregistered, even while earlier handles
// to it are still open.
func (r *Registry) Open(name string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.devices[name]
	if !ok || e.unregistered {
		return nil, kerrors.New(kerrors.NotFound, "bio.Open")
	}
	e.openCount++
	return &Handle{reg: r, name: name, device: e.dev}, nil
}

// Close decrements h's device's open count (spec §4.4 "close"). Closing
// an already-closed handle is a no-op.
func (r *Registry) Close(h *Handle) {
	if h == nil || h.closed {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h.closed = true
	e, ok := r.devices[h.name]
	if !ok {
		return
	}
	e.openCount--
	if e.unregistered && e.openCount <= 0 {
		delete(r.devices, h.name)
		klog.L().Debug().Str("name", h.name).Log("bio device reclaimed")
	}
}

// Unregister removes h's device from the registry so no further Open can
// find it. If the device is still referenced by other open handles, it
// is only actually dropped once the last Close brings the open count to
// zero (spec §4.4 "unregister").
func (r *Registry) Unregister(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.devices[h.name]
	if !ok {
		return kerrors.New(kerrors.NotFound, "bio.Unregister")
	}
	e.unregistered = true
	if e.openCount <= 0 {
		delete(r.devices, h.name)
	}
	return nil
}
