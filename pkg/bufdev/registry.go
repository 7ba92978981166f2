package bufdev

import (
	"fmt"

	"github.com/calvinalkan/bufdev/internal/bounds"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configure a [Registry].
type Options struct {
	// Count is the number of instances to create. Must be at least 1 and at
	// most MaxInstances.
	Count int

	// Capacity is the buffer size of every instance without an override.
	// Zero means DefaultCapacity.
	Capacity int

	// Base is the identifier of the first instance. Instances are numbered
	// Base, Base+1, ..., Base+Count-1.
	Base int

	// MaxInstances caps Count. Zero means DefaultMaxInstances. A Count above
	// the cap is rejected, never truncated.
	MaxInstances int

	// SingleOpen limits every instance to one open session at a time.
	SingleOpen bool

	// Instances optionally overrides per-instance settings. When set, its
	// length must equal Count; entry i applies to identifier Base+i.
	Instances []InstanceOptions

	// Logger receives debug events. Nil disables logging.
	Logger *zap.Logger

	// Observer receives an Event after every session operation. Nil
	// disables observation.
	Observer Observer
}

// InstanceOptions override the registry-wide settings for one instance.
type InstanceOptions struct {
	// Capacity overrides Options.Capacity when non-zero.
	Capacity int

	// Permission limits which modes the instance may be opened with. Zero
	// means ReadWrite.
	Permission Mode

	// Serial is a free-form serial number. Empty means a random UUID.
	Serial string
}

// Registry is a fixed table of instances addressed by identifier.
//
// All methods are safe for concurrent use. A Registry must be obtained via
// [New]; the zero value is not usable.
type Registry struct {
	_ [0]func() // prevent external construction

	base      int
	instances []*Instance
	gate      admission
	log       *zap.Logger
	observer  Observer
}

// New validates opts and creates the instances, each zero-filled with an
// empty high-water mark.
//
// Possible errors: [ErrInvalidInput].
func New(opts Options) (*Registry, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	err := validateOptions(opts)
	if err != nil {
		log.Warn("rejecting registry options", zap.Error(err))

		return nil, err
	}

	capacity := opts.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	reg := &Registry{
		base:      opts.Base,
		instances: make([]*Instance, opts.Count),
		gate:      openGate{},
		log:       log,
		observer:  opts.Observer,
	}

	if opts.SingleOpen {
		reg.gate = singleOpenGate{}
	}

	if reg.observer == nil {
		reg.observer = nopObserver{}
	}

	for idx := range opts.Count {
		instCap := capacity
		perm := ReadWrite
		serial := ""

		if len(opts.Instances) > 0 {
			override := opts.Instances[idx]
			if override.Capacity != 0 {
				instCap = override.Capacity
			}

			if override.Permission != 0 {
				perm = override.Permission
			}

			serial = override.Serial
		}

		if serial == "" {
			serial = uuid.NewString()
		}

		reg.instances[idx] = newInstance(opts.Base+idx, instCap, perm, serial)
	}

	log.Debug("registry created",
		zap.Int("count", opts.Count),
		zap.Int("base", opts.Base),
		zap.Int("capacity", capacity),
		zap.Bool("single_open", opts.SingleOpen),
	)

	return reg, nil
}

func validateOptions(opts Options) error {
	maxInstances := opts.MaxInstances
	if maxInstances == 0 {
		maxInstances = DefaultMaxInstances
	}

	if maxInstances < 0 || maxInstances > maxInstanceLimit {
		return fmt.Errorf("max instances %d out of range [1, %d]: %w", maxInstances, maxInstanceLimit, ErrInvalidInput)
	}

	if opts.Count < 1 {
		return fmt.Errorf("count %d must be at least 1: %w", opts.Count, ErrInvalidInput)
	}

	if opts.Count > maxInstances {
		return fmt.Errorf("count %d exceeds max instances %d: %w", opts.Count, maxInstances, ErrInvalidInput)
	}

	if opts.Base < 0 {
		return fmt.Errorf("base %d must not be negative: %w", opts.Base, ErrInvalidInput)
	}

	if _, ok := bounds.AddInt(opts.Base, opts.Count); !ok {
		return fmt.Errorf("base %d + count %d overflows: %w", opts.Base, opts.Count, ErrInvalidInput)
	}

	err := validateCapacity(opts.Capacity)
	if err != nil {
		return err
	}

	if len(opts.Instances) != 0 && len(opts.Instances) != opts.Count {
		return fmt.Errorf("%d instance overrides for count %d: %w", len(opts.Instances), opts.Count, ErrInvalidInput)
	}

	for idx, override := range opts.Instances {
		err := validateCapacity(override.Capacity)
		if err != nil {
			return fmt.Errorf("instance %d: %w", opts.Base+idx, err)
		}

		if override.Permission != 0 && !override.Permission.valid() {
			return fmt.Errorf("instance %d: permission %s: %w", opts.Base+idx, override.Permission, ErrInvalidInput)
		}

		if len(override.Serial) > maxSerialLen {
			return fmt.Errorf("instance %d: serial longer than %d bytes: %w", opts.Base+idx, maxSerialLen, ErrInvalidInput)
		}
	}

	return nil
}

func validateCapacity(capacity int) error {
	if capacity < 0 || capacity > maxCapacityBytes {
		return fmt.Errorf("capacity %d out of range [0, %d]: %w", capacity, maxCapacityBytes, ErrInvalidInput)
	}

	return nil
}

// Resolve returns the instance with the given identifier.
//
// Resolution is a direct index computation.
//
// Possible errors: [ErrNotFound].
func (r *Registry) Resolve(id int) (*Instance, error) {
	idx := id - r.base
	if id < r.base || idx >= len(r.instances) {
		return nil, fmt.Errorf("instance %d: %w", id, ErrNotFound)
	}

	return r.instances[idx], nil
}

// Open binds a new session with cursor 0 to the instance id.
//
// mode must be one of ReadOnly, WriteOnly or ReadWrite and must be granted
// by the instance permission. With [Options.SingleOpen], Open fails with
// [ErrBusy] while another session holds the instance and no session is
// created.
//
// Possible errors: [ErrNotFound], [ErrInvalidInput], [ErrPermission], [ErrBusy].
func (r *Registry) Open(id int, mode Mode) (Session, error) {
	s, err := r.open(id, mode)

	r.observer.Observe(Event{Op: OpOpen, ID: id, Err: err})

	if err != nil {
		r.log.Debug("open rejected", zap.Int("id", id), zap.Stringer("mode", mode), zap.Error(err))

		return nil, err
	}

	r.log.Debug("device opened", zap.Int("id", id), zap.Stringer("mode", mode))

	return s, nil
}

func (r *Registry) open(id int, mode Mode) (*session, error) {
	inst, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}

	if !mode.valid() {
		return nil, fmt.Errorf("open instance %d: mode %s: %w", id, mode, ErrInvalidInput)
	}

	if !inst.perm.allows(mode) {
		return nil, fmt.Errorf("open instance %d %s (permits %s): %w", id, mode, inst.perm, ErrPermission)
	}

	err = r.gate.acquire(inst)
	if err != nil {
		return nil, fmt.Errorf("open instance %d: %w", id, err)
	}

	inst.open.Add(1)

	return &session{reg: r, inst: inst, mode: mode}, nil
}

// Info returns a snapshot of the instance id.
//
// Possible errors: [ErrNotFound].
func (r *Registry) Info(id int) (InstanceInfo, error) {
	inst, err := r.Resolve(id)
	if err != nil {
		return InstanceInfo{}, err
	}

	return inst.info(), nil
}

// IDs returns all instance identifiers in ascending order.
func (r *Registry) IDs() []int {
	ids := make([]int, len(r.instances))
	for idx := range r.instances {
		ids[idx] = r.base + idx
	}

	return ids
}

// Len returns the number of instances.
func (r *Registry) Len() int { return len(r.instances) }

// Base returns the identifier of the first instance.
func (r *Registry) Base() int { return r.base }

// SingleOpen reports whether instances admit only one session at a time.
func (r *Registry) SingleOpen() bool { return r.gate.exclusive() }
