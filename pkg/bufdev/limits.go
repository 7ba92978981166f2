package bufdev

// Hardcoded implementation limits.
//
// Limit violations are configuration errors and return ErrInvalidInput.
const (
	// DefaultMaxInstances is the instance ceiling used when
	// Options.MaxInstances is zero.
	DefaultMaxInstances = 5

	// DefaultCapacity is the per-instance capacity used when neither
	// Options.Capacity nor an InstanceOptions override sets one.
	DefaultCapacity = 1024

	// Absolute ceiling for Options.MaxInstances.
	maxInstanceLimit = 256

	// Maximum capacity of a single instance (bytes).
	maxCapacityBytes = 64 << 20 // 64 MiB

	// Maximum serial number length (bytes).
	maxSerialLen = 64
)
