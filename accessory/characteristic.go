package accessory

import (
	"fmt"
	"sync"
)

// Characteristic is a single typed value exposed by a Service (§3). Value
// reads/writes go through Value/SetValue, which enforce the format/range
// constraints pyhap's Characteristic._value_to_HAP applies before a value
// ever reaches the wire.
type Characteristic struct {
	mu sync.RWMutex

	iid  uint64
	Type TypeID

	Format      Format
	Perms       []Perm
	Description string
	Unit        Unit

	MinValue *float64
	MaxValue *float64
	MinStep  *float64
	MaxLen   *int
	ValidValues map[int]string

	value interface{}

	// onChange, if set, is invoked with the new value and the origin that
	// set it (nil for a device-side change) after a successful SetValue.
	// The driver installs this once per characteristic to fan the change
	// out to event subscribers, filtering the origin connection so a
	// controller never sees an echo of its own write (§4.7).
	onChange func(v interface{}, origin interface{})

	// subscribed tracks whether any connection currently subscribes to this
	// characteristic's events (driver populates/clears this via Subscribe).
	subscribed bool
}

// NewCharacteristic constructs a characteristic with its format's zero
// value and the given permissions.
func NewCharacteristic(t TypeID, format Format, perms ...Perm) *Characteristic {
	return &Characteristic{
		Type:  t,
		Format: format,
		Perms: perms,
		value: format.defaultValue(),
	}
}

// IID returns the characteristic's instance id, assigned when its service
// is added to an accessory (NewAccessory, AddService). Zero means
// unassigned.
func (c *Characteristic) IID() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iid
}

func (c *Characteristic) setIID(iid uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.iid = iid
}

// Readable/Writable/Notifiable report whether the permission set contains
// the corresponding flag.
func (c *Characteristic) Readable() bool   { return c.hasPerm(PermRead) }
func (c *Characteristic) Writable() bool   { return c.hasPerm(PermWrite) }
func (c *Characteristic) Notifiable() bool { return c.hasPerm(PermNotify) }

func (c *Characteristic) hasPerm(p Perm) bool {
	for _, have := range c.Perms {
		if have == p {
			return true
		}
	}
	return false
}

// Value returns the characteristic's current value.
func (c *Characteristic) Value() interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// SetValue validates and stores a new value, clamping numeric values to
// [MinValue, MaxValue] and truncating strings past MaxLen, mirroring
// pyhap's Characteristic.set_value / _value_to_HAP clamp-don't-reject
// behavior for out-of-range numerics. Returns an error only when the value
// cannot be coerced into the characteristic's format at all. Equivalent to
// SetValueFrom(v, nil): a device-side change with no originating
// connection to exclude from event fan-out.
func (c *Characteristic) SetValue(v interface{}) error {
	return c.SetValueFrom(v, nil)
}

// SetValueFrom is SetValue plus an origin, opaque to this package, that the
// driver's change callback receives alongside the new value so it can
// exclude the originating connection from event fan-out (§4.7: "a
// subscribed write from the device side does not emit events back to the
// originating controller").
func (c *Characteristic) SetValueFrom(v interface{}, origin interface{}) error {
	coerced, err := c.coerce(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.value = coerced
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(coerced, origin)
	}
	return nil
}

// OnChange registers a callback invoked after every successful SetValue /
// SetValueFrom. The driver is this package's only caller in this core: it
// installs one callback per characteristic at publish time to drive event
// fan-out (§4.7).
func (c *Characteristic) OnChange(fn func(v interface{}, origin interface{})) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Characteristic) coerce(v interface{}) (interface{}, error) {
	switch c.Format {
	case FormatBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("accessory: characteristic %s: %v is not a bool", c.Type, v)
		}
		return b, nil
	case FormatString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("accessory: characteristic %s: %v is not a string", c.Type, v)
		}
		if c.MaxLen != nil && len(s) > *c.MaxLen {
			s = s[:*c.MaxLen]
		} else if c.MaxLen == nil && len(s) > 64 {
			// §3: strings default to a 64-character maximum unless overridden.
			s = s[:64]
		}
		return s, nil
	case FormatData, FormatTLV8:
		return v, nil
	default:
		if !c.Format.numeric() {
			return v, nil
		}
		f, ok := asFloat(v)
		if !ok {
			return nil, fmt.Errorf("accessory: characteristic %s: %v is not numeric", c.Type, v)
		}
		if c.MinValue != nil && f < *c.MinValue {
			f = *c.MinValue
		}
		if c.MaxValue != nil && f > *c.MaxValue {
			f = *c.MaxValue
		}
		if c.Format == FormatFloat {
			return f, nil
		}
		return int64(f), nil
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}
