// internal/device/registry.go
package device

import "fmt"

// RegistryConfig describes the device set for one run.
// AddressBase is a configuration choice honored exactly, never
// inferred: 1-based for the lock controllers, 0-based generic rigs.
type RegistryConfig struct {
	Kind              Kind
	Count             int
	AddressBase       int
	ZeroCountReadsAll bool
}

// Registry holds the emulated slaves keyed by bus address. Built once
// at start; devices live and die together with the run.
type Registry struct {
	devs  map[uint8]*Slave
	order []uint8
}

// NewRegistry builds the device set. A frame addressed outside the set
// gets no bus reply (a slave is silent when not addressed); routing
// misses are the caller's to log.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Count < 1 || cfg.Count > 10 {
		return nil, fmt.Errorf("registry: device count %d out of range 1-10", cfg.Count)
	}
	if cfg.AddressBase != 0 && cfg.AddressBase != 1 {
		return nil, fmt.Errorf("registry: address base must be 0 or 1, got %d", cfg.AddressBase)
	}

	r := &Registry{devs: make(map[uint8]*Slave, cfg.Count)}
	for i := 0; i < cfg.Count; i++ {
		addr := uint8(cfg.AddressBase + i)
		var s *Slave
		switch cfg.Kind {
		case KindLock:
			s = NewLock(addr, cfg.ZeroCountReadsAll)
		case KindGeneric:
			s = NewGeneric(addr)
		default:
			return nil, fmt.Errorf("registry: unknown device kind %d", cfg.Kind)
		}
		r.devs[addr] = s
		r.order = append(r.order, addr)
	}
	return r, nil
}

// Route returns the slave for a bus address, if emulated.
func (r *Registry) Route(addr uint8) (*Slave, bool) {
	s, ok := r.devs[addr]
	return s, ok
}

// Addresses returns the configured addresses in creation order.
func (r *Registry) Addresses() []uint8 {
	out := make([]uint8, len(r.order))
	copy(out, r.order)
	return out
}
