package ebr

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// DefaultCapacity is the number of registry slots of a domain created with DefaultConfig.
	DefaultCapacity = 32
	// DefaultHighWaterMark is the garbage length at which Retire attempts an advancement.
	DefaultHighWaterMark = 64
	// DefaultName labels the metrics of the process-wide domain.
	DefaultName = "default"
)

// --------------------------------------------------------------------------
// Drain Policy
// --------------------------------------------------------------------------

// DrainPolicy decides what Unregister does with garbage that has not yet
// outlived its grace period.
type DrainPolicy int

const (
	// DrainImmediate frees all remaining garbage at once. The caller must
	// guarantee that no other handle is still pinned at an epoch from which the
	// retired objects could have been reached.
	DrainImmediate DrainPolicy = iota
	// DrainDeferred makes two non-blocking advancement attempts, frees what
	// became safe and hands the rest to the domain's orphan list, which later
	// advancements by any handle reclaim under the usual grace period.
	DrainDeferred
)

func (p DrainPolicy) String() string {
	switch p {
	case DrainImmediate:
		return "immediate"
	case DrainDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("DrainPolicy(%d)", int(p))
	}
}

// ParseDrainPolicy converts "immediate" or "deferred" to a DrainPolicy.
func ParseDrainPolicy(s string) (DrainPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "immediate", "":
		return DrainImmediate, nil
	case "deferred":
		return DrainDeferred, nil
	default:
		return 0, NewError(RetCInvalidConfig, fmt.Sprintf("invalid drain policy %q (expected immediate or deferred)", s))
	}
}

// --------------------------------------------------------------------------
// Domain configuration struct
// --------------------------------------------------------------------------

// Config holds all parameters of a Domain. The registry size is fixed for the
// lifetime of the domain.
type Config struct {
	// Name labels the domain in logs and metrics
	Name string
	// Capacity is the number of registry slots, i.e. the maximum number of
	// handles that can be registered at the same time
	Capacity int
	// HighWaterMark is the per-handle garbage length that triggers an advancement attempt
	HighWaterMark int
	// Drain is applied by Handle.Unregister
	Drain DrainPolicy
	// Debug enables double-retire detection and use-after-retire checks
	Debug bool
}

// DefaultConfig returns the configuration of the process-wide domain.
func DefaultConfig() Config {
	return Config{
		Name:          DefaultName,
		Capacity:      DefaultCapacity,
		HighWaterMark: DefaultHighWaterMark,
		Drain:         DrainImmediate,
	}
}

// Validate checks the configuration and fills in an empty name.
func (c *Config) Validate() error {
	if c.Capacity < 1 {
		return NewError(RetCInvalidConfig, fmt.Sprintf("capacity must be at least 1, got %d", c.Capacity))
	}
	if c.HighWaterMark < 1 {
		return NewError(RetCInvalidConfig, fmt.Sprintf("high-water mark must be at least 1, got %d", c.HighWaterMark))
	}
	if c.Drain != DrainImmediate && c.Drain != DrainDeferred {
		return NewError(RetCInvalidConfig, fmt.Sprintf("unknown drain policy %d", int(c.Drain)))
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Reclamation Domain")
	addField("Name", c.Name)
	addField("Registry Capacity", fmt.Sprintf("%d slots", c.Capacity))
	addField("High-Water Mark", fmt.Sprintf("%d items", c.HighWaterMark))
	addField("Drain Policy", c.Drain.String())
	addField("Debug Tracking", fmt.Sprintf("%t", c.Debug))

	return sb.String()
}
