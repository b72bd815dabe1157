// Package config loads the kernel-core boot configuration. A bare-metal
// build of this design would read these values from firmware memory maps
// and bootloader arguments; since that boot glue is out of this repo's
// scope (spec §1), the same shape is expressed as a TOML document so
// cmd/kernelsim and tests can drive the core against reproducible inputs.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/semver"
)

// MemPool describes one physical range pmm.Register should be called with.
type MemPool struct {
	BasePhys  uint64 `toml:"base_phys"`
	PageCount uint64 `toml:"page_count"`
}

// PriorityBand configures one scheduler priority level's opportunities
// credit (spec §4.6).
type PriorityBand struct {
	Priority      int `toml:"priority"`
	Opportunities int `toml:"opportunities"`
}

// BootConfig is the full set of values the boot-time glue needs before any
// allocator user runs.
type BootConfig struct {
	// KernelABI is checked with golang.org/x/mod/semver before any other
	// subsystem initializes; a mismatched major version refuses to boot.
	KernelABI string `toml:"kernel_abi"`

	PageSize       int            `toml:"page_size"`
	KernelVMStart  uint64         `toml:"kernel_vm_start"`
	KernelVMEnd    uint64         `toml:"kernel_vm_end"`
	ScratchMapBase uint64         `toml:"scratch_map_base"`
	MemPools       []MemPool      `toml:"mem_pools"`
	SchedulerBands []PriorityBand `toml:"scheduler_bands"`
	LogLevel       string         `toml:"log_level"`
}

// SupportedABI is the kernel-core ABI this build implements. Boot configs
// must declare a compatible (same-major) version.
const SupportedABI = "v1.0.0"

// Default returns the historical constants used throughout the teacher and
// spec scenarios (4096-byte pages, two priority bands matching spec S4).
func Default() *BootConfig {
	return &BootConfig{
		KernelABI:      SupportedABI,
		PageSize:       4096,
		KernelVMStart:  0x40000000,
		KernelVMEnd:    0x80000000,
		ScratchMapBase: 0xffffffffc0000000,
		SchedulerBands: []PriorityBand{
			{Priority: 0, Opportunities: 2},
			{Priority: 5, Opportunities: 1},
		},
		LogLevel: "info",
	}
}

// Load parses a TOML document into a BootConfig, validating the ABI and
// filling in defaults for anything left unset.
func Load(data []byte) (*BootConfig, error) {
	cfg := Default()
	cfg.MemPools = nil
	cfg.SchedulerBands = nil
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if cfg.KernelABI == "" {
		cfg.KernelABI = SupportedABI
	}
	if err := checkABI(cfg.KernelABI); err != nil {
		return nil, err
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 4096
	}
	if len(cfg.SchedulerBands) == 0 {
		cfg.SchedulerBands = Default().SchedulerBands
	}
	return cfg, nil
}

func withV(s string) string {
	if len(s) > 0 && s[0] == 'v' {
		return s
	}
	return "v" + s
}

func checkABI(abi string) error {
	got := withV(abi)
	if !semver.IsValid(got) {
		return fmt.Errorf("config: invalid kernel_abi %q", abi)
	}
	if semver.Major(got) != semver.Major(withV(SupportedABI)) {
		return fmt.Errorf("config: kernel_abi %q is incompatible with supported %q", abi, SupportedABI)
	}
	return nil
}
