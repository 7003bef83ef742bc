package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// RegionConfig describes one region of the memory map.
type RegionConfig struct {
	// Name identifies the region in logs and hook items.
	Name string `json:"name"`

	// Kind is one of "rom", "ram" or "storage".
	Kind Kind `json:"kind"`

	// Base is the first bus address. ROM and RAM bases must be aligned to a
	// 64 KiB fetch bank.
	Base uint32 `json:"base"`

	// Size is the region size in bytes.
	Size uint32 `json:"size"`

	// Image is an optional raw file copied to the start of the region.
	Image string `json:"image,omitempty"`
}

// Config holds the memory map and run parameters of a host.
type Config struct {
	Regions []RegionConfig `json:"regions"`

	// SliceCycles is the cycle budget of one Exec call. Default: 488, one
	// NTSC scanline at 7.67 MHz.
	SliceCycles int32 `json:"slice_cycles"`

	// Slices is the number of Exec calls a run performs. Default: 262.
	Slices int `json:"slices"`
}

// DefaultConfig returns a 64 KiB ROM at 0, 64 KiB of work RAM at the top
// of the bus and a small storage window for devices.
func DefaultConfig() *Config {
	return &Config{
		Regions: []RegionConfig{
			{Name: "rom", Kind: KindROM, Base: 0x000000, Size: 0x10000},
			{Name: "io", Kind: KindStorage, Base: 0xA00000, Size: 0x1000},
			{Name: "ram", Kind: KindRAM, Base: 0xFF0000, Size: 0x10000},
		},
		SliceCycles: 488,
		Slices:      262,
	}
}

// LoadConfig loads a Config from a JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bus config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse bus config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize bus config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write bus config file: %w", err)
	}

	return nil
}

// Validate checks the memory map and run parameters.
func (c *Config) Validate() error {
	if len(c.Regions) == 0 {
		return fmt.Errorf("regions must not be empty")
	}
	if c.SliceCycles <= 0 {
		return fmt.Errorf("slice_cycles must be > 0")
	}
	if c.Slices < 0 {
		return fmt.Errorf("slices must be >= 0")
	}

	seen := make(map[string]bool, len(c.Regions))
	for i, r := range c.Regions {
		if err := checkRegion(r.Name, r.Kind, r.Base, r.Size); err != nil {
			return err
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidRegion, r.Name)
		}
		seen[r.Name] = true

		if r.Image != "" && r.Kind == KindStorage {
			return fmt.Errorf("%w: %q: images are only supported in rom and ram",
				ErrInvalidRegion, r.Name)
		}

		for _, o := range c.Regions[:i] {
			if uint64(r.Base) < uint64(o.Base)+uint64(o.Size) &&
				uint64(o.Base) < uint64(r.Base)+uint64(r.Size) {
				return fmt.Errorf("%w: %q and %q", ErrOverlap, r.Name, o.Name)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	return &Config{
		Regions:     append([]RegionConfig(nil), c.Regions...),
		SliceCycles: c.SliceCycles,
		Slices:      c.Slices,
	}
}

// NewFromConfig validates cfg and builds a bus with its regions. Region
// images are read from disk and copied in.
func NewFromConfig(cfg *Config, opts ...Option) (*Bus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bus config: %w", err)
	}

	b := New(opts...)
	for _, rc := range cfg.Regions {
		var err error
		switch rc.Kind {
		case KindROM:
			_, err = b.AddROM(rc.Name, rc.Base, make([]byte, rc.Size))
		case KindRAM:
			_, err = b.AddRAM(rc.Name, rc.Base, rc.Size)
		case KindStorage:
			_, err = b.AddStorage(rc.Name, rc.Base, rc.Size)
		}
		if err != nil {
			return nil, err
		}

		if rc.Image == "" {
			continue
		}
		img, err := os.ReadFile(rc.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to read image for %q: %w", rc.Name, err)
		}
		if uint64(len(img)) > uint64(rc.Size) {
			return nil, fmt.Errorf("%w: image %s is %d bytes, region %q holds %d",
				ErrInvalidRegion, rc.Image, len(img), rc.Name, rc.Size)
		}
		if err := b.Load(rc.Base, img); err != nil {
			return nil, err
		}
		b.logger.Info("image loaded",
			slog.String("region", rc.Name),
			slog.String("path", rc.Image),
			slog.Int("bytes", len(img)))
	}

	return b, nil
}
