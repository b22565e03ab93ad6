package pushbuf

import (
	"fmt"
	"io"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"
)

// Config is the file form of a channel setup.
//
// Example file:
//
//	capacity = 4096
//	max_relocs = 128
//	vram_handle = 0xd8000001
//	gart_handle = 0xd8000002
//	backend = "nv04"
//	index_format = "uint16"
//	fence_timeout_ms = 500
type Config struct {
	// Capacity is the ring size in words.
	Capacity int `toml:"capacity"`

	// MaxRelocs is the number of relocations per submission.
	MaxRelocs int `toml:"max_relocs"`

	// VRAMHandle and GARTHandle are the DMA objects RelocObject selects.
	VRAMHandle uint32 `toml:"vram_handle"`
	GARTHandle uint32 `toml:"gart_handle"`

	// Backend names a registered hardware backend. Empty selects the best
	// available one.
	Backend string `toml:"backend"`

	// IndexFormat is "uint16" or "uint32".
	IndexFormat string `toml:"index_format"`

	FenceTimeoutMS int `toml:"fence_timeout_ms"`
	FenceSpin      int `toml:"fence_spin"`
}

// DefaultConfig returns the configuration matching the channel defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:       DefaultCapacity,
		MaxRelocs:      DefaultMaxRelocs,
		IndexFormat:    "uint16",
		FenceTimeoutMS: int(DefaultFenceTimeout / time.Millisecond),
		FenceSpin:      DefaultFenceSpin,
	}
}

// LoadConfig reads a TOML configuration. Keys missing from r keep their
// defaults; unknown keys are an error.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("pushbuf: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Capacity < 2:
		return fmt.Errorf("%w: capacity %d", ErrInvalidConfig, c.Capacity)
	case c.MaxRelocs < 1:
		return fmt.Errorf("%w: max_relocs %d", ErrInvalidConfig, c.MaxRelocs)
	case c.FenceTimeoutMS < 0:
		return fmt.Errorf("%w: fence_timeout_ms %d", ErrInvalidConfig, c.FenceTimeoutMS)
	case c.FenceSpin < 0:
		return fmt.Errorf("%w: fence_spin %d", ErrInvalidConfig, c.FenceSpin)
	}
	if _, err := c.Index(); err != nil {
		return err
	}
	return nil
}

// Index returns the configured index width.
func (c Config) Index() (gputypes.IndexFormat, error) {
	switch c.IndexFormat {
	case "", "uint16":
		return gputypes.IndexFormatUint16, nil
	case "uint32":
		return gputypes.IndexFormatUint32, nil
	default:
		return 0, fmt.Errorf("%w: index_format %q", ErrInvalidConfig, c.IndexFormat)
	}
}

// Options converts the configuration to channel options.
func (c Config) Options() []ChannelOption {
	return []ChannelOption{
		WithCapacity(c.Capacity),
		WithMaxRelocs(c.MaxRelocs),
		WithDMAHandles(c.VRAMHandle, c.GARTHandle),
		WithFenceWait(c.FenceSpin, time.Duration(c.FenceTimeoutMS)*time.Millisecond),
	}
}
