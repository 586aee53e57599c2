// Package index implements the IndexOrchestrator (§4.6): the directory
// handle that owns the builder pool, the manifest, and the background
// merger, and exposes insert/commit/search/close over a live segment set.
package index

import (
	"encoding/json"
	"runtime"

	"github.com/myscale/sparse-index/errs"
	"github.com/myscale/sparse-index/format"
	"github.com/myscale/sparse-index/merge"
)

// Config controls how an index directory is built and searched.
type Config struct {
	ElementType          format.ElementType
	Compressed           bool
	QuantizeU8           bool
	MergeTierSize        int
	SealThresholdEntries int
	SealThresholdBytes   int64
	NumBuilderThreads    int
}

// DefaultConfig matches the defaults of §4.5–§4.7 and §6: f32 weights,
// uncompressed posting lists, a 4-way merge tier, and one builder per
// CPU, up to 4.
func DefaultConfig() Config {
	return Config{
		ElementType:          format.F32,
		Compressed:           false,
		QuantizeU8:           false,
		MergeTierSize:        merge.DefaultTierSize,
		SealThresholdEntries: 1_000_000,
		SealThresholdBytes:   64 << 20,
		NumBuilderThreads:    min(4, runtime.NumCPU()),
	}
}

// Option is a functional option over Config.
type Option func(*Config)

func WithElementType(t format.ElementType) Option {
	return func(c *Config) { c.ElementType = t }
}

func WithCompressed(compressed bool) Option {
	return func(c *Config) { c.Compressed = compressed }
}

func WithQuantizeU8(enabled bool) Option {
	return func(c *Config) { c.QuantizeU8 = enabled }
}

func WithMergeTierSize(n int) Option {
	return func(c *Config) {
		if n > 1 {
			c.MergeTierSize = n
		}
	}
}

func WithSealThresholdEntries(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SealThresholdEntries = n
		}
	}
}

func WithSealThresholdBytes(n int64) Option {
	return func(c *Config) {
		if n > 0 {
			c.SealThresholdBytes = n
		}
	}
}

func WithNumBuilderThreads(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.NumBuilderThreads = n
		}
	}
}

// NewConfig builds a Config from DefaultConfig with opts applied in order.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Validate rejects configurations that contradict §4.1: the u8 element
// type is itself the affine-quantized encoding, so QuantizeU8 must agree
// with it in both directions. element_type=u8 without quantize_u8 would
// silently skip deriving the params a u8 segment needs to be readable at
// all; quantize_u8 with any other element type derives params that are
// never wired into the written codec and is a no-op.
func (c Config) Validate() error {
	switch {
	case c.ElementType == format.U8 && !c.QuantizeU8:
		return errs.New(errs.InvalidArgument, "element_type=u8 requires quantize_u8=true")
	case c.ElementType != format.U8 && c.QuantizeU8:
		return errs.New(errs.InvalidArgument, "quantize_u8=true requires element_type=u8")
	}
	return nil
}

// configJSON is the wire shape accepted by ParseConfigJSON: the flat
// surface's create_index(path, config_json) input (§6).
type configJSON struct {
	ElementType          string `json:"element_type"`
	Compressed           bool   `json:"compressed"`
	QuantizeU8           bool   `json:"quantize_u8"`
	MergeTierSize        int    `json:"merge_tier_size"`
	SealThresholdEntries int    `json:"seal_threshold_entries"`
	SealThresholdBytes   int64  `json:"seal_threshold_bytes"`
	NumBuilderThreads    int    `json:"num_builder_threads"`
}

// ParseConfigJSON decodes the flat surface's config_json argument,
// falling back to DefaultConfig for any field left zero-valued.
func ParseConfigJSON(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}

	var raw configJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, err
	}

	opts := []Option{}
	if raw.ElementType != "" {
		if t, ok := format.ParseElementType(raw.ElementType); ok {
			opts = append(opts, WithElementType(t))
		}
	}
	opts = append(opts, WithCompressed(raw.Compressed))
	opts = append(opts, WithQuantizeU8(raw.QuantizeU8))
	if raw.MergeTierSize > 0 {
		opts = append(opts, WithMergeTierSize(raw.MergeTierSize))
	}
	if raw.SealThresholdEntries > 0 {
		opts = append(opts, WithSealThresholdEntries(raw.SealThresholdEntries))
	}
	if raw.SealThresholdBytes > 0 {
		opts = append(opts, WithSealThresholdBytes(raw.SealThresholdBytes))
	}
	if raw.NumBuilderThreads > 0 {
		opts = append(opts, WithNumBuilderThreads(raw.NumBuilderThreads))
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
