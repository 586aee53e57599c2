// Package weight implements the WeightCodec abstraction: encoding and
// decoding posting-list weights under one of three physical element types
// (f32, f16, u8-quantized), pinned per-index and never mixed.
package weight

import (
	"math"

	"github.com/myscale/sparse-index/format"
)

// Codec converts between the caller-facing float32 weight and the
// physical on-disk representation for one element type. Implementations
// are stateless except for U8Codec, which holds the segment's (min, step):
// fixed at seal time, stored in the segment header, and copied into the
// codec value when the segment is written or opened.
type Codec interface {
	// Encode appends the physical encoding of w to dst and returns the
	// extended slice.
	Encode(dst []byte, w float32) []byte
	// Decode reads one physical weight starting at data[0].
	Decode(data []byte) float32
	// Width is the number of bytes one encoded weight occupies.
	Width() int
}

// F32Codec is the identity codec.
type F32Codec struct{}

func (F32Codec) Width() int { return 4 }

func (F32Codec) Encode(dst []byte, w float32) []byte {
	bits := math.Float32bits(w)
	return append(dst, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
}

func (F32Codec) Decode(data []byte) float32 {
	bits := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	return math.Float32frombits(bits)
}

// F16Codec encodes weights as IEEE-754 binary16, with round-to-nearest on
// encode. No third-party half-precision package appears anywhere in the
// retrieval pack, so the bit manipulation below is implemented directly on
// top of math.Float32bits/frombits.
type F16Codec struct{}

func (F16Codec) Width() int { return 2 }

func (F16Codec) Encode(dst []byte, w float32) []byte {
	h := float32To16(w)
	return append(dst, byte(h), byte(h>>8))
}

func (F16Codec) Decode(data []byte) float32 {
	h := uint16(data[0]) | uint16(data[1])<<8
	return float16To32(h)
}

func float32To16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff

	switch {
	case (bits&0x7fffffff) == 0:
		return sign
	case exp >= 0x1f:
		// Overflow or NaN/Inf in the source: saturate to half-float infinity.
		if (bits&0x7fffffff) > 0x7f800000 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp <= 0:
		// Subnormal or underflow: flush to zero (sufficient precision for
		// the sparse weight ranges this codec targets).
		return sign
	default:
		h := uint32(exp)<<10 | mant>>13
		// Round to nearest, ties to even; a mantissa carry bumps the
		// exponent and may saturate to infinity, which is the IEEE result.
		if rem := mant & 0x1fff; rem > 0x1000 || (rem == 0x1000 && h&1 == 1) {
			h++
		}
		return sign | uint16(h)
	}
}

func float16To32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)

	switch {
	case exp == 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal half-float: normalize manually.
		e := -1
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3ff
		exp32 := uint32(127 - 15 + e + 1)
		return math.Float32frombits(sign | exp32<<23 | mant<<13)
	case exp == 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | mant<<13)
	default:
		return math.Float32frombits(sign | (exp-15+127)<<23 | mant<<13)
	}
}

// QuantParams are the per-segment affine quantization parameters for U8.
type QuantParams struct {
	Min  float32
	Step float32
}

// Quantize maps w into [0, 255] under q, clamping values outside the
// range; values exactly at min/max round to 0/255 respectively.
func (q QuantParams) Quantize(w float32) uint8 {
	if q.Step == 0 {
		return 0
	}
	v := (w - q.Min) / q.Step
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}

// Dequantize is the inverse of Quantize.
func (q QuantParams) Dequantize(code uint8) float32 {
	return q.Min + q.Step*float32(code)
}

// DeriveQuantParams computes (min, step) from the full set of weights that
// will be quantized into one segment, per §4.1's affine scheme.
func DeriveQuantParams(weights []float32) QuantParams {
	if len(weights) == 0 {
		return QuantParams{}
	}
	min, max := weights[0], weights[0]
	for _, w := range weights[1:] {
		if w < min {
			min = w
		}
		if w > max {
			max = w
		}
	}
	step := (max - min) / 255
	return QuantParams{Min: min, Step: step}
}

// U8Codec encodes weights as pre-quantized bytes; Params must be supplied
// by the caller (the segment header), since quantization never leaks
// across segments.
type U8Codec struct {
	Params QuantParams
}

func (U8Codec) Width() int { return 1 }

func (c U8Codec) Encode(dst []byte, w float32) []byte {
	return append(dst, c.Params.Quantize(w))
}

func (c U8Codec) Decode(data []byte) float32 {
	return c.Params.Dequantize(data[0])
}

// For returns the codec for a segment's element type, given its
// quantization params (ignored for F32/F16).
func For(t format.ElementType, params QuantParams) Codec {
	switch t {
	case format.F16:
		return F16Codec{}
	case format.U8:
		return U8Codec{Params: params}
	default:
		return F32Codec{}
	}
}
