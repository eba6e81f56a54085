package linker

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Width is the encoding of a patched field.
type Width uint8

const (
	Width8 Width = iota
	Width16LE
	Width16BE
	Width24LE
	Width32LE
	Width32BE
	// WidthReloc always becomes a relocation record, never bytes.
	WidthReloc
)

var widthNames = map[Width]string{
	Width8:     "8",
	Width16LE:  "16le",
	Width16BE:  "16be",
	Width24LE:  "24le",
	Width32LE:  "32le",
	Width32BE:  "32be",
	WidthReloc: "reloc",
}

func ParseWidth(name string) (Width, error) {
	for w, n := range widthNames {
		if n == name {
			return w, nil
		}
	}
	return Width8, fmt.Errorf("unknown patch width %q", name)
}

func (w Width) String() string {
	if n, ok := widthNames[w]; ok {
		return n
	}
	return "unknown"
}

// Bytes is the number of bytes the field occupies in the section payload.
func (w Width) Bytes() int {
	switch w {
	case Width8:
		return 1
	case Width16LE, Width16BE:
		return 2
	case Width24LE:
		return 3
	case Width32LE, Width32BE:
		return 4
	}
	return 0
}

// limits returns the accepted value range. 32-bit fields are not checked.
func (w Width) limits() (int64, int64, bool) {
	switch w {
	case Width8:
		return -128, 255, true
	case Width16LE, Width16BE:
		return -32768, 65535, true
	case Width24LE:
		return -(1 << 23), 1<<24 - 1, true
	}
	return math.MinInt32, math.MaxUint32, false
}

// Encode writes v into buf in the field's byte order.
func (w Width) Encode(buf []byte, v int32) error {
	if lo, hi, checked := w.limits(); checked && (int64(v) < lo || int64(v) > hi) {
		return newError(ErrRange, "expression out of range: %d does not fit a %s-bit field", v, w)
	}
	return w.put(buf, v)
}

// put writes v without a range check, keeping only the low bytes.
func (w Width) put(buf []byte, v int32) error {
	if len(buf) < w.Bytes() {
		return newError(ErrRange, "field of %d bytes runs past the end of the section", w.Bytes())
	}
	u := uint32(v)
	switch w {
	case Width8:
		buf[0] = byte(u)
	case Width16LE:
		binary.LittleEndian.PutUint16(buf, uint16(u))
	case Width16BE:
		binary.BigEndian.PutUint16(buf, uint16(u))
	case Width24LE:
		buf[0] = byte(u)
		buf[1] = byte(u >> 8)
		buf[2] = byte(u >> 16)
	case Width32LE:
		binary.LittleEndian.PutUint32(buf, u)
	case Width32BE:
		binary.BigEndian.PutUint32(buf, u)
	default:
		return newError(ErrUnsupported, "width %s cannot be written as bytes", w)
	}
	return nil
}

// Op is one stack-machine operation. Arg indexes Patch.Constants for OpConst
// and is a SymbolID for OpSymbol and OpBank.
type Op struct {
	Code OpCode
	Arg  int32
}

// Patch is one relocation site inside a section payload.
type Patch struct {
	Offset    int64
	Width     Width
	Constants []int32
	Expr      []Op
	Line      int
}

// Reloc is a persisted relocation record. Exactly one of Symbol and Section
// names the target; neither means the addend is absolute.
type Reloc struct {
	Offset  int64
	Width   Width
	Symbol  SymbolID
	Section SectionID
	Addend  int32
}
