package linker

import "fmt"

// Format is the output container the link is producing. The set is closed;
// each format only contributes its relocation capabilities to the core.
type Format uint8

const (
	FormatNone Format = iota
	// FormatBinary is a raw placed image: no relocation at all.
	FormatBinary
	// FormatReloc carries section-relative relocations only, like a hunk
	// executable.
	FormatReloc
	// FormatObject carries symbol relocations and unresolved imports.
	FormatObject
)

// Capabilities are the flags an output format hands the pipeline.
type Capabilities struct {
	AllowRelocation               bool
	OnlySectionRelativeRelocation bool
	AllowUnresolvedImports        bool
}

func (f Format) Capabilities() Capabilities {
	switch f {
	case FormatReloc:
		return Capabilities{AllowRelocation: true, OnlySectionRelativeRelocation: true}
	case FormatObject:
		return Capabilities{AllowRelocation: true, AllowUnresolvedImports: true}
	}
	return Capabilities{}
}

func ParseFormat(name string) (Format, error) {
	switch name {
	case "bin", "binary":
		return FormatBinary, nil
	case "reloc":
		return FormatReloc, nil
	case "object", "obj":
		return FormatObject, nil
	}
	return FormatNone, fmt.Errorf("unknown output format %q", name)
}

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "bin"
	case FormatReloc:
		return "reloc"
	case FormatObject:
		return "object"
	}
	return ""
}
