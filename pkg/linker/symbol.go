package linker

import "fmt"

type SymbolID int32

const NoSymbol SymbolID = -1

type SymbolKind uint8

const (
	SymExport SymbolKind = iota
	SymImport
	SymLocal
	SymLocalExport
	SymLocalImport
)

func ParseSymbolKind(name string) (SymbolKind, error) {
	switch name {
	case "export":
		return SymExport, nil
	case "import":
		return SymImport, nil
	case "local":
		return SymLocal, nil
	case "local-export":
		return SymLocalExport, nil
	case "local-import":
		return SymLocalImport, nil
	}
	return SymLocal, fmt.Errorf("unknown symbol kind %q", name)
}

func (k SymbolKind) String() string {
	switch k {
	case SymExport:
		return "export"
	case SymImport:
		return "import"
	case SymLocal:
		return "local"
	case SymLocalExport:
		return "local-export"
	case SymLocalImport:
		return "local-import"
	}
	return "unknown"
}

func (k SymbolKind) IsImport() bool {
	return k == SymImport || k == SymLocalImport
}

func (k SymbolKind) IsExport() bool {
	return k == SymExport || k == SymLocalExport
}

// IsLocal reports whether the symbol is only visible inside its file.
func (k SymbolKind) IsLocal() bool {
	return k == SymLocal || k == SymLocalExport || k == SymLocalImport
}

// Symbol is a named value owned by a Section. Symbols with no Section are
// absolute equates whose value is Offset.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	File    int
	Section SectionID
	Offset  int32
	// Alias makes a defining symbol stand for another symbol of the same
	// file, typically an import being re-exported.
	Alias SymbolID

	resolved bool
	deferred bool
	absolute bool
	value    int32
	home     SectionID
	anchor   SymbolID
}

func NewSymbol(name string, kind SymbolKind) *Symbol {
	return &Symbol{
		Name:    name,
		Kind:    kind,
		Section: NoSection,
		Alias:   NoSymbol,
		home:    NoSection,
		anchor:  NoSymbol,
	}
}

func (s *Symbol) Resolved() bool {
	return s.resolved
}

// Deferred reports an import left unresolved for the output format to carry.
func (s *Symbol) Deferred() bool {
	return s.deferred
}

// Value is the resolved value: an address when Absolute, otherwise an offset
// into Home.
func (s *Symbol) Value() int32 {
	return s.value
}

func (s *Symbol) Absolute() bool {
	return s.absolute
}

// Home is the section the resolved value belongs to.
func (s *Symbol) Home() SectionID {
	return s.home
}

// Anchor is the symbol a relocation against s should name: s itself for
// definitions and deferred imports, the definition for bound imports.
func (s *Symbol) Anchor() SymbolID {
	return s.anchor
}

func (s *Symbol) bind(value int32, home SectionID, absolute bool, anchor SymbolID) {
	if s.resolved || s.deferred {
		return
	}
	s.resolved = true
	s.value = value
	s.home = home
	s.absolute = absolute
	s.anchor = anchor
}

func (s *Symbol) markDeferred(anchor SymbolID) {
	if s.resolved || s.deferred {
		return
	}
	s.deferred = true
	s.anchor = anchor
}
