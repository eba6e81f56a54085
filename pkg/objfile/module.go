package objfile

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"

	"bankld/pkg/linker"
)

// The on-disk module layout. Symbols are referenced by name and resolved to
// ids when the module is loaded.

type symbolEntry struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Value int32  `yaml:"value"`
	Alias string `yaml:"alias"`
}

type patchEntry struct {
	Offset int64    `yaml:"offset"`
	Width  string   `yaml:"width"`
	Expr   []string `yaml:"expr"`
	Line   int      `yaml:"line"`
}

type sectionEntry struct {
	Name    string        `yaml:"name"`
	Group   string        `yaml:"group"`
	Shared  bool          `yaml:"shared"`
	Size    *int64        `yaml:"size"`
	Data    string        `yaml:"data"`
	Bank    *int64        `yaml:"bank"`
	Address *int64        `yaml:"address"`
	Align   *int64        `yaml:"align"`
	Page    *int64        `yaml:"page"`
	Root    bool          `yaml:"root"`
	Symbols []symbolEntry `yaml:"symbols"`
	Patches []patchEntry  `yaml:"patches"`
}

type module struct {
	Name     string         `yaml:"name"`
	Sections []sectionEntry `yaml:"sections"`
	Equates  []symbolEntry  `yaml:"equates"`
}

type pendingAlias struct {
	id     linker.SymbolID
	target string
	sec    linker.SectionID
}

// loader turns one decoded module into context entries.
type loader struct {
	ctx    *linker.Context
	file   *File
	fileID int

	sections []linker.SectionID
	// names of the module's symbols, per owning section and for equates
	scoped  map[linker.SectionID]map[string]linker.SymbolID
	equates map[string]linker.SymbolID
	aliases []pendingAlias
}

func readModule(ctx *linker.Context, file *File) error {
	var m module
	dec := yaml.NewDecoder(bytes.NewReader(file.Contents))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && err != io.EOF {
		return inputError(file, "malformed object module: %v", err)
	}

	name := file.Path()
	if m.Name != "" {
		name = m.Name
	}
	l := &loader{
		ctx:     ctx,
		file:    file,
		fileID:  ctx.AddFile(name),
		scoped:  make(map[linker.SectionID]map[string]linker.SymbolID),
		equates: make(map[string]linker.SymbolID),
	}

	seen := make(map[string]bool, len(m.Sections))
	for i := range m.Sections {
		e := &m.Sections[i]
		if seen[e.Name] {
			return inputError(file, "duplicate section %s", e.Name)
		}
		seen[e.Name] = true
		if err := l.addSection(e); err != nil {
			return err
		}
	}
	for _, e := range m.Equates {
		if err := l.addEquate(e); err != nil {
			return err
		}
	}
	// patches and aliases may name any symbol of the module
	for i := range m.Sections {
		if err := l.addPatches(l.sections[i], m.Sections[i].Patches); err != nil {
			return err
		}
	}
	for _, a := range l.aliases {
		target, ok := l.lookup(a.sec, a.target)
		if !ok {
			return inputError(file, "alias %s names unknown symbol %s", ctx.Symbol(a.id).Name, a.target)
		}
		ctx.Symbol(a.id).Alias = target
	}

	ctx.Logger.WithField("module", name).Debugf("Loaded %d sections", len(m.Sections))
	return nil
}

func (l *loader) addSection(e *sectionEntry) error {
	if e.Name == "" {
		return inputError(l.file, "section #%d has no name", len(l.sections))
	}
	if e.Group == "" {
		return inputError(l.file, "section %s has no group", e.Name)
	}

	data, err := decodeData(e.Data)
	if err != nil {
		return inputError(l.file, "section %s: %v", e.Name, err)
	}
	size := int64(len(data))
	if e.Size != nil {
		size = *e.Size
	}
	if size < 0 || int64(len(data)) > size {
		return inputError(l.file, "section %s: %d bytes of data do not fit its size %d", e.Name, len(data), size)
	}

	sec := linker.NewSection(e.Name, e.Group, l.fileID, size)
	sec.Shared = e.Shared
	sec.Root = e.Root
	sec.Bank = null.IntFromPtr(e.Bank)
	sec.Address = null.IntFromPtr(e.Address)
	sec.Align = null.IntFromPtr(e.Align)
	sec.PageSize = null.IntFromPtr(e.Page)

	hasData := true
	if g, ok := l.ctx.Config.Groups[e.Group]; ok {
		hasData = g.Kind.HasData()
	}
	switch {
	case hasData:
		sec.Data = make([]byte, size)
		copy(sec.Data, data)
	case len(data) > 0:
		return inputError(l.file, "section %s: group %s cannot hold data", e.Name, e.Group)
	}

	id := l.ctx.AddSection(sec)
	l.sections = append(l.sections, id)
	names := make(map[string]linker.SymbolID, len(e.Symbols))
	l.scoped[id] = names

	for _, se := range e.Symbols {
		kind, err := linker.ParseSymbolKind(se.Kind)
		if err != nil {
			return inputError(l.file, "section %s: %v", e.Name, err)
		}
		if _, dup := names[se.Name]; dup || se.Name == "" {
			return inputError(l.file, "section %s: missing or duplicate symbol name %q", e.Name, se.Name)
		}
		sym := linker.NewSymbol(se.Name, kind)
		sym.Section = id
		sym.Offset = se.Value
		symID := l.ctx.AddSymbol(sym)
		names[se.Name] = symID
		if se.Alias != "" {
			if !kind.IsExport() {
				return inputError(l.file, "section %s: only exports may alias, %s is %s", e.Name, se.Name, kind)
			}
			l.aliases = append(l.aliases, pendingAlias{id: symID, target: se.Alias, sec: id})
		}
	}
	return nil
}

func (l *loader) addEquate(e symbolEntry) error {
	kind, err := linker.ParseSymbolKind(e.Kind)
	if err != nil {
		return inputError(l.file, "equate %s: %v", e.Name, err)
	}
	if kind.IsImport() || e.Alias != "" {
		return inputError(l.file, "equate %s must be a plain definition", e.Name)
	}
	if _, dup := l.equates[e.Name]; dup {
		return inputError(l.file, "duplicate equate %s", e.Name)
	}
	sym := linker.NewSymbol(e.Name, kind)
	sym.File = l.fileID
	sym.Offset = e.Value
	l.equates[e.Name] = l.ctx.AddSymbol(sym)
	return nil
}

// lookup finds name as seen from section from: its own symbols first, then
// the other sections of the module in order, then equates.
func (l *loader) lookup(from linker.SectionID, name string) (linker.SymbolID, bool) {
	if id, ok := l.scoped[from][name]; ok {
		return id, true
	}
	for _, sec := range l.sections {
		if id, ok := l.scoped[sec][name]; ok {
			return id, true
		}
	}
	id, ok := l.equates[name]
	return id, ok
}

func (l *loader) addPatches(secID linker.SectionID, entries []patchEntry) error {
	sec := l.ctx.Section(secID)
	for _, e := range entries {
		width, err := linker.ParseWidth(e.Width)
		if err != nil {
			return inputError(l.file, "section %s: %v", sec.Name, err)
		}
		p := linker.Patch{Offset: e.Offset, Width: width, Line: e.Line}
		for _, text := range e.Expr {
			op, err := l.parseOp(secID, &p, text)
			if err != nil {
				return inputError(l.file, "section %s, patch at 0x%x: %v", sec.Name, e.Offset, err)
			}
			p.Expr = append(p.Expr, op)
		}
		sec.Patches = append(sec.Patches, p)
	}
	return nil
}

// parseOp reads one "mnemonic [argument]" operation.
func (l *loader) parseOp(secID linker.SectionID, p *linker.Patch, text string) (linker.Op, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return linker.Op{}, fmt.Errorf("empty operation")
	}
	code, ok := linker.LookupOp(fields[0])
	if !ok {
		return linker.Op{}, fmt.Errorf("unknown operation %q", fields[0])
	}

	switch code {
	case linker.OpConst:
		if len(fields) != 2 {
			return linker.Op{}, fmt.Errorf("const takes one value")
		}
		v, err := parseConst(fields[1])
		if err != nil {
			return linker.Op{}, err
		}
		p.Constants = append(p.Constants, v)
		return linker.Op{Code: code, Arg: int32(len(p.Constants) - 1)}, nil
	case linker.OpSymbol, linker.OpBank:
		if len(fields) != 2 {
			return linker.Op{}, fmt.Errorf("%s takes one symbol", code)
		}
		id, ok := l.lookup(secID, fields[1])
		if !ok {
			return linker.Op{}, fmt.Errorf("unknown symbol %s", fields[1])
		}
		return linker.Op{Code: code, Arg: int32(id)}, nil
	}

	if len(fields) != 1 {
		return linker.Op{}, fmt.Errorf("%s takes no argument", code)
	}
	return linker.Op{Code: code}, nil
}

// parseConst accepts any Go integer literal that fits 32 bits, signed or not.
func parseConst(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad constant %q", s)
	}
	if v < -(1<<31) || v > 1<<32-1 {
		return 0, fmt.Errorf("constant %s does not fit 32 bits", s)
	}
	return int32(uint32(v)), nil
}

func decodeData(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad data: %v", err)
	}
	return b, nil
}
