package linker

import (
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"
)

// Config is the target memory topology plus the link options that come from
// outside the object modules.
type Config struct {
	Groups     map[string]*Group
	RootSymbol null.String
	Fill       byte
}

func NewConfig() *Config {
	return &Config{Groups: make(map[string]*Group)}
}

// AddGroup registers g under its name, replacing any previous group.
func (c *Config) AddGroup(g *Group) {
	c.Groups[g.Name] = g
}

// Context owns everything a single link run touches. Sections and symbols
// are referenced by index so they stay stable while the run mutates them.
type Context struct {
	Config   *Config
	Format   Format
	Logger   logrus.FieldLogger
	// Files names every input module; a file id indexes it.
	Files    []string
	Sections []*Section
	Symbols  []*Symbol

	placed    []SectionID
	resolving []SymbolID
}

func NewContext(cfg *Config, format Format, logger logrus.FieldLogger) *Context {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Context{
		Config: cfg,
		Format: format,
		Logger: logger,
	}
}

// AddFile registers an input module and returns its file id.
func (ctx *Context) AddFile(name string) int {
	ctx.Files = append(ctx.Files, name)
	return len(ctx.Files) - 1
}

// FileName returns the name of file id, or a placeholder for ids that were
// never registered.
func (ctx *Context) FileName(id int) string {
	if id < 0 || id >= len(ctx.Files) {
		return fmt.Sprintf("<file %d>", id)
	}
	return ctx.Files[id]
}

func (ctx *Context) AddSection(sec *Section) SectionID {
	ctx.Sections = append(ctx.Sections, sec)
	return SectionID(len(ctx.Sections) - 1)
}

// AddSymbol registers sym and, unless it is an absolute equate, attaches it
// to its owning section.
func (ctx *Context) AddSymbol(sym *Symbol) SymbolID {
	ctx.Symbols = append(ctx.Symbols, sym)
	id := SymbolID(len(ctx.Symbols) - 1)
	if sym.Section != NoSection {
		sec := ctx.Sections[sym.Section]
		sym.File = sec.File
		sec.Symbols = append(sec.Symbols, id)
	}
	return id
}

func (ctx *Context) Section(id SectionID) *Section {
	return ctx.Sections[id]
}

func (ctx *Context) Symbol(id SymbolID) *Symbol {
	return ctx.Symbols[id]
}

func (ctx *Context) group(sec *Section) (*Group, error) {
	g, ok := ctx.Config.Groups[sec.Group]
	if !ok {
		return nil, &Error{
			Kind:    ErrConfig,
			Section: sec.Name,
			Offset:  -1,
			Msg:     "unknown group " + sec.Group,
		}
	}
	return g, nil
}

// UsedSections returns the ids of every section kept by the pruner, in
// input order.
func (ctx *Context) UsedSections() []SectionID {
	ids := make([]SectionID, 0, len(ctx.Sections))
	for i, sec := range ctx.Sections {
		if sec.Used {
			ids = append(ids, SectionID(i))
		}
	}
	return ids
}

// Placed returns the used sections ordered by (bank, address), the order
// emitters and map files consume them in.
func (ctx *Context) Placed() []*Section {
	if ctx.placed == nil {
		ctx.sortPlaced()
	}
	secs := make([]*Section, 0, len(ctx.placed))
	for _, id := range ctx.placed {
		secs = append(secs, ctx.Sections[id])
	}
	return secs
}

func (ctx *Context) sortPlaced() {
	ids := ctx.UsedSections()
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := ctx.Sections[ids[i]], ctx.Sections[ids[j]]
		if a.FinalBank != b.FinalBank {
			return a.FinalBank < b.FinalBank
		}
		return a.FinalAddr < b.FinalAddr
	})
	ctx.placed = ids
}

// SymbolTable returns the resolved defining symbols of the used sections
// plus resolved equates, ordered by (bank, value, name).
func (ctx *Context) SymbolTable() []SymbolID {
	ids := make([]SymbolID, 0)
	for i, sym := range ctx.Symbols {
		if sym.Kind.IsImport() || !sym.resolved {
			continue
		}
		if sym.Section != NoSection && !ctx.Sections[sym.Section].Used {
			continue
		}
		ids = append(ids, SymbolID(i))
	}
	bank := func(sym *Symbol) int64 {
		if sym.home == NoSection {
			return -1
		}
		return ctx.Sections[sym.home].FinalBank
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := ctx.Symbols[ids[i]], ctx.Symbols[ids[j]]
		if bank(a) != bank(b) {
			return bank(a) < bank(b)
		}
		if a.value != b.value {
			return a.value < b.value
		}
		return a.Name < b.Name
	})
	return ids
}
