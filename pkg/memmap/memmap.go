// Package memmap loads a target memory map: the pools of addressable memory
// and the groups that sections are placed into.
package memmap

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"

	"bankld/pkg/errext"
	"bankld/pkg/errext/exitcodes"
	"bankld/pkg/linker"
)

type poolEntry struct {
	Name     string `yaml:"name"`
	Bank     *int64 `yaml:"bank"`
	Base     int64  `yaml:"base"`
	Size     int64  `yaml:"size"`
	Image    *int64 `yaml:"image"`
	Overlay  *int64 `yaml:"overlay"`
	Absolute bool   `yaml:"absolute"`
	// Banks expands the entry into one pool per bank of an inclusive
	// range, each imaged right after the previous one.
	Banks []int64 `yaml:"banks"`
}

type groupEntry struct {
	Name  string   `yaml:"name"`
	Kind  string   `yaml:"kind"`
	Pools []string `yaml:"pools"`
}

type file struct {
	Fill   *int64       `yaml:"fill"`
	Root   *string      `yaml:"root"`
	Pools  []poolEntry  `yaml:"pools"`
	Groups []groupEntry `yaml:"groups"`
}

// Load reads and parses the memory map at path.
func Load(fs afero.Fs, path string) (*linker.Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(fmt.Errorf("reading memory map: %w", err), exitcodes.IO)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse builds a linker configuration from a YAML memory map.
func Parse(data []byte) (*linker.Config, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, configError("malformed memory map: %v", err)
	}

	cfg := linker.NewConfig()
	if f.Fill != nil {
		if *f.Fill < 0 || *f.Fill > 0xff {
			return nil, configError("fill byte %d is not a byte", *f.Fill)
		}
		cfg.Fill = byte(*f.Fill)
	}
	cfg.RootSymbol = null.StringFromPtr(f.Root)

	pools := make(map[string][]*linker.Pool, len(f.Pools))
	for i := range f.Pools {
		e := &f.Pools[i]
		if e.Name == "" {
			return nil, configError("pool #%d has no name", i)
		}
		if _, dup := pools[e.Name]; dup {
			return nil, configError("duplicate pool %s", e.Name)
		}
		expanded, err := e.build()
		if err != nil {
			return nil, err
		}
		pools[e.Name] = expanded
	}

	for i, e := range f.Groups {
		if e.Name == "" {
			return nil, configError("group #%d has no name", i)
		}
		if _, dup := cfg.Groups[e.Name]; dup {
			return nil, configError("duplicate group %s", e.Name)
		}
		kind, err := linker.ParseGroupKind(e.Kind)
		if err != nil {
			return nil, configError("group %s: %v", e.Name, err)
		}
		g := &linker.Group{Name: e.Name, Kind: kind}
		for _, name := range e.Pools {
			p, ok := pools[name]
			if !ok {
				return nil, configError("group %s: unknown pool %s", e.Name, name)
			}
			g.Pools = append(g.Pools, p...)
		}
		if len(g.Pools) == 0 {
			return nil, configError("group %s has no pools", e.Name)
		}
		cfg.AddGroup(g)
	}
	return cfg, nil
}

func (e *poolEntry) build() ([]*linker.Pool, error) {
	if e.Size <= 0 {
		return nil, configError("pool %s: size must be positive", e.Name)
	}
	if e.Base < 0 {
		return nil, configError("pool %s: negative base address", e.Name)
	}

	mk := func(bank null.Int, image null.Int) *linker.Pool {
		p := linker.NewPool(e.Name, e.Base, e.Size)
		p.Bank = bank
		p.ImageOffset = image
		p.Overlay = null.IntFromPtr(e.Overlay)
		p.AbsoluteOnly = e.Absolute
		return p
	}

	if len(e.Banks) == 0 {
		return []*linker.Pool{mk(null.IntFromPtr(e.Bank), null.IntFromPtr(e.Image))}, nil
	}

	if e.Bank != nil {
		return nil, configError("pool %s: bank and banks are exclusive", e.Name)
	}
	if len(e.Banks) != 2 || e.Banks[0] > e.Banks[1] || e.Banks[0] < 0 {
		return nil, configError("pool %s: banks must be an increasing [first, last] pair", e.Name)
	}
	var pools []*linker.Pool
	for bank := e.Banks[0]; bank <= e.Banks[1]; bank++ {
		image := null.Int{}
		if e.Image != nil {
			image = null.IntFrom(*e.Image + (bank-e.Banks[0])*e.Size)
		}
		pools = append(pools, mk(null.IntFrom(bank), image))
	}
	return pools, nil
}

func configError(format string, args ...any) error {
	return errext.WithExitCodeIfNone(fmt.Errorf(format, args...), exitcodes.InvalidConfig)
}
