package linker

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Link runs the placement and resolution passes over a fully decoded
// context: prune, check groups, place (unless the format relocates), check
// symbols, then evaluate every patch. The first failure aborts the run.
func Link(ctx *Context) error {
	caps := ctx.Format.Capabilities()
	ctx.Logger.WithFields(logrus.Fields{
		"format":   ctx.Format.String(),
		"sections": len(ctx.Sections),
		"symbols":  len(ctx.Symbols),
	}).Debug("Link started")

	passes := []struct {
		name string
		run  func(*Context) error
		skip bool
	}{
		{name: "mark", run: MarkLiveSections},
		{name: "check", run: CheckGroups},
		{name: "allocate", run: AllocateSections, skip: caps.AllowRelocation},
		{name: "resolve", run: ResolveSymbols, skip: caps.AllowRelocation},
		{name: "patch", run: EvaluatePatches},
	}

	for _, pass := range passes {
		if pass.skip {
			continue
		}
		start := time.Now()
		if err := pass.run(ctx); err != nil {
			return err
		}
		ctx.Logger.WithFields(logrus.Fields{
			"pass":    pass.name,
			"elapsed": time.Since(start),
		}).Debug("Pass finished")
	}

	ctx.sortPlaced()
	return nil
}

// CheckGroups fails on the first used section whose group is not part of the
// target configuration.
func CheckGroups(ctx *Context) error {
	for _, id := range ctx.UsedSections() {
		if _, err := ctx.group(ctx.Sections[id]); err != nil {
			return err
		}
	}
	return nil
}
