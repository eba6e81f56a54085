package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"

	"bankld/pkg/errext"
	"bankld/pkg/errext/exitcodes"
	"bankld/pkg/linker"
	"bankld/pkg/memmap"
	"bankld/pkg/objfile"
	"bankld/pkg/output"
)

var bannerColor = color.New(color.FgCyan)

// rootCommand keeps everything one invocation needs, so tests can run it
// against an in-memory file system.
type rootCommand struct {
	fs     afero.Fs
	env    map[string]string
	stderr io.Writer
	tty    bool
	logger *logrus.Logger
	cmd    *cobra.Command

	memmapPath string
	outputPath string
	mapPath    string
	format     string
	root       string
	fill       string
	verbose    bool
	noColor    bool
	logFmt     string
}

func newRootCommand(fs afero.Fs, env map[string]string, stderr io.Writer, logger *logrus.Logger) *rootCommand {
	c := &rootCommand{
		fs:     fs,
		env:    env,
		stderr: stderr,
		logger: logger,
	}
	c.cmd = &cobra.Command{
		Use:           "bankld [flags] module...",
		Short:         "link object modules for a banked target",
		Long:          bannerColor.Sprint("\nbankld") + " places, resolves and patches object modules into an image for a banked target.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.run,
	}
	c.cmd.Flags().AddFlagSet(c.flagSet())
	return c
}

func (c *rootCommand) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVarP(&c.memmapPath, "memmap", "m", "", "target memory map (YAML)")
	flags.StringVarP(&c.outputPath, "output", "o", "", "output file")
	flags.StringVarP(&c.format, "format", "f", "bin", "output format: bin, reloc or object")
	flags.StringVarP(&c.root, "root", "r", "", "keep only sections reachable from this exported symbol")
	flags.StringVar(&c.mapPath, "map", "", "also write a map listing to this file")
	flags.StringVar(&c.fill, "fill", "", "byte used for gaps in a raw image")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&c.logFmt, "log-format", "", "log output format: text or json")
	return flags
}

// applyEnv fills every option the user did not pass as a flag from the
// environment.
func (c *rootCommand) applyEnv(flags *pflag.FlagSet) error {
	conf, err := readEnvConfig(c.env)
	if err != nil {
		return errext.WithExitCodeIfNone(fmt.Errorf("reading environment: %w", err), exitcodes.InvalidConfig)
	}
	for _, opt := range []struct {
		flag  string
		value null.String
		dst   *string
	}{
		{"memmap", conf.Memmap, &c.memmapPath},
		{"format", conf.Format, &c.format},
		{"fill", conf.Fill, &c.fill},
		{"root", conf.Root, &c.root},
	} {
		if !flags.Changed(opt.flag) && opt.value.Valid {
			*opt.dst = opt.value.String
		}
	}
	return nil
}

func invalidConfig(format string, args ...any) error {
	return errext.WithExitCodeIfNone(fmt.Errorf(format, args...), exitcodes.InvalidConfig)
}

func (c *rootCommand) run(cmd *cobra.Command, args []string) error {
	if err := c.applyEnv(cmd.Flags()); err != nil {
		return err
	}
	if err := c.setupLogger(); err != nil {
		return invalidConfig("%v", err)
	}

	if c.memmapPath == "" {
		return errext.WithHint(invalidConfig("no memory map given"), "pass --memmap or set BANKLD_MEMMAP")
	}
	if c.outputPath == "" {
		return invalidConfig("no output file given")
	}
	if len(args) == 0 {
		return invalidConfig("no input modules given")
	}
	format, err := linker.ParseFormat(c.format)
	if err != nil {
		return invalidConfig("%v", err)
	}

	cfg, err := memmap.Load(c.fs, c.memmapPath)
	if err != nil {
		return err
	}
	if c.root != "" {
		cfg.RootSymbol = null.StringFrom(c.root)
	}
	if c.fill != "" {
		fill, err := strconv.ParseUint(c.fill, 0, 8)
		if err != nil {
			return invalidConfig("fill value %q is not a byte", c.fill)
		}
		cfg.Fill = byte(fill)
	}

	ctx := linker.NewContext(cfg, format, c.logger)
	if err := objfile.ReadInputFiles(ctx, c.fs, args); err != nil {
		return err
	}

	if err := linker.Link(ctx); err != nil {
		if linker.IsKind(err, linker.ErrSymbol) && !format.Capabilities().AllowUnresolvedImports {
			err = errext.WithHint(err, "--format object leaves unresolved imports to a later link")
		}
		return err
	}

	if err := output.Emit(c.fs, c.outputPath, ctx); err != nil {
		return err
	}
	if c.mapPath != "" {
		if err := output.EmitMap(c.fs, c.mapPath, ctx); err != nil {
			return err
		}
	}

	c.logger.WithFields(logrus.Fields{
		"output":   c.outputPath,
		"format":   format.String(),
		"modules":  len(ctx.Files),
		"sections": len(ctx.UsedSections()),
	}).Info("Link complete")
	return nil
}
