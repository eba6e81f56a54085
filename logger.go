package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"bankld/pkg/utils"
)

var stderrTTY = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

func newLogger(out io.Writer) *logrus.Logger {
	return &logrus.Logger{
		Out:       out,
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}
}

func (c *rootCommand) setupLogger() error {
	if c.noColor {
		color.NoColor = true
		c.stderr = colorable.NewNonColorable(c.stderr)
		utils.Stderr = c.stderr
	}
	c.logger.SetOutput(c.stderr)

	if c.verbose {
		c.logger.SetLevel(logrus.DebugLevel)
	}

	switch c.logFmt {
	case "json":
		c.logger.SetFormatter(&logrus.JSONFormatter{})
		c.logger.Debug("Logger format: JSON")
	case "", "text":
		c.logger.SetFormatter(&logrus.TextFormatter{ForceColors: c.tty && !c.noColor, DisableColors: c.noColor})
		c.logger.Debug("Logger format: TEXT")
	default:
		return fmt.Errorf("unsupported log format %q", c.logFmt)
	}
	return nil
}
