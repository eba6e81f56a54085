package output

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"bankld/pkg/errext"
	"bankld/pkg/errext/exitcodes"
	"bankld/pkg/linker"
)

// countingWriter counts what went through so the log can report sizes.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeFile creates path, runs write against it and removes the file again
// if anything fails, so a failed link never leaves a partial output behind.
func writeFile(fs afero.Fs, path string, logger logrus.FieldLogger, write func(io.Writer) error) (err error) {
	f, err := fs.Create(path)
	if err != nil {
		return errext.WithExitCodeIfNone(fmt.Errorf("creating %s: %w", path, err), exitcodes.IO)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errext.WithExitCodeIfNone(fmt.Errorf("closing %s: %w", path, cerr), exitcodes.IO)
		}
		if err != nil {
			if rerr := fs.Remove(path); rerr != nil {
				logger.WithError(rerr).WithField("path", path).Warn("Could not remove partial output")
			}
		}
	}()

	cw := &countingWriter{w: f}
	if err = write(cw); err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.IO)
	}
	logger.WithFields(logrus.Fields{"path": path, "bytes": cw.n}).Debug("Output written")
	return nil
}

// Emit writes the link result to path in the context's output format.
func Emit(fs afero.Fs, path string, ctx *linker.Context) error {
	return writeFile(fs, path, ctx.Logger, func(w io.Writer) error {
		switch ctx.Format {
		case linker.FormatBinary:
			_, err := WriteBinary(w, ctx)
			return err
		case linker.FormatReloc, linker.FormatObject:
			return WriteRelocImage(w, ctx)
		}
		return errext.WithExitCodeIfNone(
			fmt.Errorf("no emitter for output format %q", ctx.Format.String()), exitcodes.InvalidConfig)
	})
}

// EmitMap writes the map listing to path.
func EmitMap(fs afero.Fs, path string, ctx *linker.Context) error {
	return writeFile(fs, path, ctx.Logger, func(w io.Writer) error {
		return WriteMap(w, ctx)
	})
}
