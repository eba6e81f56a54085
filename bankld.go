package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/spf13/afero"

	"bankld/pkg/errext"
	"bankld/pkg/utils"
)

func main() {
	stderr := colorable.NewColorableStderr()
	c := newRootCommand(afero.NewOsFs(), buildEnvMap(os.Environ()), stderr, newLogger(stderr))
	c.tty = stderrTTY

	if err := c.cmd.Execute(); err != nil {
		msg, fields := errext.Format(err)
		if hint, ok := fields["hint"]; ok {
			msg = fmt.Sprintf("%s\n\thint: %s", msg, hint)
		}
		utils.FatalWithCode(msg, int(errext.ExitCodeOf(err)))
	}
}
