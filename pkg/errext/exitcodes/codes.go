// Package exitcodes contains the process exit codes used by bankld.
package exitcodes

// ExitCode is just a type representing a process exit code for bankld
type ExitCode uint8

// list of exit codes used by bankld
const (
	Generic       ExitCode = 1
	InvalidConfig ExitCode = 2
	Placement     ExitCode = 3
	Symbol        ExitCode = 4
	Range         ExitCode = 5
	Unsupported   ExitCode = 6
	IO            ExitCode = 7
	InvalidInput  ExitCode = 8
)
