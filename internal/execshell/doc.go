// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions used throughout the
// deploy procedure to run git, aws, and terraform in a testable manner.
package execshell
