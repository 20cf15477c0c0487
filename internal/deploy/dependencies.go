package deploy

import (
	"context"
	"os/exec"

	"go.uber.org/zap"

	"github.com/Guisilcol/cicd-pipeline-scripts/internal/execshell"
)

// ToolCommandExecutor exposes the shell execution surface used by the deploy procedure.
type ToolCommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteAws(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteTerraform(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ExecutableResolver locates executables on the current execution path.
type ExecutableResolver interface {
	LookPath(executableName string) (string, error)
}

// OSExecutableResolver resolves executables through os/exec.
type OSExecutableResolver struct{}

// LookPath implements ExecutableResolver using exec.LookPath.
func (OSExecutableResolver) LookPath(executableName string) (string, error) {
	return exec.LookPath(executableName)
}

// ResolveToolExecutor returns the provided executor or constructs a shell-backed default.
func ResolveToolExecutor(existing ToolCommandExecutor, logger *zap.Logger) (ToolCommandExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveExecutableResolver returns the provided resolver or an os/exec-backed default.
func ResolveExecutableResolver(existing ExecutableResolver) ExecutableResolver {
	if existing != nil {
		return existing
	}
	return OSExecutableResolver{}
}
