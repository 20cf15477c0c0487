package deploy

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	commandUseNameConstant          = "deploy"
	commandUsageTemplateConstant    = commandUseNameConstant + " <profile> <environment>"
	commandExampleTemplateConstant  = "cicd-pipeline deploy staging-admin dev"
	commandShortDescriptionConstant = "Promote the current branch and apply infrastructure for an environment"
	commandLongDescriptionConstant  = "deploy validates prerequisites, derives AWS credentials from the named profile, reconciles branch state against the dev/master promotion model, and applies the infrastructure of a fresh clone of the deploy branch. The environment must be dev or prd."

	profileArgumentIndexConstant     = 0
	environmentArgumentIndexConstant = 1
	requiredArgumentCountConstant    = 2
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the deploy command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ToolExecutor          ToolCommandExecutor
	ExecutableResolver    ExecutableResolver
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the deploy command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUsageTemplateConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Args:    cobra.MinimumNArgs(requiredArgumentCountConstant),
		RunE:    builder.run,
		Example: commandExampleTemplateConstant,
	}

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	environment, environmentError := ParseEnvironment(arguments[environmentArgumentIndexConstant])
	if environmentError != nil {
		return environmentError
	}

	logger := builder.resolveLogger()

	toolExecutor, executorError := ResolveToolExecutor(builder.ToolExecutor, logger)
	if executorError != nil {
		return executorError
	}

	service, serviceError := NewService(ServiceDependencies{
		ToolExecutor:       toolExecutor,
		ExecutableResolver: ResolveExecutableResolver(builder.ExecutableResolver),
		Logger:             logger,
	}, builder.resolveConfiguration())
	if serviceError != nil {
		return serviceError
	}

	// Interruption cancels the context, terminating the active child process
	// and unwinding through the executor's deferred workspace removal.
	executionContext, stopSignalHandling := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignalHandling()

	return service.Deploy(executionContext, Options{
		Profile:     arguments[profileArgumentIndexConstant],
		Environment: environment,
	})
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
