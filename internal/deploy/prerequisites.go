package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Guisilcol/cicd-pipeline-scripts/internal/execshell"
)

const (
	awsConfigureSubcommandConstant     = "configure"
	awsListProfilesSubcommandConstant  = "list-profiles"
	toolMissingTemplateConstant        = "required tool %q is not installed"
	profileNotFoundTemplateConstant    = "credential profile %q is not configured"
	profileListFailureTemplateConstant = "failed to list credential profiles: %w"
	executableResolverMissingMessage   = "executable resolver not configured"
	prerequisiteExecutorMissingMessage = "tool executor not configured"
	profileListLineSeparatorConstant   = "\n"
)

// ErrExecutableResolverNotConfigured indicates the prerequisite checker lacks a resolver.
var ErrExecutableResolverNotConfigured = errors.New(executableResolverMissingMessage)

// ErrToolExecutorNotConfigured indicates a collaborator was constructed without a tool executor.
var ErrToolExecutorNotConfigured = errors.New(prerequisiteExecutorMissingMessage)

// ToolMissingError reports a required executable that could not be resolved.
type ToolMissingError struct {
	ToolName string
}

// Error names the missing tool.
func (failure ToolMissingError) Error() string {
	return fmt.Sprintf(toolMissingTemplateConstant, failure.ToolName)
}

// ProfileNotFoundError reports a credential profile absent from the credential store.
type ProfileNotFoundError struct {
	ProfileName string
}

// Error names the missing profile.
func (failure ProfileNotFoundError) Error() string {
	return fmt.Sprintf(profileNotFoundTemplateConstant, failure.ProfileName)
}

// PrerequisiteChecker confirms required tools and credential profiles before any mutating step.
type PrerequisiteChecker struct {
	resolver ExecutableResolver
	executor ToolCommandExecutor
}

// NewPrerequisiteChecker validates dependencies and constructs a PrerequisiteChecker.
func NewPrerequisiteChecker(resolver ExecutableResolver, executor ToolCommandExecutor) (*PrerequisiteChecker, error) {
	if resolver == nil {
		return nil, ErrExecutableResolverNotConfigured
	}
	if executor == nil {
		return nil, ErrToolExecutorNotConfigured
	}
	return &PrerequisiteChecker{resolver: resolver, executor: executor}, nil
}

// EnsureTools confirms every named executable is resolvable, aborting on the first missing one.
func (checker *PrerequisiteChecker) EnsureTools(toolNames []string) error {
	for _, toolName := range toolNames {
		if _, lookupError := checker.resolver.LookPath(toolName); lookupError != nil {
			return ToolMissingError{ToolName: toolName}
		}
	}
	return nil
}

// EnsureProfile confirms the requested profile is among the configured credential profiles.
func (checker *PrerequisiteChecker) EnsureProfile(executionContext context.Context, profileName string) error {
	listingResult, listingError := checker.executor.ExecuteAws(executionContext, execshell.CommandDetails{
		Arguments: []string{awsConfigureSubcommandConstant, awsListProfilesSubcommandConstant},
	})
	if listingError != nil {
		return fmt.Errorf(profileListFailureTemplateConstant, listingError)
	}

	for _, profileLine := range strings.Split(listingResult.StandardOutput, profileListLineSeparatorConstant) {
		if strings.TrimSpace(profileLine) == profileName {
			return nil
		}
	}

	return ProfileNotFoundError{ProfileName: profileName}
}
