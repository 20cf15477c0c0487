package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Guisilcol/cicd-pipeline-scripts/internal/execshell"
)

const (
	profileRequiredMessageConstant         = "credential profile must be provided"
	prerequisitesFailureTemplateConstant   = "prerequisite check failed: %w"
	credentialsFailureTemplateConstant     = "credential resolution failed: %w"
	reconciliationFailureTemplateConstant  = "branch reconciliation failed: %w"
	provisioningFailureTemplateConstant    = "deployment failed: %w"
	deploymentStartedMessageConstant       = "deployment started"
	reconciliationCompletedMessageConstant = "branch reconciliation completed"
	logFieldStartingBranchConstant         = "starting_branch"
)

// ErrProfileRequired indicates the profile argument was empty.
var ErrProfileRequired = errors.New(profileRequiredMessageConstant)

var requiredToolNames = []string{
	string(execshell.CommandAws),
	string(execshell.CommandTerraform),
	string(execshell.CommandGit),
}

// ServiceDependencies enumerates collaborators required by the deploy service.
type ServiceDependencies struct {
	ToolExecutor       ToolCommandExecutor
	ExecutableResolver ExecutableResolver
	Logger             *zap.Logger
}

// Options configure a single deployment run.
type Options struct {
	Profile     string
	Environment Environment
}

// Service executes the deploy procedure top to bottom on each invocation.
type Service struct {
	executor      ToolCommandExecutor
	resolver      ExecutableResolver
	logger        *zap.Logger
	configuration CommandConfiguration
}

// NewService validates dependencies and constructs a deploy Service.
func NewService(dependencies ServiceDependencies, configuration CommandConfiguration) (*Service, error) {
	if dependencies.ToolExecutor == nil {
		return nil, ErrToolExecutorNotConfigured
	}
	if dependencies.ExecutableResolver == nil {
		return nil, ErrExecutableResolverNotConfigured
	}
	if dependencies.Logger == nil {
		return nil, execshell.ErrLoggerNotConfigured
	}

	return &Service{
		executor:      dependencies.ToolExecutor,
		resolver:      dependencies.ExecutableResolver,
		logger:        dependencies.Logger,
		configuration: configuration.Sanitize(),
	}, nil
}

// Deploy runs prerequisite checks, credential resolution, branch reconciliation,
// and provisioning as one forward-only sequence.
func (service *Service) Deploy(executionContext context.Context, options Options) error {
	trimmedProfile := strings.TrimSpace(options.Profile)
	if len(trimmedProfile) == 0 {
		return ErrProfileRequired
	}

	service.logger.Info(
		deploymentStartedMessageConstant,
		zap.String(logFieldProfileConstant, trimmedProfile),
		zap.String(logFieldEnvironmentConstant, string(options.Environment)),
	)

	prerequisiteChecker, checkerError := NewPrerequisiteChecker(service.resolver, service.executor)
	if checkerError != nil {
		return checkerError
	}
	if toolsError := prerequisiteChecker.EnsureTools(requiredToolNames); toolsError != nil {
		return fmt.Errorf(prerequisitesFailureTemplateConstant, toolsError)
	}
	if profileError := prerequisiteChecker.EnsureProfile(executionContext, trimmedProfile); profileError != nil {
		return fmt.Errorf(prerequisitesFailureTemplateConstant, profileError)
	}

	credentialExporter, exporterError := NewCredentialExporter(service.executor, service.logger)
	if exporterError != nil {
		return exporterError
	}
	credentialBundle, credentialsError := credentialExporter.Resolve(executionContext, trimmedProfile)
	if credentialsError != nil {
		return fmt.Errorf(credentialsFailureTemplateConstant, credentialsError)
	}
	credentialEnvironment := credentialBundle.Environment()

	branchReconciler, reconcilerError := NewBranchReconciler(service.executor, service.logger)
	if reconcilerError != nil {
		return reconcilerError
	}
	reconcileResult, reconcileError := branchReconciler.Reconcile(executionContext, ReconcileOptions{
		RepositoryPath:       service.configuration.RepositoryPath,
		Environment:          options.Environment,
		RemoteName:           service.configuration.RemoteName,
		DevelopmentBranch:    service.configuration.DevelopmentBranch,
		ProductionBranch:     service.configuration.ProductionBranch,
		EnvironmentVariables: credentialEnvironment,
	})
	if reconcileError != nil {
		return fmt.Errorf(reconciliationFailureTemplateConstant, reconcileError)
	}

	service.logger.Info(
		reconciliationCompletedMessageConstant,
		zap.String(logFieldStartingBranchConstant, reconcileResult.StartingBranch),
		zap.String(logFieldDeployBranchConstant, reconcileResult.DeployBranch),
	)

	deployExecutor, executorError := NewDeployExecutor(service.executor, service.logger)
	if executorError != nil {
		return executorError
	}
	if executeError := deployExecutor.Execute(executionContext, ExecuteOptions{
		RepositoryPath:          service.configuration.RepositoryPath,
		Environment:             options.Environment,
		RemoteName:              service.configuration.RemoteName,
		DeployBranch:            reconcileResult.DeployBranch,
		InfrastructureDirectory: service.configuration.InfrastructureDirectory,
		BackendConfigTemplate:   service.configuration.BackendConfigTemplate,
		VariablesFileTemplate:   service.configuration.VariablesFileTemplate,
		EnvironmentVariables:    credentialEnvironment,
	}); executeError != nil {
		return fmt.Errorf(provisioningFailureTemplateConstant, executeError)
	}

	return nil
}
