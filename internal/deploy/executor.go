package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Guisilcol/cicd-pipeline-scripts/internal/execshell"
	"github.com/Guisilcol/cicd-pipeline-scripts/internal/gitrepo"
)

const (
	gitRemoteSubcommandConstant     = "remote"
	gitRemoteGetURLSubcommand       = "get-url"
	gitCloneSubcommandConstant      = "clone"
	gitDepthFlagConstant            = "--depth"
	gitShallowDepthValueConstant    = "1"
	gitBranchFlagConstant           = "--branch"
	gitSingleBranchFlagConstant     = "--single-branch"
	terraformInitSubcommandConstant = "init"
	terraformReconfigureFlag        = "-reconfigure"
	terraformBackendConfigFlag      = "-backend-config=%s"
	terraformApplySubcommand        = "apply"
	terraformAutoApproveFlag        = "-auto-approve"
	terraformVarFileFlag            = "-var-file=%s"

	workspacePrefixConstant = "cicd-deploy-"

	remoteURLFailureTemplateConstant     = "failed to resolve remote url for %q: %w"
	workspaceCreationFailureTemplate     = "failed to create deployment workspace: %w"
	cloneFailureTemplateConstant         = "failed to clone branch %q: %w"
	terraformInitFailureTemplateConstant = "provisioner init failed: %w"
	terraformApplyFailureTemplate        = "provisioner apply failed: %w"

	cloneStartedMessageConstant     = "cloning deploy branch"
	remoteResolvedMessageConstant   = "remote repository resolved"
	workspaceRemovedMessageConstant = "deployment workspace removed"
	deployCompletedMessageConstant  = "deployment completed"
	logFieldRemoteURLConstant       = "remote_url"
	logFieldRepositoryConstant      = "repository"
	logFieldDeployBranchConstant    = "deploy_branch"
	logFieldWorkspaceConstant       = "workspace"
	logFieldBackendConfigConstant   = "backend_config"
	logFieldVariablesFileConstant   = "variables_file"
)

// ExecuteOptions configure a provisioning run against a freshly cloned deploy branch.
type ExecuteOptions struct {
	RepositoryPath          string
	Environment             Environment
	RemoteName              string
	DeployBranch            string
	InfrastructureDirectory string
	BackendConfigTemplate   string
	VariablesFileTemplate   string
	EnvironmentVariables    map[string]string
}

// DeployExecutor clones the deploy branch into an ephemeral workspace and runs the provisioner lifecycle.
type DeployExecutor struct {
	executor ToolCommandExecutor
	logger   *zap.Logger
}

// NewDeployExecutor validates dependencies and constructs a DeployExecutor.
func NewDeployExecutor(executor ToolCommandExecutor, logger *zap.Logger) (*DeployExecutor, error) {
	if executor == nil {
		return nil, ErrToolExecutorNotConfigured
	}
	if logger == nil {
		return nil, execshell.ErrLoggerNotConfigured
	}
	return &DeployExecutor{executor: executor, logger: logger}, nil
}

// Execute performs the shallow clone and the provisioner init/apply lifecycle.
//
// The ephemeral workspace is removed on every return path; interruption is
// covered by the caller cancelling the context, which terminates the child
// process and unwinds through the same deferred removal.
func (deployExecutor *DeployExecutor) Execute(executionContext context.Context, options ExecuteOptions) error {
	remoteURL, remoteURLError := deployExecutor.resolveRemoteURL(executionContext, options)
	if remoteURLError != nil {
		return fmt.Errorf(remoteURLFailureTemplateConstant, options.RemoteName, remoteURLError)
	}

	workspacePath, workspaceError := os.MkdirTemp(emptyValueConstant, workspacePrefixConstant)
	if workspaceError != nil {
		return fmt.Errorf(workspaceCreationFailureTemplate, workspaceError)
	}
	defer func() {
		_ = os.RemoveAll(workspacePath)
		deployExecutor.logger.Debug(workspaceRemovedMessageConstant, zap.String(logFieldWorkspaceConstant, workspacePath))
	}()

	deployExecutor.logger.Info(
		cloneStartedMessageConstant,
		zap.String(logFieldRemoteURLConstant, remoteURL),
		zap.String(logFieldDeployBranchConstant, options.DeployBranch),
		zap.String(logFieldWorkspaceConstant, workspacePath),
	)

	cloneArguments := []string{
		gitCloneSubcommandConstant,
		gitDepthFlagConstant, gitShallowDepthValueConstant,
		gitBranchFlagConstant, options.DeployBranch,
		gitSingleBranchFlagConstant,
		remoteURL,
		workspacePath,
	}
	if _, cloneError := deployExecutor.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            cloneArguments,
		EnvironmentVariables: options.EnvironmentVariables,
	}); cloneError != nil {
		return fmt.Errorf(cloneFailureTemplateConstant, options.DeployBranch, cloneError)
	}

	infrastructurePath := filepath.Join(workspacePath, options.InfrastructureDirectory)
	backendConfigPath := fmt.Sprintf(options.BackendConfigTemplate, options.Environment)
	variablesFilePath := fmt.Sprintf(options.VariablesFileTemplate, options.Environment)

	if _, initError := deployExecutor.executor.ExecuteTerraform(executionContext, execshell.CommandDetails{
		Arguments:            []string{terraformInitSubcommandConstant, terraformReconfigureFlag, fmt.Sprintf(terraformBackendConfigFlag, backendConfigPath)},
		WorkingDirectory:     infrastructurePath,
		EnvironmentVariables: options.EnvironmentVariables,
	}); initError != nil {
		return fmt.Errorf(terraformInitFailureTemplateConstant, initError)
	}

	if _, applyError := deployExecutor.executor.ExecuteTerraform(executionContext, execshell.CommandDetails{
		Arguments:            []string{terraformApplySubcommand, terraformAutoApproveFlag, fmt.Sprintf(terraformVarFileFlag, variablesFilePath)},
		WorkingDirectory:     infrastructurePath,
		EnvironmentVariables: options.EnvironmentVariables,
	}); applyError != nil {
		return fmt.Errorf(terraformApplyFailureTemplate, applyError)
	}

	deployExecutor.logger.Info(
		deployCompletedMessageConstant,
		zap.String(logFieldDeployBranchConstant, options.DeployBranch),
		zap.String(logFieldBackendConfigConstant, backendConfigPath),
		zap.String(logFieldVariablesFileConstant, variablesFilePath),
	)

	return nil
}

func (deployExecutor *DeployExecutor) resolveRemoteURL(executionContext context.Context, options ExecuteOptions) (string, error) {
	remoteResult, remoteError := deployExecutor.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRemoteSubcommandConstant, gitRemoteGetURLSubcommand, options.RemoteName},
		WorkingDirectory: options.RepositoryPath,
	})
	if remoteError != nil {
		return emptyValueConstant, remoteError
	}

	remoteURL := strings.TrimSpace(remoteResult.StandardOutput)

	if parsedRemote, parseError := gitrepo.ParseRemoteURL(remoteURL); parseError == nil {
		deployExecutor.logger.Debug(
			remoteResolvedMessageConstant,
			zap.String(logFieldRepositoryConstant, parsedRemote.Owner+"/"+parsedRemote.Repository),
		)
	}

	return remoteURL, nil
}
