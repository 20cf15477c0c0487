package deploy_test

import (
	"context"
	"errors"

	"github.com/Guisilcol/cicd-pipeline-scripts/internal/execshell"
)

const (
	testRemoteNameConstant        = "origin"
	testRepositoryPathConstant    = "/tmp/repository"
	testDevelopmentBranchConstant = "dev"
	testProductionBranchConstant  = "master"
	testFeatureBranchConstant     = "feature-x"
	testProfileNameConstant       = "staging-admin"
)

type scriptedResponse struct {
	result execshell.ExecutionResult
	err    error
}

// commandFailure builds the typed error the shell executor produces for non-zero exits.
func commandFailure(exitCode int) error {
	return execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: exitCode}}
}

func outputResponse(standardOutput string) scriptedResponse {
	return scriptedResponse{result: execshell.ExecutionResult{StandardOutput: standardOutput}}
}

func failureResponse() scriptedResponse {
	return scriptedResponse{err: commandFailure(1)}
}

func successResponse() scriptedResponse {
	return scriptedResponse{}
}

// scriptedToolExecutor replays per-tool response scripts while recording every invocation.
// Exhausted scripts yield empty successful results.
type scriptedToolExecutor struct {
	recordedGit        []execshell.CommandDetails
	recordedAws        []execshell.CommandDetails
	recordedTerraform  []execshell.CommandDetails
	gitResponses       []scriptedResponse
	awsResponses       []scriptedResponse
	terraformResponses []scriptedResponse
}

func (executor *scriptedToolExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedGit = append(executor.recordedGit, details)
	return nextResponse(&executor.gitResponses)
}

func (executor *scriptedToolExecutor) ExecuteAws(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedAws = append(executor.recordedAws, details)
	return nextResponse(&executor.awsResponses)
}

func (executor *scriptedToolExecutor) ExecuteTerraform(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedTerraform = append(executor.recordedTerraform, details)
	return nextResponse(&executor.terraformResponses)
}

func nextResponse(responses *[]scriptedResponse) (execshell.ExecutionResult, error) {
	if len(*responses) == 0 {
		return execshell.ExecutionResult{}, nil
	}

	next := (*responses)[0]
	*responses = (*responses)[1:]
	if next.err != nil {
		return execshell.ExecutionResult{}, next.err
	}
	return next.result, nil
}

// stubExecutableResolver resolves every tool except the configured missing one.
type stubExecutableResolver struct {
	missingTool string
}

func (resolver stubExecutableResolver) LookPath(executableName string) (string, error) {
	if executableName == resolver.missingTool {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/bin/" + executableName, nil
}

// baselinePublishedScript covers baseline verification, current branch capture,
// and the remote publication check for an already-published branch.
func baselinePublishedScript(currentBranch string) []scriptedResponse {
	return []scriptedResponse{
		successResponse(),
		successResponse(),
		outputResponse(currentBranch + "\n"),
		outputResponse("0000000000000000000000000000000000000000\trefs/heads/" + currentBranch + "\n"),
	}
}
