package deploy_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/Guisilcol/cicd-pipeline-scripts/internal/deploy"
)

func buildDeployCommand(testInstance *testing.T, executor *scriptedToolExecutor, resolver deploy.ExecutableResolver) *cobra.Command {
	testInstance.Helper()

	builder := &deploy.CommandBuilder{
		ToolExecutor:       executor,
		ExecutableResolver: resolver,
		ConfigurationProvider: func() deploy.CommandConfiguration {
			return serviceConfiguration()
		},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SilenceUsage = true
	command.SilenceErrors = true
	return command
}

func TestDeployCommandRejectsMissingArguments(testInstance *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
	}{
		{name: "no_arguments", arguments: []string{}},
		{name: "profile_only", arguments: []string{testProfileNameConstant}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			executor := &scriptedToolExecutor{}
			deployCommand := buildDeployCommand(subTest, executor, stubExecutableResolver{})
			deployCommand.SetArgs(testCase.arguments)

			require.Error(subTest, deployCommand.Execute())
			require.Empty(subTest, executor.recordedAws)
			require.Empty(subTest, executor.recordedGit)
		})
	}
}

func TestDeployCommandRejectsInvalidEnvironmentBeforeAnyToolRuns(testInstance *testing.T) {
	executor := &scriptedToolExecutor{}
	deployCommand := buildDeployCommand(testInstance, executor, stubExecutableResolver{})
	deployCommand.SetArgs([]string{testProfileNameConstant, "staging"})

	executionError := deployCommand.Execute()
	require.ErrorIs(testInstance, executionError, deploy.ErrEnvironmentInvalid)
	require.ErrorContains(testInstance, executionError, "staging")
	require.Empty(testInstance, executor.recordedAws)
	require.Empty(testInstance, executor.recordedGit)
}

func TestDeployCommandRunsDeployment(testInstance *testing.T) {
	executor := happyPathExecutor()
	deployCommand := buildDeployCommand(testInstance, executor, stubExecutableResolver{})
	deployCommand.SetArgs([]string{testProfileNameConstant, "dev"})

	require.NoError(testInstance, deployCommand.Execute())
	require.Len(testInstance, executor.recordedTerraform, 2)
}

func TestDeployCommandSurfacesMissingToolFailure(testInstance *testing.T) {
	executor := &scriptedToolExecutor{}
	deployCommand := buildDeployCommand(testInstance, executor, stubExecutableResolver{missingTool: "aws"})
	deployCommand.SetArgs([]string{testProfileNameConstant, "dev"})

	executionError := deployCommand.Execute()
	toolMissing := deploy.ToolMissingError{}
	require.ErrorAs(testInstance, executionError, &toolMissing)
	require.Equal(testInstance, "aws", toolMissing.ToolName)
}
