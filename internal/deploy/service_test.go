package deploy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Guisilcol/cicd-pipeline-scripts/internal/deploy"
	"github.com/Guisilcol/cicd-pipeline-scripts/internal/execshell"
)

func serviceConfiguration() deploy.CommandConfiguration {
	return deploy.CommandConfiguration{
		RemoteName:        testRemoteNameConstant,
		RepositoryPath:    testRepositoryPathConstant,
		DevelopmentBranch: testDevelopmentBranchConstant,
		ProductionBranch:  testProductionBranchConstant,
	}
}

func newService(testInstance *testing.T, executor *scriptedToolExecutor, resolver deploy.ExecutableResolver) *deploy.Service {
	testInstance.Helper()

	service, creationError := deploy.NewService(deploy.ServiceDependencies{
		ToolExecutor:       executor,
		ExecutableResolver: resolver,
		Logger:             zap.NewNop(),
	}, serviceConfiguration())
	require.NoError(testInstance, creationError)
	return service
}

func happyPathExecutor() *scriptedToolExecutor {
	gitScript := baselinePublishedScript(testDevelopmentBranchConstant)
	gitScript = append(gitScript,
		outputResponse(testRemoteURLConstant+"\n"),
		successResponse(),
	)

	return &scriptedToolExecutor{
		gitResponses: gitScript,
		awsResponses: []scriptedResponse{
			outputResponse("default\n" + testProfileNameConstant + "\n"),
			outputResponse("AKIAEXAMPLE\n"),
			outputResponse("secret-value\n"),
			outputResponse("session-value\n"),
			outputResponse("us-east-1\n"),
		},
	}
}

func TestServiceValidatesDependencies(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dependencies  deploy.ServiceDependencies
		expectedError error
	}{
		{
			name: "missing_tool_executor",
			dependencies: deploy.ServiceDependencies{
				ExecutableResolver: stubExecutableResolver{},
				Logger:             zap.NewNop(),
			},
			expectedError: deploy.ErrToolExecutorNotConfigured,
		},
		{
			name: "missing_executable_resolver",
			dependencies: deploy.ServiceDependencies{
				ToolExecutor: &scriptedToolExecutor{},
				Logger:       zap.NewNop(),
			},
			expectedError: deploy.ErrExecutableResolverNotConfigured,
		},
		{
			name: "missing_logger",
			dependencies: deploy.ServiceDependencies{
				ToolExecutor:       &scriptedToolExecutor{},
				ExecutableResolver: stubExecutableResolver{},
			},
			expectedError: execshell.ErrLoggerNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			_, creationError := deploy.NewService(testCase.dependencies, serviceConfiguration())
			require.ErrorIs(subTest, creationError, testCase.expectedError)
		})
	}
}

func TestServiceDeploysEndToEnd(testInstance *testing.T) {
	executor := happyPathExecutor()
	service := newService(testInstance, executor, stubExecutableResolver{})

	deployError := service.Deploy(context.Background(), deploy.Options{
		Profile:     testProfileNameConstant,
		Environment: deploy.EnvironmentDevelopment,
	})
	require.NoError(testInstance, deployError)

	require.Len(testInstance, executor.recordedAws, 5)
	require.Len(testInstance, executor.recordedGit, 6)
	require.Len(testInstance, executor.recordedTerraform, 2)

	for _, terraformCommand := range executor.recordedTerraform {
		require.Equal(testInstance, "AKIAEXAMPLE", terraformCommand.EnvironmentVariables["AWS_ACCESS_KEY_ID"])
		require.Equal(testInstance, "secret-value", terraformCommand.EnvironmentVariables["AWS_SECRET_ACCESS_KEY"])
		require.Equal(testInstance, "session-value", terraformCommand.EnvironmentVariables["AWS_SESSION_TOKEN"])
		require.Equal(testInstance, "us-east-1", terraformCommand.EnvironmentVariables["AWS_DEFAULT_REGION"])
	}

	for _, gitCommand := range executor.recordedGit[:4] {
		require.Equal(testInstance, "AKIAEXAMPLE", gitCommand.EnvironmentVariables["AWS_ACCESS_KEY_ID"])
	}
}

func TestServiceRejectsEmptyProfile(testInstance *testing.T) {
	executor := &scriptedToolExecutor{}
	service := newService(testInstance, executor, stubExecutableResolver{})

	deployError := service.Deploy(context.Background(), deploy.Options{
		Profile:     "   ",
		Environment: deploy.EnvironmentDevelopment,
	})
	require.ErrorIs(testInstance, deployError, deploy.ErrProfileRequired)
	require.Empty(testInstance, executor.recordedAws)
	require.Empty(testInstance, executor.recordedGit)
}

func TestServiceAbortsWhenToolMissing(testInstance *testing.T) {
	executor := &scriptedToolExecutor{}
	service := newService(testInstance, executor, stubExecutableResolver{missingTool: "terraform"})

	deployError := service.Deploy(context.Background(), deploy.Options{
		Profile:     testProfileNameConstant,
		Environment: deploy.EnvironmentDevelopment,
	})

	toolMissing := deploy.ToolMissingError{}
	require.ErrorAs(testInstance, deployError, &toolMissing)
	require.Equal(testInstance, "terraform", toolMissing.ToolName)
	require.Empty(testInstance, executor.recordedAws)
	require.Empty(testInstance, executor.recordedGit)
}

func TestServiceAbortsWhenProfileNotConfigured(testInstance *testing.T) {
	executor := &scriptedToolExecutor{awsResponses: []scriptedResponse{outputResponse("default\n")}}
	service := newService(testInstance, executor, stubExecutableResolver{})

	deployError := service.Deploy(context.Background(), deploy.Options{
		Profile:     testProfileNameConstant,
		Environment: deploy.EnvironmentDevelopment,
	})

	profileNotFound := deploy.ProfileNotFoundError{}
	require.ErrorAs(testInstance, deployError, &profileNotFound)
	require.Equal(testInstance, testProfileNameConstant, profileNotFound.ProfileName)
	require.Len(testInstance, executor.recordedAws, 1)
	require.Empty(testInstance, executor.recordedGit)
}

func TestServiceStopsBeforeProvisioningWhenReconciliationFails(testInstance *testing.T) {
	executor := happyPathExecutor()
	executor.gitResponses = baselinePublishedScript(testProductionBranchConstant)
	service := newService(testInstance, executor, stubExecutableResolver{})

	deployError := service.Deploy(context.Background(), deploy.Options{
		Profile:     testProfileNameConstant,
		Environment: deploy.EnvironmentDevelopment,
	})
	require.ErrorIs(testInstance, deployError, deploy.ErrPromotionFromMaster)
	require.Empty(testInstance, executor.recordedTerraform)
}
