package deploy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Guisilcol/cicd-pipeline-scripts/internal/deploy"
)

func TestParseEnvironment(testInstance *testing.T) {
	testCases := []struct {
		name                string
		rawEnvironment      string
		expectedEnvironment deploy.Environment
		expectedError       bool
	}{
		{name: "development", rawEnvironment: "dev", expectedEnvironment: deploy.EnvironmentDevelopment},
		{name: "production", rawEnvironment: "prd", expectedEnvironment: deploy.EnvironmentProduction},
		{name: "unknown_value", rawEnvironment: "staging", expectedError: true},
		{name: "uppercase_rejected", rawEnvironment: "DEV", expectedError: true},
		{name: "padded_rejected", rawEnvironment: " dev", expectedError: true},
		{name: "empty_rejected", rawEnvironment: "", expectedError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			parsedEnvironment, parseError := deploy.ParseEnvironment(testCase.rawEnvironment)
			if testCase.expectedError {
				require.ErrorIs(subTest, parseError, deploy.ErrEnvironmentInvalid)
				require.ErrorContains(subTest, parseError, testCase.rawEnvironment)
				return
			}
			require.NoError(subTest, parseError)
			require.Equal(subTest, testCase.expectedEnvironment, parsedEnvironment)
		})
	}
}

func TestEnvironmentDeployBranch(testInstance *testing.T) {
	require.Equal(testInstance, testDevelopmentBranchConstant,
		deploy.EnvironmentDevelopment.DeployBranch(testDevelopmentBranchConstant, testProductionBranchConstant))
	require.Equal(testInstance, testProductionBranchConstant,
		deploy.EnvironmentProduction.DeployBranch(testDevelopmentBranchConstant, testProductionBranchConstant))
}
