package deploy

import "strings"

const (
	emptyValueConstant = ""

	configurationRemoteNameKeyConstant              = "remote"
	configurationRepositoryPathKeyConstant          = "repository_path"
	configurationInfrastructureDirectoryKeyConstant = "infrastructure_directory"
	configurationBackendConfigTemplateKeyConstant   = "backend_config_template"
	configurationVariablesFileTemplateKeyConstant   = "variables_file_template"
	configurationDevelopmentBranchKeyConstant       = "development_branch"
	configurationProductionBranchKeyConstant        = "production_branch"

	defaultRemoteNameConstant              = "origin"
	defaultRepositoryPathConstant          = "."
	defaultInfrastructureDirectoryConstant = "infra"
	defaultBackendConfigTemplateConstant   = "env/%s.backend.config"
	defaultVariablesFileTemplateConstant   = "env/%s.tfvars"
	defaultDevelopmentBranchConstant       = "dev"
	defaultProductionBranchConstant        = "master"

	configurationKeySeparatorConstant = "."
)

// CommandConfiguration captures configuration values for the deploy command.
type CommandConfiguration struct {
	RemoteName              string `mapstructure:"remote"`
	RepositoryPath          string `mapstructure:"repository_path"`
	InfrastructureDirectory string `mapstructure:"infrastructure_directory"`
	BackendConfigTemplate   string `mapstructure:"backend_config_template"`
	VariablesFileTemplate   string `mapstructure:"variables_file_template"`
	DevelopmentBranch       string `mapstructure:"development_branch"`
	ProductionBranch        string `mapstructure:"production_branch"`
}

// DefaultCommandConfiguration provides baseline configuration values for deployments.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		RemoteName:              defaultRemoteNameConstant,
		RepositoryPath:          defaultRepositoryPathConstant,
		InfrastructureDirectory: defaultInfrastructureDirectoryConstant,
		BackendConfigTemplate:   defaultBackendConfigTemplateConstant,
		VariablesFileTemplate:   defaultVariablesFileTemplateConstant,
		DevelopmentBranch:       defaultDevelopmentBranchConstant,
		ProductionBranch:        defaultProductionBranchConstant,
	}
}

// DefaultConfigurationValues produces Viper defaults for the deploy command.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + configurationKeySeparatorConstant + configurationRemoteNameKeyConstant:              defaults.RemoteName,
		rootKey + configurationKeySeparatorConstant + configurationRepositoryPathKeyConstant:          defaults.RepositoryPath,
		rootKey + configurationKeySeparatorConstant + configurationInfrastructureDirectoryKeyConstant: defaults.InfrastructureDirectory,
		rootKey + configurationKeySeparatorConstant + configurationBackendConfigTemplateKeyConstant:   defaults.BackendConfigTemplate,
		rootKey + configurationKeySeparatorConstant + configurationVariablesFileTemplateKeyConstant:   defaults.VariablesFileTemplate,
		rootKey + configurationKeySeparatorConstant + configurationDevelopmentBranchKeyConstant:       defaults.DevelopmentBranch,
		rootKey + configurationKeySeparatorConstant + configurationProductionBranchKeyConstant:        defaults.ProductionBranch,
	}
}

// Sanitize trims configuration values and restores defaults for empty entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.RemoteName = valueOrDefault(configuration.RemoteName, defaults.RemoteName)
	sanitized.RepositoryPath = valueOrDefault(configuration.RepositoryPath, defaults.RepositoryPath)
	sanitized.InfrastructureDirectory = valueOrDefault(configuration.InfrastructureDirectory, defaults.InfrastructureDirectory)
	sanitized.BackendConfigTemplate = valueOrDefault(configuration.BackendConfigTemplate, defaults.BackendConfigTemplate)
	sanitized.VariablesFileTemplate = valueOrDefault(configuration.VariablesFileTemplate, defaults.VariablesFileTemplate)
	sanitized.DevelopmentBranch = valueOrDefault(configuration.DevelopmentBranch, defaults.DevelopmentBranch)
	sanitized.ProductionBranch = valueOrDefault(configuration.ProductionBranch, defaults.ProductionBranch)

	return sanitized
}

func valueOrDefault(candidate string, defaultValue string) string {
	trimmed := strings.TrimSpace(candidate)
	if len(trimmed) == 0 {
		return defaultValue
	}
	return trimmed
}
