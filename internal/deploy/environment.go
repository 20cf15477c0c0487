package deploy

import (
	"errors"
	"fmt"
)

const (
	environmentDevelopmentNameConstant      = "dev"
	environmentProductionNameConstant       = "prd"
	environmentInvalidMessageConstant       = "environment must be one of dev or prd"
	environmentInvalidValueTemplateConstant = "invalid environment %q: %w"
)

// ErrEnvironmentInvalid indicates the requested environment name is not supported.
var ErrEnvironmentInvalid = errors.New(environmentInvalidMessageConstant)

// Environment identifies a deployment target in the two-environment promotion model.
type Environment string

// Supported deployment environments.
const (
	EnvironmentDevelopment Environment = Environment(environmentDevelopmentNameConstant)
	EnvironmentProduction  Environment = Environment(environmentProductionNameConstant)
)

// ParseEnvironment validates a raw environment argument. Matching is case-sensitive.
func ParseEnvironment(rawEnvironment string) (Environment, error) {
	switch Environment(rawEnvironment) {
	case EnvironmentDevelopment:
		return EnvironmentDevelopment, nil
	case EnvironmentProduction:
		return EnvironmentProduction, nil
	default:
		return Environment(emptyValueConstant), fmt.Errorf(environmentInvalidValueTemplateConstant, rawEnvironment, ErrEnvironmentInvalid)
	}
}

// DeployBranch selects the branch whose tip is cloned and provisioned for the environment.
func (environment Environment) DeployBranch(developmentBranch string, productionBranch string) string {
	if environment == EnvironmentProduction {
		return productionBranch
	}
	return developmentBranch
}
