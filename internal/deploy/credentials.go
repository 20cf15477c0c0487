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
	awsConfigureGetSubcommandConstant = "get"
	awsProfileFlagConstant            = "--profile"

	credentialFieldAccessKeyIDConstant     = "aws_access_key_id"
	credentialFieldSecretAccessKeyConstant = "aws_secret_access_key"
	credentialFieldSessionTokenConstant    = "aws_session_token"
	credentialFieldRegionConstant          = "region"

	environmentAccessKeyIDNameConstant     = "AWS_ACCESS_KEY_ID"
	environmentSecretAccessKeyNameConstant = "AWS_SECRET_ACCESS_KEY"
	environmentSessionTokenNameConstant    = "AWS_SESSION_TOKEN"
	environmentDefaultRegionNameConstant   = "AWS_DEFAULT_REGION"

	credentialFieldFailureTemplateConstant = "failed to read credential field %s for profile %q: %w"
	credentialsResolvedMessageConstant     = "credentials resolved"
	logFieldProfileConstant                = "profile"
	logFieldAccessKeyIDConstant            = "access_key_id"
	logFieldRegionConstant                 = "region"
)

// CredentialBundle carries profile-scoped credentials for downstream tool invocations.
type CredentialBundle struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
}

// Environment renders the bundle under the credential store's conventional variable names.
//
// The session token is always present, even when empty, so a stale ambient
// token cannot leak into downstream invocations.
func (bundle CredentialBundle) Environment() map[string]string {
	return map[string]string{
		environmentAccessKeyIDNameConstant:     bundle.AccessKeyID,
		environmentSecretAccessKeyNameConstant: bundle.SecretAccessKey,
		environmentSessionTokenNameConstant:    bundle.SessionToken,
		environmentDefaultRegionNameConstant:   bundle.Region,
	}
}

// CredentialExporter reads profile-scoped credential fields from the credential store CLI.
type CredentialExporter struct {
	executor ToolCommandExecutor
	logger   *zap.Logger
}

// NewCredentialExporter validates dependencies and constructs a CredentialExporter.
func NewCredentialExporter(executor ToolCommandExecutor, logger *zap.Logger) (*CredentialExporter, error) {
	if executor == nil {
		return nil, ErrToolExecutorNotConfigured
	}
	if logger == nil {
		return nil, execshell.ErrLoggerNotConfigured
	}
	return &CredentialExporter{executor: executor, logger: logger}, nil
}

// Resolve queries the four profile-scoped credential fields.
//
// A missing session token is tolerated because non-session credentials carry
// none; every other field failure is fatal. The credentials are not validated
// for authorization here, so failures surface later at the clone or
// provisioner step.
func (exporter *CredentialExporter) Resolve(executionContext context.Context, profileName string) (CredentialBundle, error) {
	accessKeyID, accessKeyError := exporter.readField(executionContext, profileName, credentialFieldAccessKeyIDConstant)
	if accessKeyError != nil {
		return CredentialBundle{}, accessKeyError
	}

	secretAccessKey, secretAccessError := exporter.readField(executionContext, profileName, credentialFieldSecretAccessKeyConstant)
	if secretAccessError != nil {
		return CredentialBundle{}, secretAccessError
	}

	sessionToken, sessionTokenError := exporter.readField(executionContext, profileName, credentialFieldSessionTokenConstant)
	if sessionTokenError != nil {
		commandFailure := execshell.CommandFailedError{}
		if !errors.As(sessionTokenError, &commandFailure) {
			return CredentialBundle{}, sessionTokenError
		}
		sessionToken = emptyValueConstant
	}

	region, regionError := exporter.readField(executionContext, profileName, credentialFieldRegionConstant)
	if regionError != nil {
		return CredentialBundle{}, regionError
	}

	resolvedBundle := CredentialBundle{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		SessionToken:    sessionToken,
		Region:          region,
	}

	// Logging the key id is an operational visibility trade-off, not a control.
	exporter.logger.Info(
		credentialsResolvedMessageConstant,
		zap.String(logFieldProfileConstant, profileName),
		zap.String(logFieldAccessKeyIDConstant, resolvedBundle.AccessKeyID),
		zap.String(logFieldRegionConstant, resolvedBundle.Region),
	)

	return resolvedBundle, nil
}

func (exporter *CredentialExporter) readField(executionContext context.Context, profileName string, fieldName string) (string, error) {
	fieldResult, fieldError := exporter.executor.ExecuteAws(executionContext, execshell.CommandDetails{
		Arguments: []string{awsConfigureSubcommandConstant, awsConfigureGetSubcommandConstant, fieldName, awsProfileFlagConstant, profileName},
	})
	if fieldError != nil {
		return emptyValueConstant, fmt.Errorf(credentialFieldFailureTemplateConstant, fieldName, profileName, fieldError)
	}
	return strings.TrimSpace(fieldResult.StandardOutput), nil
}
