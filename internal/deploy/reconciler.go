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
	gitShowRefSubcommandConstant     = "show-ref"
	gitVerifyFlagConstant            = "--verify"
	gitQuietFlagConstant             = "--quiet"
	gitHeadsReferencePrefixConstant  = "refs/heads/"
	gitBranchSubcommandConstant      = "branch"
	gitPushSubcommandConstant        = "push"
	gitSetUpstreamFlagConstant       = "--set-upstream"
	gitForceFlagConstant             = "--force"
	gitRevParseSubcommandConstant    = "rev-parse"
	gitAbbrevRefFlagConstant         = "--abbrev-ref"
	gitHeadReferenceConstant         = "HEAD"
	gitLSRemoteSubcommandConstant    = "ls-remote"
	gitHeadsFlagConstant             = "--heads"
	gitCheckoutSubcommandConstant    = "checkout"
	gitPullSubcommandConstant        = "pull"
	gitRebaseFlagConstant            = "--rebase"
	gitMergeSubcommandConstant       = "merge"
	gitFastForwardOnlyFlagConstant   = "--ff-only"
	gitRebaseSubcommandConstant      = "rebase"
	gitResetSubcommandConstant       = "reset"
	gitHardFlagConstant              = "--hard"
	gitTerminalPromptEnvironmentName = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisableValue    = "0"

	promotionFromMasterMessageConstant    = "deploying to dev from the production branch is disallowed"
	productionRequiresDevMessageConstant  = "production promotion must originate from the development branch"
	fastForwardImpossibleMessageConstant  = "fast-forward merge impossible after rebase"
	pushRetryExhaustedMessageConstant     = "push rejected again after rebase retry"
	baselineBranchFailureTemplateConstant = "failed to guarantee baseline branch %q: %w"
	currentBranchFailureTemplateConstant  = "failed to determine current branch: %w"
	publishBranchFailureTemplateConstant  = "failed to publish branch %q: %w"
	checkoutFailureTemplateConstant       = "failed to checkout %q: %w"
	pullFailureTemplateConstant           = "failed to rebase-pull %q: %w"
	rebaseFailureTemplateConstant         = "failed to rebase %q onto %q: %w"
	mergeFailureTemplateConstant          = "failed to fast-forward %q into %q: %w"
	pushFailureTemplateConstant           = "failed to push %q: %w"
	resetFailureTemplateConstant          = "failed to reset %q to %q: %w"
	forcePushFailureTemplateConstant      = "failed to force-push %q: %w"

	baselineBranchCreatedMessageConstant = "baseline branch created"
	currentBranchDetectedMessageConstant = "current branch detected"
	branchPublishedMessageConstant       = "branch published"
	promotionSkippedMessageConstant      = "already on development branch, no promotion needed"
	fastForwardRetryMessageConstant      = "fast-forward impossible, rebasing feature branch"
	pushRetryMessageConstant             = "push rejected, rebasing and retrying once"
	branchResyncedMessageConstant        = "source branch resynchronized"
	logFieldBranchConstant               = "branch"
	logFieldCurrentBranchConstant        = "current_branch"
	logFieldEnvironmentConstant          = "environment"
)

// ErrPromotionFromMaster indicates a dev deployment was requested from the production branch.
var ErrPromotionFromMaster = errors.New(promotionFromMasterMessageConstant)

// ErrProductionRequiresDev indicates a prd deployment was requested outside the development branch.
var ErrProductionRequiresDev = errors.New(productionRequiresDevMessageConstant)

// ErrFastForwardImpossible indicates an unexpected divergence the reconciler will not auto-resolve.
var ErrFastForwardImpossible = errors.New(fastForwardImpossibleMessageConstant)

// ErrPushRetryExhausted indicates a push was rejected twice despite the rebase retry.
var ErrPushRetryExhausted = errors.New(pushRetryExhaustedMessageConstant)

// ReconcileOptions configure a branch reconciliation run.
type ReconcileOptions struct {
	RepositoryPath       string
	Environment          Environment
	RemoteName           string
	DevelopmentBranch    string
	ProductionBranch     string
	EnvironmentVariables map[string]string
}

// ReconcileResult reports the branch state after promotion.
type ReconcileResult struct {
	StartingBranch string
	DeployBranch   string
}

// BranchReconciler enforces the linear promotion topology (feature -> dev -> master).
type BranchReconciler struct {
	executor ToolCommandExecutor
	logger   *zap.Logger
}

// NewBranchReconciler validates dependencies and constructs a BranchReconciler.
func NewBranchReconciler(executor ToolCommandExecutor, logger *zap.Logger) (*BranchReconciler, error) {
	if executor == nil {
		return nil, ErrToolExecutorNotConfigured
	}
	if logger == nil {
		return nil, execshell.ErrLoggerNotConfigured
	}
	return &BranchReconciler{executor: executor, logger: logger}, nil
}

// Reconcile guarantees baseline branches, publishes the current branch, and performs
// the environment-specific promotion.
func (reconciler *BranchReconciler) Reconcile(executionContext context.Context, options ReconcileOptions) (ReconcileResult, error) {
	baselineBranches := []string{options.DevelopmentBranch, options.ProductionBranch}
	for _, baselineBranch := range baselineBranches {
		if baselineError := reconciler.ensureBaselineBranch(executionContext, options, baselineBranch); baselineError != nil {
			return ReconcileResult{}, fmt.Errorf(baselineBranchFailureTemplateConstant, baselineBranch, baselineError)
		}
	}

	currentBranch, currentBranchError := reconciler.currentBranch(executionContext, options)
	if currentBranchError != nil {
		return ReconcileResult{}, fmt.Errorf(currentBranchFailureTemplateConstant, currentBranchError)
	}
	reconciler.logger.Debug(
		currentBranchDetectedMessageConstant,
		zap.String(logFieldCurrentBranchConstant, currentBranch),
		zap.String(logFieldEnvironmentConstant, string(options.Environment)),
	)

	publishedRemotely, publishedCheckError := reconciler.branchPublished(executionContext, options, currentBranch)
	if publishedCheckError != nil {
		return ReconcileResult{}, fmt.Errorf(publishBranchFailureTemplateConstant, currentBranch, publishedCheckError)
	}
	if !publishedRemotely {
		if publishError := reconciler.pushWithUpstream(executionContext, options, currentBranch); publishError != nil {
			return ReconcileResult{}, fmt.Errorf(publishBranchFailureTemplateConstant, currentBranch, publishError)
		}
		reconciler.logger.Info(branchPublishedMessageConstant, zap.String(logFieldBranchConstant, currentBranch))
	}

	result := ReconcileResult{
		StartingBranch: currentBranch,
		DeployBranch:   options.Environment.DeployBranch(options.DevelopmentBranch, options.ProductionBranch),
	}

	switch options.Environment {
	case EnvironmentProduction:
		return result, reconciler.promoteToProduction(executionContext, options, currentBranch)
	default:
		return result, reconciler.promoteToDevelopment(executionContext, options, currentBranch)
	}
}

func (reconciler *BranchReconciler) promoteToDevelopment(executionContext context.Context, options ReconcileOptions, currentBranch string) error {
	if currentBranch == options.ProductionBranch {
		return ErrPromotionFromMaster
	}

	if currentBranch == options.DevelopmentBranch {
		reconciler.logger.Info(promotionSkippedMessageConstant, zap.String(logFieldBranchConstant, currentBranch))
		return nil
	}

	if checkoutError := reconciler.checkout(executionContext, options, options.DevelopmentBranch); checkoutError != nil {
		return checkoutError
	}
	if pullError := reconciler.pullRebase(executionContext, options, options.DevelopmentBranch); pullError != nil {
		return pullError
	}

	mergeError := reconciler.mergeFastForward(executionContext, options, currentBranch, options.DevelopmentBranch)
	if mergeError != nil {
		commandFailure := execshell.CommandFailedError{}
		if !errors.As(mergeError, &commandFailure) {
			return mergeError
		}

		reconciler.logger.Info(
			fastForwardRetryMessageConstant,
			zap.String(logFieldBranchConstant, currentBranch),
		)

		if checkoutError := reconciler.checkout(executionContext, options, currentBranch); checkoutError != nil {
			return checkoutError
		}
		if rebaseError := reconciler.rebaseOnto(executionContext, options, currentBranch, options.DevelopmentBranch); rebaseError != nil {
			return rebaseError
		}
		if checkoutError := reconciler.checkout(executionContext, options, options.DevelopmentBranch); checkoutError != nil {
			return checkoutError
		}
		if retryMergeError := reconciler.mergeFastForward(executionContext, options, currentBranch, options.DevelopmentBranch); retryMergeError != nil {
			return retryMergeError
		}
	}

	if pushError := reconciler.pushWithSingleRetry(executionContext, options, options.DevelopmentBranch); pushError != nil {
		return pushError
	}

	return reconciler.resynchronizeSourceBranch(executionContext, options, currentBranch, options.DevelopmentBranch)
}

func (reconciler *BranchReconciler) promoteToProduction(executionContext context.Context, options ReconcileOptions, currentBranch string) error {
	if currentBranch != options.DevelopmentBranch {
		return ErrProductionRequiresDev
	}

	if checkoutError := reconciler.checkout(executionContext, options, options.ProductionBranch); checkoutError != nil {
		return checkoutError
	}
	if pullError := reconciler.pullRebase(executionContext, options, options.ProductionBranch); pullError != nil {
		return pullError
	}

	if checkoutError := reconciler.checkout(executionContext, options, options.DevelopmentBranch); checkoutError != nil {
		return checkoutError
	}
	if pullError := reconciler.pullRebase(executionContext, options, options.DevelopmentBranch); pullError != nil {
		return pullError
	}
	if rebaseError := reconciler.rebaseOnto(executionContext, options, options.DevelopmentBranch, options.ProductionBranch); rebaseError != nil {
		return rebaseError
	}

	if checkoutError := reconciler.checkout(executionContext, options, options.ProductionBranch); checkoutError != nil {
		return checkoutError
	}
	if mergeError := reconciler.mergeFastForward(executionContext, options, options.DevelopmentBranch, options.ProductionBranch); mergeError != nil {
		commandFailure := execshell.CommandFailedError{}
		if errors.As(mergeError, &commandFailure) {
			return fmt.Errorf(mergeFailureTemplateConstant, options.DevelopmentBranch, options.ProductionBranch, ErrFastForwardImpossible)
		}
		return mergeError
	}

	if pushError := reconciler.pushWithSingleRetry(executionContext, options, options.ProductionBranch); pushError != nil {
		return pushError
	}

	return reconciler.resynchronizeSourceBranch(executionContext, options, options.DevelopmentBranch, options.ProductionBranch)
}

// resynchronizeSourceBranch resets the promotion source to the promoted tip and force-pushes it.
func (reconciler *BranchReconciler) resynchronizeSourceBranch(executionContext context.Context, options ReconcileOptions, sourceBranch string, promotedBranch string) error {
	if checkoutError := reconciler.checkout(executionContext, options, sourceBranch); checkoutError != nil {
		return checkoutError
	}

	if _, resetError := reconciler.executeGit(executionContext, options, gitResetSubcommandConstant, gitHardFlagConstant, promotedBranch); resetError != nil {
		return fmt.Errorf(resetFailureTemplateConstant, sourceBranch, promotedBranch, resetError)
	}

	if _, pushError := reconciler.executeGit(executionContext, options, gitPushSubcommandConstant, gitForceFlagConstant, options.RemoteName, sourceBranch); pushError != nil {
		return fmt.Errorf(forcePushFailureTemplateConstant, sourceBranch, pushError)
	}

	reconciler.logger.Info(
		branchResyncedMessageConstant,
		zap.String(logFieldBranchConstant, sourceBranch),
	)

	return nil
}

func (reconciler *BranchReconciler) ensureBaselineBranch(executionContext context.Context, options ReconcileOptions, branchName string) error {
	branchReference := gitHeadsReferencePrefixConstant + branchName
	_, verifyError := reconciler.executeGit(executionContext, options, gitShowRefSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, branchReference)
	if verifyError == nil {
		return nil
	}

	commandFailure := execshell.CommandFailedError{}
	if !errors.As(verifyError, &commandFailure) {
		return verifyError
	}

	if _, creationError := reconciler.executeGit(executionContext, options, gitBranchSubcommandConstant, branchName); creationError != nil {
		return creationError
	}
	if publishError := reconciler.pushWithUpstream(executionContext, options, branchName); publishError != nil {
		return publishError
	}

	reconciler.logger.Info(baselineBranchCreatedMessageConstant, zap.String(logFieldBranchConstant, branchName))
	return nil
}

func (reconciler *BranchReconciler) currentBranch(executionContext context.Context, options ReconcileOptions) (string, error) {
	revParseResult, revParseError := reconciler.executeGit(executionContext, options, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant)
	if revParseError != nil {
		return emptyValueConstant, revParseError
	}
	return strings.TrimSpace(revParseResult.StandardOutput), nil
}

func (reconciler *BranchReconciler) branchPublished(executionContext context.Context, options ReconcileOptions, branchName string) (bool, error) {
	listingResult, listingError := reconciler.executeGit(executionContext, options, gitLSRemoteSubcommandConstant, gitHeadsFlagConstant, options.RemoteName, branchName)
	if listingError != nil {
		return false, listingError
	}
	return len(strings.TrimSpace(listingResult.StandardOutput)) > 0, nil
}

func (reconciler *BranchReconciler) pushWithUpstream(executionContext context.Context, options ReconcileOptions, branchName string) error {
	_, pushError := reconciler.executeGit(executionContext, options, gitPushSubcommandConstant, gitSetUpstreamFlagConstant, options.RemoteName, branchName)
	return pushError
}

func (reconciler *BranchReconciler) checkout(executionContext context.Context, options ReconcileOptions, branchName string) error {
	if _, checkoutError := reconciler.executeGit(executionContext, options, gitCheckoutSubcommandConstant, branchName); checkoutError != nil {
		return fmt.Errorf(checkoutFailureTemplateConstant, branchName, checkoutError)
	}
	return nil
}

func (reconciler *BranchReconciler) pullRebase(executionContext context.Context, options ReconcileOptions, branchName string) error {
	if _, pullError := reconciler.executeGit(executionContext, options, gitPullSubcommandConstant, gitRebaseFlagConstant, options.RemoteName, branchName); pullError != nil {
		return fmt.Errorf(pullFailureTemplateConstant, branchName, pullError)
	}
	return nil
}

func (reconciler *BranchReconciler) mergeFastForward(executionContext context.Context, options ReconcileOptions, sourceBranch string, targetBranch string) error {
	if _, mergeError := reconciler.executeGit(executionContext, options, gitMergeSubcommandConstant, gitFastForwardOnlyFlagConstant, sourceBranch); mergeError != nil {
		return fmt.Errorf(mergeFailureTemplateConstant, sourceBranch, targetBranch, mergeError)
	}
	return nil
}

func (reconciler *BranchReconciler) rebaseOnto(executionContext context.Context, options ReconcileOptions, rebasedBranch string, baseBranch string) error {
	if _, rebaseError := reconciler.executeGit(executionContext, options, gitRebaseSubcommandConstant, baseBranch); rebaseError != nil {
		return fmt.Errorf(rebaseFailureTemplateConstant, rebasedBranch, baseBranch, rebaseError)
	}
	return nil
}

// pushWithSingleRetry handles the common race of a concurrent push with exactly one
// rebase-pull-then-retry; a second rejection surfaces as ErrPushRetryExhausted.
func (reconciler *BranchReconciler) pushWithSingleRetry(executionContext context.Context, options ReconcileOptions, branchName string) error {
	_, firstPushError := reconciler.executeGit(executionContext, options, gitPushSubcommandConstant, options.RemoteName, branchName)
	if firstPushError == nil {
		return nil
	}

	commandFailure := execshell.CommandFailedError{}
	if !errors.As(firstPushError, &commandFailure) {
		return fmt.Errorf(pushFailureTemplateConstant, branchName, firstPushError)
	}

	reconciler.logger.Info(pushRetryMessageConstant, zap.String(logFieldBranchConstant, branchName))

	if pullError := reconciler.pullRebase(executionContext, options, branchName); pullError != nil {
		return pullError
	}

	if _, retryPushError := reconciler.executeGit(executionContext, options, gitPushSubcommandConstant, options.RemoteName, branchName); retryPushError != nil {
		return fmt.Errorf(pushFailureTemplateConstant, branchName, ErrPushRetryExhausted)
	}

	return nil
}

func (reconciler *BranchReconciler) executeGit(executionContext context.Context, options ReconcileOptions, arguments ...string) (execshell.ExecutionResult, error) {
	environment := map[string]string{gitTerminalPromptEnvironmentName: gitTerminalPromptDisableValue}
	for environmentKey, environmentValue := range options.EnvironmentVariables {
		environment[environmentKey] = environmentValue
	}

	return reconciler.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     options.RepositoryPath,
		EnvironmentVariables: environment,
	})
}
