// Package deploy implements the local deployment procedure for the CLI.
//
// It offers CommandBuilder for the Cobra command and Service for running the
// five-step sequence: prerequisite checks, credential resolution, branch
// reconciliation against the dev/master promotion model, and a provisioner
// apply against an ephemeral clone of the deploy branch.
package deploy
