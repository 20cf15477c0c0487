// Package gitrepo contains helpers for interrogating Git remote locations.
//
// It exposes structured parsing of remote URLs so the deploy executor can
// validate and log the repository it is about to clone.
package gitrepo
