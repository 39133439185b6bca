package scm

import (
	"context"
)

// SCM is the narrow source-control interface the trigger engine needs: it
// resolves the commit a new event should build. Implementations are
// registered in the Registry keyed by scm context name.
type SCM interface {
	// Name returns the unique name of the SCM, e.g. "github:github.com".
	Name() string
	// GetCommitSHA returns the commit SHA at the head of the default branch
	// of the repository at scmURI, authenticating with token.
	GetCommitSHA(ctx context.Context, scmURI string, token string) (string, error)
}
