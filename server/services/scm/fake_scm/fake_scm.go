package fake_scm

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/conveyorci/conveyor/common/logger"
)

const FakeSCMName = "fake-scm"

// CommitSHACall records one GetCommitSHA call for test assertions. The token
// is recorded so tests can check the right admin credential was used.
type CommitSHACall struct {
	ScmURI string
	Token  string
}

// FakeSCM is a deterministic SCM implementation for tests and local
// development. The head commit for a repository is derived from its URI, so
// repeated lookups agree, and can be overridden per-repository.
type FakeSCM struct {
	logger.Log
	mutex    sync.Mutex
	headSHAs map[string]string
	callLog  []CommitSHACall
	failNext error
}

func New(logFactory logger.LogFactory) *FakeSCM {
	return &FakeSCM{
		Log:      logFactory("fake_scm"),
		headSHAs: make(map[string]string),
	}
}

func (s *FakeSCM) Name() string {
	return FakeSCMName
}

// GetCommitSHA returns the configured head commit for scmURI, or a
// deterministic SHA derived from the URI if none was set.
func (s *FakeSCM) GetCommitSHA(ctx context.Context, scmURI string, token string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.callLog = append(s.callLog, CommitSHACall{ScmURI: scmURI, Token: token})
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return "", err
	}
	if sha, ok := s.headSHAs[scmURI]; ok {
		return sha, nil
	}
	sha := deterministicSHA(scmURI)
	s.headSHAs[scmURI] = sha
	s.Tracef("Resolved head of %q to %s", scmURI, sha)
	return sha, nil
}

// SetHeadSHA overrides the head commit returned for a repository.
func (s *FakeSCM) SetHeadSHA(scmURI string, sha string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.headSHAs[scmURI] = sha
}

// FailNextCall makes the next GetCommitSHA call return err.
func (s *FakeSCM) FailNextCall(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failNext = err
}

// Calls returns a copy of the calls made so far.
func (s *FakeSCM) Calls() []CommitSHACall {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	calls := make([]CommitSHACall, len(s.callLog))
	copy(calls, s.callLog)
	return calls
}

// deterministicSHA derives a 40-char hex string from the repository URI.
func deterministicSHA(scmURI string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(scmURI))
	hex := strings.ReplaceAll(id.String(), "-", "")
	// a uuid yields 32 hex chars; repeat the front to reach git's 40
	return hex + hex[:8]
}
