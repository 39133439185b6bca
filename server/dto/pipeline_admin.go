package dto

// PipelineAdmin is the principal the engine acts as when it needs to call
// the SCM on a pipeline's behalf. UnsealToken returns the admin's SCM token
// in the clear, scoped to a single call; the token must never be logged.
type PipelineAdmin struct {
	Username    string
	UnsealToken func() (string, error)
}
