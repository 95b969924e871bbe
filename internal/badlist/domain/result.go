package domain

// CheckResult is the verdict of a single screening call. The engine
// exposes no partial or uncertain outcome: anything it could not fully
// determine resolves to Rejected == false.
//
// No reason detail is carried on purpose, so that callers cannot leak
// blocklist contents to end users.
type CheckResult struct {
	Rejected bool `json:"rejected"`
}
