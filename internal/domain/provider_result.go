package domain

// ProviderResult is the totalized outcome of one C6 dispatch attempt
// (spec.md §4.6). Every exit path — success, timeout, open breaker, or any
// other transport/HTTP failure — produces one of these; adapters never
// return a bare Go error for an external-call failure.
type ProviderResult struct {
	Success bool
	Status  string // "SUCCESS", "TIMEOUT", "CIRCUIT_OPEN", "FAILED", or an upper-cased provider status label
	Payload Snapshot
}
