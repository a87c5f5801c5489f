package outbound

// Reporter prints human-readable progress. Output is not machine-parsed.
type Reporter interface {
	// Stepf announces a workflow state transition.
	Stepf(format string, args ...any)
	Infof(format string, args ...any)
	Successf(format string, args ...any)
}
