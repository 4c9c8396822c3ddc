package ports

// Logger receives non-fatal diagnostics from the reconstruction core.
type Logger interface {
	Debug(message string)
	Warn(message string)
	Error(message string)
}
