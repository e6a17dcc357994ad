package log

// Options configures NewLogger.
type Options struct {
	// Name is added as the logger name on every entry.
	Name string
	// Level is one of debug, info, warn, error.
	Level string
	// Format is json or console.
	Format        string
	EnableColor   bool
	DisableCaller bool
}

// NewOptions returns the defaults used in development.
func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "console",
		EnableColor: true,
	}
}
