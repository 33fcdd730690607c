package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	stdio  bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMCPStdio serves the MCP tools on stdin/stdout instead of starting the
// HTTP server. Logs go to stderr.
func WithMCPStdio() Option {
	return func(a *application) {
		a.stdio = true
	}
}
