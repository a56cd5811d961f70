package telemetry

import "go.uber.org/zap"

// NewLogger builds the process logger. Verbose enables debug-level output
// with caller annotations; otherwise the production configuration applies,
// info-level JSON on stderr.
func NewLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
