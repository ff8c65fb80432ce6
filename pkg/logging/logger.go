// Package logging provides the shared zap logger and helpers for keeping
// credentials out of log output.
package logging

import "go.uber.org/zap"

// New builds the application logger for the given environment.
// The "local" environment gets a human-readable development logger;
// everything else logs structured JSON at production levels.
func New(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
