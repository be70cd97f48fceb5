// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities (ParseLogLevel, ApplyLevel),
//   - convenience functions (Infof, ErrorKV, etc.).
//
// The coordinator, the hooks and every binary accept a context and extract the
// logger from it, so countdown cycles and hook runs log with their own scope.
package logger
