// Package log exposes the logger accepted by the cupload SDK.
//
// The SDK is silent by default. To get the upload lifecycle logs (submitted
// batches, rejected files, failed uploads) plug your logger by implementing
// [Logger], for example over log/slog:
//
//	type slogLogger struct{ l *slog.Logger }
//
//	func (s slogLogger) Infof(format string, args ...any)  { s.l.Info(fmt.Sprintf(format, args...)) }
//	func (s slogLogger) Debugf(format string, args ...any) { s.l.Debug(fmt.Sprintf(format, args...)) }
//	// ... remaining methods
//
// Components tag their logs with an "svc" value (e.g. "upload.Orchestrator")
// and tasks with "task-id".
package log

import "github.com/slok/cupload/internal/log"

// Logger is the logger used by the SDK components.
type Logger = log.Logger

// Kv are structured logging values.
type Kv = log.Kv

// Noop discards every log, used when [lib.Config] has no logger.
var Noop = log.Noop
