// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package errutil helps log and inspect oops errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level with its oops code and context, if any.
// Extra attrs are appended after the error fields.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	logAt(context.Background(), logger, slog.LevelError, msg, err, attrs)
}

// LogWarn is LogError at warn level, for failures the caller recovers from.
func LogWarn(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	logAt(ctx, logger, slog.LevelWarn, msg, err, attrs)
}

// Code returns the oops error code carried by err, or "" if there is none.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return ""
}

func logAt(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error, extra []any) {
	attrs := []any{"error", errorString(err)}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if errCtx := oopsErr.Context(); len(errCtx) > 0 {
			attrs = append(attrs, "context", errCtx)
		}
	}
	attrs = append(attrs, extra...)
	logger.Log(ctx, level, msg, attrs...)
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
