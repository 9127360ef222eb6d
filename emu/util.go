// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"context"
	"log/slog"
)

const (
	// LevelTrace sits above Info so that per-instruction tracing can be
	// enabled separately from the simulator's informational output.
	LevelTrace slog.Level = slog.LevelInfo + 1
)

// trace logs msg at LevelTrace on the emulator's logger if it is enabled.
func (e *Emulator) trace(msg string, args ...any) {
	ctx := context.Background()
	if !e.logger.Enabled(ctx, LevelTrace) {
		return
	}
	e.logger.Log(ctx, LevelTrace, msg, args...)
}
