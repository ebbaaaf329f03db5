package infra

import (
	"log/slog"
	"runtime/debug"
)

// Recover logs a panic with its stack instead of letting the process die
// silently. Use at the top of main: defer infra.Recover().
func Recover() {
	if r := recover(); r != nil {
		slog.Error("Unrecovered panic",
			slog.Any("panic", r),
			slog.String("stack", string(debug.Stack())))
	}
}
