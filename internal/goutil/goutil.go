// Package goutil carries small goroutine helpers shared by the long-running
// tasks.
package goutil

import (
	"log"
	"runtime/debug"
)

// SafeGo runs fn on a new goroutine and logs any panic with a stack trace
// before re-panicking. The terminal UI owns stdout, so without this a crash
// in a background task would vanish.
func SafeGo(logger *log.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("PANIC: %v\n%s", r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}
