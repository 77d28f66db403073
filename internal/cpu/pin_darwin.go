//go:build darwin

package cpu

import "runtime"

// Pin locks the calling goroutine to an OS thread. macOS exposes no thread
// affinity API, so the thread is not bound to a core.
func Pin(workerID int) func() {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
