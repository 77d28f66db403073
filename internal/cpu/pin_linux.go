//go:build linux

// Package cpu pins fetch workers to CPU cores. Pinning keeps a worker's
// dataset state warm in one core's cache during tight preprocessing loops;
// it is strictly optional and off by default.
package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Pin locks the calling goroutine to an OS thread and binds that thread to
// core workerID mod NumCPU. The returned func releases the thread and must
// be deferred by the worker.
func Pin(workerID int) func() {
	runtime.LockOSThread()

	core := workerID % runtime.NumCPU()
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(core)
	// 0 means the current thread. Failure is not fatal: the worker just
	// runs unpinned.
	_ = unix.SchedSetaffinity(0, &mask)

	return runtime.UnlockOSThread
}
