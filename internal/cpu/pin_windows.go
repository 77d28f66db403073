//go:build windows

package cpu

import (
	"runtime"
	"syscall"
)

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

// Pin locks the calling goroutine to an OS thread and binds that thread to
// core workerID mod NumCPU via SetThreadAffinityMask. Failure leaves the
// worker unpinned.
func Pin(workerID int) func() {
	runtime.LockOSThread()

	core := workerID % runtime.NumCPU()
	handle, _, _ := getCurrentThread.Call()
	_, _, _ = setThreadAffinityMask.Call(handle, uintptr(1)<<core)

	return runtime.UnlockOSThread
}
