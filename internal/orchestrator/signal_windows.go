//go:build windows

package orchestrator

import "syscall"

// Windows has no process-group signal semantics comparable to killpg.
// CTRL_BREAK reaches the child's console process group; a forced kill
// terminates only the direct child, so grandchildren of a stubborn service
// may survive. Known platform limitation.

var (
	kernel32                     = syscall.NewLazyDLL("kernel32.dll")
	procGenerateConsoleCtrlEvent = kernel32.NewProc("GenerateConsoleCtrlEvent")
	procOpenProcess              = kernel32.NewProc("OpenProcess")
	procTerminateProcess         = kernel32.NewProc("TerminateProcess")
	procCloseHandle              = kernel32.NewProc("CloseHandle")
)

const (
	ctrlBreakEvent   = 1
	processTerminate = 0x0001
)

func interruptGroup(pid int) error {
	ret, _, err := procGenerateConsoleCtrlEvent.Call(uintptr(ctrlBreakEvent), uintptr(uint32(pid)))
	if ret == 0 {
		return err
	}
	return nil
}

func killGroup(pid int) error {
	if pid <= 0 {
		return nil
	}
	handle, _, err := procOpenProcess.Call(uintptr(processTerminate), 0, uintptr(uint32(pid)))
	if handle == 0 {
		// Unable to open the process: it is most likely already gone,
		// which the stop protocol treats as success.
		_ = err
		return nil
	}
	defer func() { _, _, _ = procCloseHandle.Call(handle) }()
	ret, _, err := procTerminateProcess.Call(handle, uintptr(1))
	if ret == 0 {
		return err
	}
	return nil
}

func isGone(error) bool { return false }
