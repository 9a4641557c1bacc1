package daemon

import (
	"fmt"
	"os"
	"syscall"
)

// Lock is a single-instance guard backed by an exclusive, non-blocking
// flock on a pid file. A telescope daemon fighting itself over the same
// serial ports is exactly the failure this guard exists to prevent.
type Lock struct {
	file *os.File
}

// Acquire opens path (creating it if necessary) and takes an exclusive
// non-blocking flock, failing if another process already holds it.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("lock: open %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock: another instance holds %s", path)
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, err
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	return &Lock{file: f}, nil
}

// Release drops the flock and closes the pid file. Safe to call once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
