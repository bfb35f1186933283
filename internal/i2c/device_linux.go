//go:build linux

package i2c

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ioctlSlave is I2C_SLAVE from <linux/i2c-dev.h>.
const ioctlSlave = 0x0703

type device struct {
	fd int
}

// OpenDevice opens the character device read/write and binds addr with
// ioctl(I2C_SLAVE).
func OpenDevice(path string, addr uint16) (Transport, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	if err := unix.IoctlSetInt(fd, ioctlSlave, int(addr)); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("ioctl I2C_SLAVE", err)
	}
	return &device{fd: fd}, nil
}

func (d *device) Read(p []byte) (int, error) {
	n, err := unix.Read(d.fd, p)
	if err != nil {
		return 0, os.NewSyscallError("read", err)
	}
	return n, nil
}

func (d *device) Write(p []byte) (int, error) {
	n, err := unix.Write(d.fd, p)
	if err != nil {
		return 0, os.NewSyscallError("write", err)
	}
	return n, nil
}

func (d *device) Close() error {
	return unix.Close(d.fd)
}

func isRetryableErrno(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case unix.EAGAIN, unix.EBUSY, unix.ETIMEDOUT, unix.EREMOTEIO, unix.EINTR:
		return true
	}
	return false
}
