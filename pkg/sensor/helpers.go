package sensor

import (
	"io/fs"
	"syscall"

	"github.com/pkg/errors"
)

var (
	ErrDeviceNotFound   = errors.New("i2c device not found")
	ErrPermissionDenied = errors.New("i2c permission denied")
)

// DevicePath returns the i2c-dev node of a bus number, e.g. "1" -> /dev/i2c-1.
func DevicePath(bus string) string {
	return "/dev/i2c-" + bus
}

// classifyOpenError maps an open or bind failure onto one of the sentinels
// while keeping the cause in the message.
func classifyOpenError(what string, err error) error {
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return errors.Wrapf(ErrPermissionDenied, "%s: %v", what, err)
	}
	return errors.Wrapf(ErrDeviceNotFound, "%s: %v", what, err)
}
