//go:build linux

package sensor

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/ericogr/mcp3021-reader/pkg/config"
)

// OpenFileHandle opens an i2c-dev node read-only and binds it to addr.
func OpenFileHandle(path string, addr config.Address) (*FileTransport, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, classifyOpenError("open "+path, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(addr)); err != nil {
		_ = f.Close()
		return nil, classifyOpenError("bind "+addr.String()+" on "+path, err)
	}
	return &FileTransport{f: f, addr: addr}, nil
}
