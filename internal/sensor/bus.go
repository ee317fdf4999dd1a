// Package sensor reads the Pixart IR blob-tracking camera: the I2C wire
// protocol, the 16-byte frame codec, the six-step init sequence, and
// alternative frame sources (mock, serial debug stream) for development.
package sensor

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Bus is the minimal register-level interface the camera driver needs.
// The abstraction enables unit testing without camera hardware, the same
// way the serial stack hides behind an interface elsewhere in the tree.
type Bus interface {
	// WriteRegister writes one byte to a device register.
	WriteRegister(reg, value byte) error

	// ReadRegisters addresses reg and reads len(buf) bytes into buf,
	// returning the number of bytes actually read.
	ReadRegisters(reg byte, buf []byte) (int, error)

	// Probe verifies the device acknowledges its address.
	Probe() error

	Close() error
}

// I2C_SLAVE selects the target address on a Linux i2c-dev file descriptor.
const i2cSlaveIoctl = 0x0703

// LinuxBus is a Bus over a /dev/i2c-N character device.
type LinuxBus struct {
	f    *os.File
	addr byte
}

// OpenLinuxBus opens the i2c-dev device and binds the 7-bit slave address.
func OpenLinuxBus(device string, addr byte) (*LinuxBus, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlaveIoctl, int(addr)); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to bind i2c address 0x%02X: %w", addr, err)
	}
	return &LinuxBus{f: f, addr: addr}, nil
}

func (b *LinuxBus) WriteRegister(reg, value byte) error {
	n, err := b.f.Write([]byte{reg, value})
	if err != nil {
		return fmt.Errorf("i2c write 0x%02X=0x%02X: %w", reg, value, err)
	}
	if n != 2 {
		return fmt.Errorf("i2c short write: %d of 2 bytes", n)
	}
	return nil
}

func (b *LinuxBus) ReadRegisters(reg byte, buf []byte) (int, error) {
	if _, err := b.f.Write([]byte{reg}); err != nil {
		return 0, fmt.Errorf("i2c address register 0x%02X: %w", reg, err)
	}
	n, err := b.f.Read(buf)
	if err != nil {
		return n, fmt.Errorf("i2c read: %w", err)
	}
	return n, nil
}

func (b *LinuxBus) Probe() error {
	// Reading the part ID register doubles as the presence check; it works
	// on every Pixart revision seen in the field.
	var id [1]byte
	if _, err := b.ReadRegisters(0x00, id[:]); err != nil {
		return fmt.Errorf("device not responding at 0x%02X: %w", b.addr, err)
	}
	return nil
}

func (b *LinuxBus) Close() error {
	return b.f.Close()
}
