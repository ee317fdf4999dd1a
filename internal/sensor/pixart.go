package sensor

import (
	"fmt"
	"time"

	"github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"
	"github.com/FutilityDesigns/Glyph-Reader/internal/timeutil"
)

// Pixart IR camera wire protocol constants. The camera tracks up to four IR
// blobs in a 1024x768 field at roughly 100Hz and reports them in one
// 16-byte frame read from the frame-data register.
const (
	// DefaultAddr is the 7-bit I2C address of the camera.
	DefaultAddr = 0x58

	// RegFrameData is the frame data start register.
	RegFrameData = 0x36

	// FrameSize is one header byte plus four 3-byte blob records.
	FrameSize = 16

	// BlobCount is the number of blob slots per frame.
	BlobCount = 4

	blobRecordSize = 3

	// invalidCoord marks an empty blob slot: both axes read 0x3FF.
	invalidCoord = 0x3FF
)

// initStep is one register write of the fixed camera bring-up sequence.
type initStep struct {
	reg, value byte
}

// initSequence configures the camera for IR blob tracking. Writes must be
// spaced at least 10ms apart.
var initSequence = []initStep{
	{0x30, 0x01}, // reset
	{0x30, 0x08}, // mode select
	{0x06, 0x90}, // sensitivity
	{0x08, 0xC0}, // gain
	{0x1A, 0x40}, // exposure
	{0x33, 0x33}, // blob tracking mode
}

const initStepGap = 10 * time.Millisecond

// Blob is one decoded blob record.
type Blob struct {
	X, Y int
	Size int
}

// Valid reports whether the blob slot held a detection.
func (b Blob) Valid() bool {
	return b.X != invalidCoord && b.Y != invalidCoord
}

// ParseFrame decodes all four blob records from a 16-byte frame. Each record
// packs a 10-bit X and 10-bit Y plus a 4-bit size:
//
//	x = ((ss & 0x30) << 4) | xx
//	y = ((ss & 0xC0) << 2) | yy
//	size = ss & 0x0F
func ParseFrame(frame []byte) ([BlobCount]Blob, error) {
	var blobs [BlobCount]Blob
	if len(frame) != FrameSize {
		return blobs, fmt.Errorf("invalid frame size: expected %d, got %d", FrameSize, len(frame))
	}
	for i := 0; i < BlobCount; i++ {
		off := 1 + i*blobRecordSize // skip the header byte
		xx := frame[off]
		yy := frame[off+1]
		ss := frame[off+2]
		blobs[i] = Blob{
			X:    int(ss&0x30)<<4 | int(xx),
			Y:    int(ss&0xC0)<<2 | int(yy),
			Size: int(ss & 0x0F),
		}
	}
	return blobs, nil
}

// FirstValidPoint returns the first valid blob's coordinates. Only one wand
// is tracked; subsequent blobs are ignored.
func FirstValidPoint(blobs [BlobCount]Blob) (x, y int, ok bool) {
	for _, b := range blobs {
		if b.Valid() {
			return b.X, b.Y, true
		}
	}
	return 0, 0, false
}

// EncodeFrame builds a frame containing the given blobs, padding remaining
// slots with the invalid marker. Used by mocks and tests.
func EncodeFrame(blobs ...Blob) []byte {
	frame := make([]byte, FrameSize)
	for i := 0; i < BlobCount; i++ {
		off := 1 + i*blobRecordSize
		b := Blob{X: invalidCoord, Y: invalidCoord}
		if i < len(blobs) {
			b = blobs[i]
		}
		frame[off] = byte(b.X & 0xFF)
		frame[off+1] = byte(b.Y & 0xFF)
		frame[off+2] = byte((b.X>>4)&0x30) | byte((b.Y>>2)&0xC0) | byte(b.Size&0x0F)
	}
	return frame
}

// Source is a frame source the engine polls. ReadPoint never blocks the
// sensor loop: transient errors are swallowed (logged at debug level) and
// surface only as "no point" for that frame.
type Source interface {
	// Init brings the device up. Failure is retried by the engine with
	// backoff.
	Init() error

	// ReadPoint returns the first valid IR point of the current frame.
	ReadPoint() (x, y int, ok bool)

	Close() error
}

// Camera drives a physical Pixart camera over a Bus.
type Camera struct {
	bus   Bus
	clock timeutil.Clock
}

// NewCamera returns a camera driver over the given bus.
func NewCamera(bus Bus, clock timeutil.Clock) *Camera {
	return &Camera{bus: bus, clock: clock}
}

// Init probes the device and sends the six-step configuration sequence with
// the required gap between writes.
func (c *Camera) Init() error {
	if err := c.bus.Probe(); err != nil {
		return fmt.Errorf("camera not found: %w", err)
	}
	for i, step := range initSequence {
		if err := c.bus.WriteRegister(step.reg, step.value); err != nil {
			return fmt.Errorf("init step %d (0x%02X=0x%02X): %w", i+1, step.reg, step.value, err)
		}
		c.clock.Sleep(initStepGap)
	}
	monitoring.Logf("camera initialized")
	return nil
}

// ReadPoint reads one frame and returns the first valid blob. Bus errors and
// short reads are dropped silently so the 100Hz loop keeps its cadence.
func (c *Camera) ReadPoint() (int, int, bool) {
	var frame [FrameSize]byte
	n, err := c.bus.ReadRegisters(RegFrameData, frame[:])
	if err != nil {
		monitoring.Debugf("frame read error: %v", err)
		return 0, 0, false
	}
	if n != FrameSize {
		monitoring.Debugf("short frame read: %d bytes", n)
		return 0, 0, false
	}
	blobs, err := ParseFrame(frame[:])
	if err != nil {
		return 0, 0, false
	}
	return FirstValidPoint(blobs)
}

func (c *Camera) Close() error {
	return c.bus.Close()
}
