package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/FutilityDesigns/Glyph-Reader/internal/timeutil"
)

func TestParseFrameRoundTrip(t *testing.T) {
	cases := []Blob{
		{X: 0, Y: 0, Size: 0},
		{X: 512, Y: 384, Size: 5},
		{X: 1023, Y: 1022, Size: 15},
		{X: 300, Y: 700, Size: 1},
	}
	for _, want := range cases {
		frame := EncodeFrame(want)
		blobs, err := ParseFrame(frame)
		if err != nil {
			t.Fatalf("ParseFrame: %v", err)
		}
		if blobs[0] != want {
			t.Errorf("blob = %+v, want %+v", blobs[0], want)
		}
		for i := 1; i < BlobCount; i++ {
			if blobs[i].Valid() {
				t.Errorf("slot %d should be empty, got %+v", i, blobs[i])
			}
		}
	}
}

func TestParseFrameBadSize(t *testing.T) {
	if _, err := ParseFrame(make([]byte, 10)); err == nil {
		t.Error("expected error for short frame")
	}
}

func TestFirstValidPointSkipsEmptySlots(t *testing.T) {
	frame := EncodeFrame(
		Blob{X: invalidCoord, Y: invalidCoord},
		Blob{X: 100, Y: 200, Size: 3},
		Blob{X: 400, Y: 500, Size: 2},
	)
	blobs, err := ParseFrame(frame)
	if err != nil {
		t.Fatal(err)
	}
	x, y, ok := FirstValidPoint(blobs)
	if !ok || x != 100 || y != 200 {
		t.Errorf("FirstValidPoint = (%d,%d,%v), want (100,200,true)", x, y, ok)
	}
}

func TestFirstValidPointEmptyFrame(t *testing.T) {
	blobs, err := ParseFrame(EncodeFrame())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, ok := FirstValidPoint(blobs); ok {
		t.Error("empty frame should report no point")
	}
}

func TestCameraInitSequence(t *testing.T) {
	bus := &MockBus{Frames: [][]byte{EncodeFrame()}}
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	cam := NewCamera(bus, clock)

	if err := cam.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	want := [][2]byte{
		{0x30, 0x01}, {0x30, 0x08}, {0x06, 0x90},
		{0x08, 0xC0}, {0x1A, 0x40}, {0x33, 0x33},
	}
	if len(bus.Writes) != len(want) {
		t.Fatalf("writes = %v, want %v", bus.Writes, want)
	}
	for i := range want {
		if bus.Writes[i] != want[i] {
			t.Errorf("write %d = %v, want %v", i, bus.Writes[i], want[i])
		}
	}

	// Each step must be spaced at least 10ms apart.
	for i, d := range clock.Sleeps() {
		if d < 10*time.Millisecond {
			t.Errorf("sleep %d = %v, want >= 10ms", i, d)
		}
	}
}

func TestCameraInitProbeFailure(t *testing.T) {
	bus := &MockBus{ProbeError: errors.New("nack")}
	cam := NewCamera(bus, timeutil.NewMockClock(time.Unix(0, 0)))
	if err := cam.Init(); err == nil {
		t.Error("expected init failure when device does not acknowledge")
	}
	if len(bus.Writes) != 0 {
		t.Errorf("no registers should be written after probe failure, got %v", bus.Writes)
	}
}

func TestCameraReadPoint(t *testing.T) {
	bus := &MockBus{Frames: [][]byte{
		EncodeFrame(Blob{X: 512, Y: 300, Size: 4}),
		EncodeFrame(),
	}}
	cam := NewCamera(bus, timeutil.NewMockClock(time.Unix(0, 0)))

	x, y, ok := cam.ReadPoint()
	if !ok || x != 512 || y != 300 {
		t.Errorf("ReadPoint = (%d,%d,%v), want (512,300,true)", x, y, ok)
	}
	if _, _, ok := cam.ReadPoint(); ok {
		t.Error("empty frame should report no point")
	}
}

func TestCameraReadErrorsAreSilent(t *testing.T) {
	bus := &MockBus{ReadError: errors.New("bus fault")}
	cam := NewCamera(bus, timeutil.NewMockClock(time.Unix(0, 0)))
	if _, _, ok := cam.ReadPoint(); ok {
		t.Error("bus error must surface as no point")
	}

	bus = &MockBus{Frames: [][]byte{EncodeFrame(Blob{X: 1, Y: 1})}, ShortRead: true}
	cam = NewCamera(bus, timeutil.NewMockClock(time.Unix(0, 0)))
	if _, _, ok := cam.ReadPoint(); ok {
		t.Error("short read must surface as no point")
	}
}

func TestParseIRLine(t *testing.T) {
	cases := []struct {
		line string
		x, y int
		ok   bool
		err  bool
	}{
		{"IR,12345,512,300,4,-1,-1,-1,-1,-1,-1,-1,-1,-1", 512, 300, true, false},
		{"IR,12345,-1,-1,-1,200,100,2,-1,-1,-1,-1,-1,-1", 200, 100, true, false},
		{"IR,12345,-1,-1,-1,-1,-1,-1,-1,-1,-1,-1,-1,-1", 0, 0, false, false},
		{"SPELL: Ignite", 0, 0, false, true},
		{"IR,12345,abc,300,4", 0, 0, false, true},
	}
	for _, tc := range cases {
		p, ok, err := ParseIRLine(tc.line)
		if (err != nil) != tc.err {
			t.Errorf("%q: err = %v", tc.line, err)
			continue
		}
		if tc.err {
			continue
		}
		if ok != tc.ok || (ok && (p[0] != tc.x || p[1] != tc.y)) {
			t.Errorf("%q: got (%v,%v), want (%d,%d,%v)", tc.line, p, ok, tc.x, tc.y, tc.ok)
		}
	}
}

func TestMockSourceScript(t *testing.T) {
	src := NewMockSource([]*[2]int{{100, 200}, nil, {110, 210}})
	if x, y, ok := src.ReadPoint(); !ok || x != 100 || y != 200 {
		t.Errorf("frame 1 = (%d,%d,%v)", x, y, ok)
	}
	if _, _, ok := src.ReadPoint(); ok {
		t.Error("frame 2 should be empty")
	}
	if x, _, ok := src.ReadPoint(); !ok || x != 110 {
		t.Error("frame 3 mismatch")
	}
	if _, _, ok := src.ReadPoint(); ok {
		t.Error("exhausted script should report no point")
	}
}
