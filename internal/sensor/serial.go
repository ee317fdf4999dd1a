package sensor

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"
)

// SerialSource decodes the camera's serial diagnostic stream so the engine
// can run at a desk without the I2C camera attached. A wand fitted with the
// diagnostic build prints one line per frame:
//
//	IR,<millis>,x0,y0,s0,x1,y1,s1,x2,y2,s2,x3,y3,s3
//
// with -1,-1,-1 for empty blob slots. A background reader keeps only the
// newest frame; ReadPoint never blocks the sensor loop.
type SerialSource struct {
	path string
	baud int

	mu     sync.Mutex
	port   serial.Port
	latest *[2]int
	fresh  bool
	closed bool
}

// NewSerialSource returns a source for the given serial device path.
func NewSerialSource(path string, baud int) *SerialSource {
	if baud == 0 {
		baud = 115200
	}
	return &SerialSource{path: path, baud: baud}
}

// Init opens the port and starts the line reader.
func (s *SerialSource) Init() error {
	port, err := serial.Open(s.path, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		return fmt.Errorf("failed to open serial source %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.port = port
	s.closed = false
	s.mu.Unlock()

	go s.readLines(port)
	return nil
}

func (s *SerialSource) readLines(port serial.Port) {
	scan := bufio.NewScanner(port)
	for scan.Scan() {
		point, ok, err := ParseIRLine(scan.Text())
		if err != nil {
			monitoring.Debugf("serial source: %v", err)
			continue
		}
		s.mu.Lock()
		if ok {
			p := point
			s.latest = &p
		} else {
			s.latest = nil
		}
		s.fresh = true
		s.mu.Unlock()
	}
	if err := scan.Err(); err != nil {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			monitoring.Logf("serial source reader stopped: %v", err)
		}
	}
}

// ReadPoint returns the newest frame once; between frames it reports no
// point, matching the camera's behaviour when polled faster than it updates.
func (s *SerialSource) ReadPoint() (int, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh || s.latest == nil {
		s.fresh = false
		return 0, 0, false
	}
	s.fresh = false
	return s.latest[0], s.latest[1], true
}

func (s *SerialSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}

// ParseIRLine decodes one diagnostic line into the first valid point.
// ok is false when every blob slot is empty. Non-IR lines return an error.
func ParseIRLine(line string) ([2]int, bool, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) < 2 || fields[0] != "IR" {
		return [2]int{}, false, fmt.Errorf("not an IR line: %q", line)
	}
	// fields[1] is the device millis counter; blobs follow in x,y,size triples.
	for i := 2; i+1 < len(fields); i += 3 {
		x, err := strconv.Atoi(fields[i])
		if err != nil {
			return [2]int{}, false, fmt.Errorf("bad IR line field %q: %w", fields[i], err)
		}
		y, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return [2]int{}, false, fmt.Errorf("bad IR line field %q: %w", fields[i+1], err)
		}
		if x >= 0 && y >= 0 {
			return [2]int{x, y}, true, nil
		}
	}
	return [2]int{}, false, nil
}
