// Package bmp decodes the 24-bit uncompressed BMP spell images on removable
// storage into the RGB565 format the round display consumes. Only the exact
// subset the device writes is supported: bottom-up rows of B,G,R triples
// padded to 4-byte boundaries.
package bmp

import (
	"encoding/binary"
	"fmt"
	"os"
)

const (
	headerSize   = 54
	signature    = 0x4D42 // "BM" little-endian
	bitsRGB24    = 24
	uncompressed = 0
)

// Image is a decoded spell image: top-down, row-major RGB565 pixels.
type Image struct {
	Width  int
	Height int
	Pixels []uint16
}

// DecodeFile reads and decodes a BMP from disk.
func DecodeFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode parses a 24-bit uncompressed BMP.
func Decode(data []byte) (*Image, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("file too small to be a valid BMP: %d bytes", len(data))
	}
	if sig := binary.LittleEndian.Uint16(data[0:2]); sig != signature {
		return nil, fmt.Errorf("not a BMP file: signature 0x%04X", sig)
	}

	dataOffset := binary.LittleEndian.Uint32(data[10:14])
	width := int(int32(binary.LittleEndian.Uint32(data[18:22])))
	height := int(int32(binary.LittleEndian.Uint32(data[22:26])))
	bitDepth := binary.LittleEndian.Uint16(data[28:30])
	compression := binary.LittleEndian.Uint32(data[30:34])

	if bitDepth != bitsRGB24 {
		return nil, fmt.Errorf("only 24-bit BMPs are supported, got %d-bit", bitDepth)
	}
	if compression != uncompressed {
		return nil, fmt.Errorf("only uncompressed BMPs are supported, got compression %d", compression)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("unsupported dimensions %dx%d", width, height)
	}

	// Each row is padded to a 4-byte boundary.
	rowSize := (width*3 + 3) &^ 3
	need := int(dataOffset) + rowSize*height
	if len(data) < need {
		return nil, fmt.Errorf("truncated pixel data: have %d bytes, need %d", len(data), need)
	}

	img := &Image{
		Width:  width,
		Height: height,
		Pixels: make([]uint16, width*height),
	}

	// Rows are stored bottom-up; walk them in reverse so the output is
	// top-down for the display.
	for y := 0; y < height; y++ {
		row := data[int(dataOffset)+(height-1-y)*rowSize:]
		for x := 0; x < width; x++ {
			b := row[x*3]
			g := row[x*3+1]
			r := row[x*3+2]
			img.Pixels[y*width+x] = RGB565(r, g, b)
		}
	}
	return img, nil
}

// RGB565 packs 8-bit channels into the display's 16-bit format.
func RGB565(r, g, b byte) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3
}

// At returns the pixel at (x, y) in display orientation.
func (img *Image) At(x, y int) uint16 {
	return img.Pixels[y*img.Width+x]
}
