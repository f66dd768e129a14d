package hardware

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"wheel-service/wheel"
)

const (
	startFrameSize = 4
	pixelSize      = 4
	headerMarker   = 0xE0
)

// transmitter is the part of spi.Conn the strip needs
type transmitter interface {
	Tx(w, r []byte) error
}

// SPIStrip drives a clocked pixel strip on a spidev port. Each pixel is sent
// as a header byte carrying the 5-bit global intensity followed by B, G, R.
type SPIStrip struct {
	mu     sync.Mutex
	name   string
	port   spi.PortCloser
	conn   transmitter
	count  int
	buf    []byte
	logger wheel.Logger
}

// OpenSPIStrip opens the named SPI port (e.g. "SPI0.0") for a strip of count
// pixels.
func OpenSPIStrip(name string, freq physic.Frequency, count int, logger wheel.Logger) (*SPIStrip, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", name, err)
	}

	conn, err := port.Connect(freq, spi.Mode0, 8)
	if err != nil {
		return nil, multierr.Append(
			fmt.Errorf("failed to connect to SPI port %s: %w", name, err),
			port.Close())
	}

	logger.Info("Opened %d pixel strip on %s at %s", count, name, freq)
	return newSPIStrip(name, port, conn, count, logger), nil
}

func newSPIStrip(name string, port spi.PortCloser, conn transmitter, count int, logger wheel.Logger) *SPIStrip {
	return &SPIStrip{
		name:   name,
		port:   port,
		conn:   conn,
		count:  count,
		buf:    make([]byte, frameSize(count)),
		logger: logger,
	}
}

// Write sends one full frame. Missing pixels are sent dark; extra pixels are
// dropped.
func (s *SPIStrip) Write(pixels []wheel.Pixel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(pixels) != s.count {
		s.logger.Debug("Strip %s expects %d pixels, got %d", s.name, s.count, len(pixels))
	}
	encodeFrame(s.buf, pixels, s.count)

	if err := s.conn.Tx(s.buf, nil); err != nil {
		return fmt.Errorf("failed to write strip %s: %w", s.name, err)
	}
	return nil
}

// Close blanks the strip and releases the port
func (s *SPIStrip) Close() error {
	var err error
	if werr := s.Write(nil); werr != nil {
		err = multierr.Append(err, werr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		err = multierr.Append(err, s.port.Close())
		s.port = nil
	}
	return err
}

// endFrameSize covers the half-clock-per-pixel delay of the data line, with
// at least 32 clock edges.
func endFrameSize(count int) int {
	n := (count + 15) / 16
	if n < 4 {
		n = 4
	}
	return n
}

func frameSize(count int) int {
	return startFrameSize + count*pixelSize + endFrameSize(count)
}

// encodeFrame fills buf with a start frame of zeros, count pixels and an end
// frame of ones.
func encodeFrame(buf []byte, pixels []wheel.Pixel, count int) {
	for i := 0; i < startFrameSize; i++ {
		buf[i] = 0
	}

	for i := 0; i < count; i++ {
		p := wheel.Off
		if i < len(pixels) {
			p = pixels[i]
		}
		// packed word is B,G,R,I from the low byte up
		w := p.Pack()
		o := startFrameSize + i*pixelSize
		buf[o] = headerMarker | byte(w>>24)>>3
		buf[o+1] = byte(w)
		buf[o+2] = byte(w >> 8)
		buf[o+3] = byte(w >> 16)
	}

	for i := startFrameSize + count*pixelSize; i < len(buf); i++ {
		buf[i] = 0xFF
	}
}
