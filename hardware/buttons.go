package hardware

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"

	"wheel-service/wheel"
)

const consumer = "steering-wheel"

var ErrNotOpen = errors.New("buttons not open")

// ButtonConfig maps each button to a line offset on one GPIO chip
type ButtonConfig struct {
	Chip     string
	Offsets  [wheel.ButtonCount]int
	Debounce time.Duration
}

// EdgeHandler receives debounced button edges. It is called from the GPIO
// event goroutine and must not block.
type EdgeHandler func(b wheel.Button, e wheel.Edge)

// buttonLine is the part of a requested GPIO line the buttons use
type buttonLine interface {
	Value() (int, error)
	Close() error
}

// GPIOButtons watches the wheel buttons. Lines are pulled up, so a pressed
// button reads 0 and pressing produces a falling edge.
type GPIOButtons struct {
	mu       sync.RWMutex
	cfg      ButtonConfig
	logger   wheel.Logger
	lines    map[wheel.Button]buttonLine
	byOffset map[int]wheel.Button
	onEdge   EdgeHandler
}

func NewGPIOButtons(cfg ButtonConfig, logger wheel.Logger) *GPIOButtons {
	byOffset := make(map[int]wheel.Button, wheel.ButtonCount)
	for _, b := range wheel.Buttons {
		byOffset[cfg.Offsets[b]] = b
	}
	return &GPIOButtons{
		cfg:      cfg,
		logger:   logger,
		lines:    make(map[wheel.Button]buttonLine),
		byOffset: byOffset,
	}
}

// Open requests every button line with kernel debouncing and starts
// delivering edges to onEdge.
func (g *GPIOButtons) Open(onEdge EdgeHandler) error {
	g.mu.Lock()
	g.onEdge = onEdge
	g.mu.Unlock()

	for _, b := range wheel.Buttons {
		offset := g.cfg.Offsets[b]
		line, err := gpiocdev.RequestLine(g.cfg.Chip, offset,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithDebounce(g.cfg.Debounce),
			gpiocdev.WithEventHandler(g.handleEvent),
			gpiocdev.WithConsumer(consumer))
		if err != nil {
			return multierr.Append(
				fmt.Errorf("failed to request %s button on %s line %d: %w", b, g.cfg.Chip, offset, err),
				g.Close())
		}

		g.mu.Lock()
		g.lines[b] = line
		g.mu.Unlock()
		g.logger.Info("Configured %s button: chip=%s, line=%d", b, g.cfg.Chip, offset)
	}

	return nil
}

func (g *GPIOButtons) handleEvent(evt gpiocdev.LineEvent) {
	g.mu.RLock()
	b, known := g.byOffset[evt.Offset]
	onEdge := g.onEdge
	g.mu.RUnlock()

	if !known {
		g.logger.Debug("Event on unmapped line %d", evt.Offset)
		return
	}
	edge, ok := edgeFor(evt.Type)
	if !ok {
		return
	}
	if onEdge != nil {
		onEdge(b, edge)
	}
}

func edgeFor(t gpiocdev.LineEventType) (wheel.Edge, bool) {
	switch t {
	case gpiocdev.LineEventFallingEdge:
		return wheel.EdgeFall, true
	case gpiocdev.LineEventRisingEdge:
		return wheel.EdgeRise, true
	default:
		return 0, false
	}
}

// Pressed reads the current level of a button
func (g *GPIOButtons) Pressed(b wheel.Button) (bool, error) {
	g.mu.RLock()
	line, ok := g.lines[b]
	g.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%s: %w", b, ErrNotOpen)
	}

	value, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read %s button: %w", b, err)
	}
	return value == 0, nil
}

// Close releases every line. Closing a line waits for its event handler to
// return, so the lines are closed without holding the lock.
func (g *GPIOButtons) Close() error {
	g.mu.Lock()
	lines := g.lines
	g.lines = make(map[wheel.Button]buttonLine)
	g.mu.Unlock()

	var err error
	for b, line := range lines {
		if cerr := line.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to release %s button: %w", b, cerr))
		}
	}
	return err
}
