package device

import (
	"fmt"
	"sync"
	"time"

	"orderscan-api/internal/scanner"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	readTimeout    = 500 * time.Millisecond
	reconnectDelay = 2 * time.Second
)

// SerialReader reads raw bytes from a serial barcode scanner and converts
// them to key events. Scanners in serial mode send the code's characters
// followed by CR or CRLF.
type SerialReader struct {
	portName string
	baudRate int
	handler  func(scanner.KeyEvent)
	logger   *zap.Logger
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSerialReader creates a reader for the given port. Events are delivered
// to handler on the reader's own goroutine.
func NewSerialReader(portName string, baudRate int, handler func(scanner.KeyEvent), logger *zap.Logger) *SerialReader {
	if baudRate <= 0 {
		baudRate = 9600
	}
	return &SerialReader{
		portName: portName,
		baudRate: baudRate,
		handler:  handler,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start opens the port and begins reading. The reader reconnects with a
// delay whenever the port drops, until Stop is called.
func (r *SerialReader) Start() {
	go r.run()
}

// Stop shuts the reader down and waits for the read loop to exit.
func (r *SerialReader) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *SerialReader) run() {
	defer close(r.done)

	for {
		select {
		case <-r.stop:
			return
		default:
		}

		port, err := r.open()
		if err != nil {
			r.logger.Warn("failed to open scanner port",
				zap.String("port", r.portName), zap.Error(err))
			if !r.sleep(reconnectDelay) {
				return
			}
			continue
		}

		r.logger.Info("scanner port opened",
			zap.String("port", r.portName), zap.Int("baud_rate", r.baudRate))

		err = r.readLoop(port)
		port.Close()

		if err == nil {
			// readLoop only returns nil when Stop was requested.
			return
		}

		r.logger.Warn("scanner port read failed, reconnecting",
			zap.String("port", r.portName), zap.Error(err))
		if !r.sleep(reconnectDelay) {
			return
		}
	}
}

func (r *SerialReader) open() (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: r.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(r.portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", r.portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return port, nil
}

func (r *SerialReader) readLoop(port serial.Port) error {
	buf := make([]byte, 64)
	for {
		select {
		case <-r.stop:
			return nil
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			// Read timeout elapsed with no data.
			continue
		}

		now := time.Now()
		for _, b := range buf[:n] {
			switch {
			case b == '\r' || b == '\n':
				r.handler(scanner.KeyEvent{Key: scanner.KeyEnter, Time: now})
			case b >= 0x20 && b < 0x7f:
				r.handler(scanner.KeyEvent{Rune: rune(b), Time: now})
			}
		}
	}
}

// sleep waits for d or until Stop, reporting whether the reader should
// keep running.
func (r *SerialReader) sleep(d time.Duration) bool {
	select {
	case <-r.stop:
		return false
	case <-time.After(d):
		return true
	}
}
