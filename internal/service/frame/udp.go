package frame

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"

	"labelcam/internal/config"
	"labelcam/internal/logger"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// UDPSource listens for UDP packets from network cameras, reconstructs JPEG
// frames and keeps the most recent complete one.
type UDPSource struct {
	conn   *net.UDPConn
	names  map[string]string
	logger *logger.Logger

	mu     sync.Mutex
	latest *Frame
	done   chan struct{}
}

// ListenUDP binds the camera port and starts receiving. Failure to bind is a *DeviceAccessError.
func ListenUDP(cfg *config.Config, logger *logger.Logger) (*UDPSource, error) {
	port := strconv.Itoa(cfg.CamerasPort)

	addr, err := net.ResolveUDPAddr("udp", ":"+port)
	if err != nil {
		return nil, &DeviceAccessError{Device: "udp:" + port, Err: err}
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, &DeviceAccessError{Device: "udp:" + port, Err: err}
	}

	s := &UDPSource{
		conn:   conn,
		names:  cfg.CameraNames,
		logger: logger,
		done:   make(chan struct{}),
	}
	go s.receive()

	logger.Info("UDP camera source started on %s", conn.LocalAddr())
	return s, nil
}

// Addr returns the bound address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *UDPSource) receive() {
	defer close(s.done)

	buffer := make([]byte, 65535)
	cameraBuffers := make(map[string]*bytes.Buffer)

	for {
		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			// closed
			return
		}

		ip := remoteAddr.IP.String()
		cameraName, exists := s.names[ip]
		if !exists {
			cameraName = "unknown_" + ip
		}

		data := buffer[:n]
		imgBuffer, ok := cameraBuffers[cameraName]
		if !ok {
			imgBuffer = new(bytes.Buffer)
			cameraBuffers[cameraName] = imgBuffer
		}

		if bytes.HasPrefix(data, jpegHeader) {
			imgBuffer.Reset()
		}
		imgBuffer.Write(data)

		if bytes.HasSuffix(data, jpegFooter) {
			img, err := imaging.Decode(bytes.NewReader(imgBuffer.Bytes()))
			imgBuffer.Reset()
			if err != nil {
				s.logger.Warning("Dropping corrupt frame from %s: %v", cameraName, err)
				continue
			}

			s.mu.Lock()
			s.latest = newFrame(img, cameraName)
			s.mu.Unlock()
		}
	}
}

// Next returns the latest complete frame, or ErrNoFrame before the first one.
func (s *UDPSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, ErrNoFrame
	}
	return s.latest, nil
}

func (s *UDPSource) Close() error {
	err := s.conn.Close()
	<-s.done
	return err
}
