// Package telemetry samples robot state once a second and streams it as
// "NAME value" records, one per carriage-return-delimited line, to the
// ESP serial link or a UDP destination.
package telemetry

import (
	"fmt"
	"io"
	"net"

	"github.com/tarm/serial"
)

// Sink delivers one encoded telemetry frame.
type Sink interface {
	Send(payload []byte) error
	Close() error
}

// Test seam.
var openSerialFn = openSerialPort

func openSerialPort(device string, baud int) (io.ReadWriteCloser, error) {
	return serial.OpenPort(&serial.Config{Name: device, Baud: baud})
}

// SerialSink writes frames to the ESP-side serial port.
type SerialSink struct {
	port io.ReadWriteCloser
}

func NewSerialSink(device string, baud int) (*SerialSink, error) {
	if baud <= 0 {
		baud = 115200
	}
	port, err := openSerialFn(device, baud)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", device, err)
	}
	return &SerialSink{port: port}, nil
}

func (s *SerialSink) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := s.port.Write(payload)
	return err
}

func (s *SerialSink) Close() error {
	if s == nil || s.port == nil {
		return nil
	}
	return s.port.Close()
}

// UDPSink sends frames to a fixed host:port.
type UDPSink struct {
	dest string
	conn *net.UDPConn
}

func NewUDPSink(dest string) (*UDPSink, error) {
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: dial udp: %w", err)
	}
	return &UDPSink{dest: dest, conn: conn}, nil
}

func (s *UDPSink) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := s.conn.Write(payload)
	return err
}

func (s *UDPSink) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
