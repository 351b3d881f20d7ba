// Package bno055 drives the Bosch BNO055 absolute-orientation sensor in
// its fused NDOF mode. The chip runs its own sensor fusion and hands us
// Euler angles directly.
package bno055

import (
	"fmt"
	"time"

	"github.com/TeamTriforceUK/triforce-robot/internal/i2c"
)

var sleep = time.Sleep

const (
	addrDefault = 0x28

	regChipID = 0x00
	chipIDVal = 0xA0

	regPageID = 0x07

	// Page 0.
	regAccDataXLSB  = 0x08
	regEulHeadLSB   = 0x1A // heading, roll, pitch; int16 LE, 16 LSB/deg
	regTemp         = 0x34
	regCalibStat    = 0x35
	regSysStatus    = 0x39
	regSysErr       = 0x3A
	regUnitSel      = 0x3B
	regOprMode      = 0x3D
	regPwrMode      = 0x3E
	regSysTrigger   = 0x3F
	oprModeConfig   = 0x00
	oprModeNDOF     = 0x0C
	pwrModeNormal   = 0x00
	sysStatusError  = 0x01
	eulerLSBPerDeg  = 16.0
	accelLSBPerMss  = 100.0
	modeSwitchDelay = 30 * time.Millisecond
)

// Euler is one fused attitude sample, degrees.
type Euler struct {
	Heading float64
	Roll    float64
	Pitch   float64
}

// Accel is one acceleration sample, m/s^2.
type Accel struct {
	X, Y, Z float64
}

type regIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

type Device struct {
	dev regIO
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("bno055: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev regIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("bno055: dev is nil")
	}
	d := &Device{dev: dev}

	id, err := d.dev.ReadRegU8(regChipID)
	if err != nil {
		return nil, fmt.Errorf("bno055: chip id read failed: %w", err)
	}
	if id != chipIDVal {
		return nil, fmt.Errorf("bno055: chip id=0x%02X want 0x%02X", id, chipIDVal)
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) init() error {
	if err := d.dev.WriteReg(regPageID, 0); err != nil {
		return fmt.Errorf("bno055: select page 0: %w", err)
	}
	// Mode changes only take in CONFIG mode.
	if err := d.dev.WriteReg(regOprMode, oprModeConfig); err != nil {
		return fmt.Errorf("bno055: enter config mode: %w", err)
	}
	sleep(modeSwitchDelay)
	if err := d.dev.WriteReg(regPwrMode, pwrModeNormal); err != nil {
		return fmt.Errorf("bno055: set power mode: %w", err)
	}
	// Degrees + m/s^2 (chip default, set explicitly).
	if err := d.dev.WriteReg(regUnitSel, 0x00); err != nil {
		return fmt.Errorf("bno055: set units: %w", err)
	}
	if err := d.dev.WriteReg(regOprMode, oprModeNDOF); err != nil {
		return fmt.Errorf("bno055: enter ndof mode: %w", err)
	}
	sleep(modeSwitchDelay)
	return nil
}

// Healthy reports whether the chip's own status registers are clean. An
// unhealthy sensor is a failsafe input, not an error: callers keep the
// previous pose.
func (d *Device) Healthy() (bool, error) {
	status, err := d.dev.ReadRegU8(regSysStatus)
	if err != nil {
		return false, err
	}
	if status == sysStatusError {
		return false, nil
	}
	sysErr, err := d.dev.ReadRegU8(regSysErr)
	if err != nil {
		return false, err
	}
	return sysErr == 0, nil
}

// Euler reads the fused heading/roll/pitch block.
func (d *Device) Euler() (Euler, error) {
	var raw [6]byte
	if err := d.dev.ReadReg(regEulHeadLSB, raw[:]); err != nil {
		return Euler{}, fmt.Errorf("bno055: euler read failed: %w", err)
	}
	return Euler{
		Heading: float64(int16(uint16(raw[0])|uint16(raw[1])<<8)) / eulerLSBPerDeg,
		Roll:    float64(int16(uint16(raw[2])|uint16(raw[3])<<8)) / eulerLSBPerDeg,
		Pitch:   float64(int16(uint16(raw[4])|uint16(raw[5])<<8)) / eulerLSBPerDeg,
	}, nil
}

// Accel reads the raw acceleration block.
func (d *Device) Accel() (Accel, error) {
	var raw [6]byte
	if err := d.dev.ReadReg(regAccDataXLSB, raw[:]); err != nil {
		return Accel{}, fmt.Errorf("bno055: accel read failed: %w", err)
	}
	return Accel{
		X: float64(int16(uint16(raw[0])|uint16(raw[1])<<8)) / accelLSBPerMss,
		Y: float64(int16(uint16(raw[2])|uint16(raw[3])<<8)) / accelLSBPerMss,
		Z: float64(int16(uint16(raw[4])|uint16(raw[5])<<8)) / accelLSBPerMss,
	}, nil
}

// Temperature reads the ambient temperature in degrees C.
func (d *Device) Temperature() (int, error) {
	t, err := d.dev.ReadRegU8(regTemp)
	if err != nil {
		return 0, fmt.Errorf("bno055: temp read failed: %w", err)
	}
	return int(int8(t)), nil
}

// CalibrationStatus returns the packed sys/gyro/accel/mag calibration
// levels (two bits each, 3 = fully calibrated).
func (d *Device) CalibrationStatus() (byte, error) {
	return d.dev.ReadRegU8(regCalibStat)
}
