package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/TeamTriforceUK/triforce-robot/internal/arming"
	"github.com/TeamTriforceUK/triforce-robot/internal/command"
	"github.com/TeamTriforceUK/triforce-robot/internal/config"
	"github.com/TeamTriforceUK/triforce-robot/internal/esc"
	"github.com/TeamTriforceUK/triforce-robot/internal/failsafe"
	"github.com/TeamTriforceUK/triforce-robot/internal/intent"
	"github.com/TeamTriforceUK/triforce-robot/internal/leds"
	"github.com/TeamTriforceUK/triforce-robot/internal/orientation"
	"github.com/TeamTriforceUK/triforce-robot/internal/receiver"
	"github.com/TeamTriforceUK/triforce-robot/internal/telemetry"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./robot.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("triforce-robot starting")

	// The arming machine boots Disarmed and owns every transition from
	// here on.
	machine := arming.NewMachine()
	if err := machine.Start(ctx); err != nil {
		log.Fatalf("arming machine start failed: %v", err)
	}
	defer machine.Close()

	// Receiver input path.
	var src receiver.Source = receiver.NeutralSource{}
	if cfg.Receiver.GPIOChip != "" {
		gpioSrc, err := receiver.OpenGPIOSource(cfg.Receiver.GPIOChip, cfg.Receiver.PinArray())
		if err != nil {
			log.Fatalf("receiver gpio init failed: %v", err)
		}
		defer gpioSrc.Close()
		src = gpioSrc
	} else {
		log.Printf("receiver: no gpio chip configured, using neutral bench source")
	}

	limits := receiver.NewLimitStore()
	var maps [receiver.NumControllers]receiver.ChannelMap
	maps[receiver.ControllerWeapon] = cfg.Receiver.Weapon
	maps[receiver.ControllerDrive] = cfg.Receiver.Drive

	monitor := receiver.NewMonitor(receiver.MonitorConfig{
		Poll:         cfg.Receiver.Poll,
		StallTimeout: cfg.Receiver.StallTimeout,
		Maps:         maps,
	}, src, limits)
	if err := monitor.Start(ctx); err != nil {
		log.Fatalf("receiver monitor start failed: %v", err)
	}
	defer monitor.Close()

	calibrator := receiver.NewCalibrator(receiver.CalibratorConfig{
		Duration: cfg.Calibration.Duration,
		Interval: cfg.Calibration.Interval,
	}, src, limits)
	if cfg.Calibration.RunAtBoot {
		go func() {
			if err := calibrator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("calibration: %v", err)
			}
		}()
	}

	// Safety path: stall-driven de-escalation and switch-driven intent.
	super := failsafe.New(failsafe.Config{Period: cfg.Failsafe.Period}, monitor, machine)
	if err := super.Start(ctx); err != nil {
		log.Fatalf("failsafe start failed: %v", err)
	}
	defer super.Close()

	evaluator := intent.New(intent.Config{
		Period:         cfg.Intent.Period,
		SwitchMidpoint: cfg.Intent.SwitchMidpoint,
		Weapon:         cfg.Receiver.Weapon,
		Drive:          cfg.Receiver.Drive,
	}, monitor, machine)
	if err := evaluator.Start(ctx); err != nil {
		log.Fatalf("intent evaluator start failed: %v", err)
	}
	defer evaluator.Close()

	// Orientation is optional; the robot fights fine without it.
	orient := orientation.New(orientation.Config{
		Enable: cfg.Orientation.Enable,
		I2CBus: cfg.Orientation.I2CBus,
		Addr:   uint16(cfg.Orientation.Addr),
		Period: cfg.Orientation.Period,
	})
	if err := orient.Start(ctx); err != nil {
		log.Printf("orientation init failed: %v", err)
	}
	defer orient.Close()

	// Actuator path.
	drive, weapon := openESCs(cfg.ESC)
	dispatcher := esc.NewDispatcher(esc.Config{
		Period: cfg.ESC.Period,
		Drive:  cfg.Receiver.Drive,
		Weapon: cfg.Receiver.Weapon,
	}, monitor, machine, drive, weapon)
	if err := dispatcher.Start(ctx); err != nil {
		log.Fatalf("esc dispatcher start failed: %v", err)
	}
	defer dispatcher.Close()

	// Status surfaces.
	var bank leds.Driver = leds.Noop{}
	if cfg.LEDs.Enable {
		var offsets [leds.NumLEDs]int
		copy(offsets[:], cfg.LEDs.Lines)
		b, err := leds.OpenGPIOBank(cfg.LEDs.Chip, offsets)
		if err != nil {
			log.Printf("leds init failed: %v", err)
		} else {
			bank = b
		}
	}
	ledSvc := leds.New(leds.Config{Enable: cfg.LEDs.Enable, Period: cfg.LEDs.Period}, machine, bank)
	if err := ledSvc.Start(ctx); err != nil {
		log.Printf("leds start failed: %v", err)
	}
	defer ledSvc.Close()

	telemetrySvc := telemetry.New(telemetry.Config{
		Enable: cfg.Telemetry.Enable,
		Period: cfg.Telemetry.Period,
	}, orient, machine, openTelemetrySink(cfg.Telemetry))
	if err := telemetrySvc.Start(ctx); err != nil {
		log.Printf("telemetry start failed: %v", err)
	}
	defer telemetrySvc.Close()

	if cfg.Console.Enable {
		console := command.NewConsole(command.ConsoleConfig{
			Device: cfg.Console.Device,
			Baud:   cfg.Console.Baud,
		}, command.NewDispatcher(machine, orient))
		if err := console.Start(ctx); err != nil {
			log.Printf("console init failed: %v", err)
		} else {
			defer console.Close()
		}
	}

	<-ctx.Done()
	log.Printf("triforce-robot stopping")
}

// openESCs opens the six PWM outputs, or noop drivers when output is
// disabled (bench work, or platforms without sysfs PWM).
func openESCs(cfg config.ESCConfig) (drive, weapon [3]esc.Driver) {
	for i := range drive {
		drive[i] = esc.Noop{}
		weapon[i] = esc.Noop{}
	}
	if !cfg.Enable {
		return drive, weapon
	}
	for i := 0; i < 3; i++ {
		d, err := esc.OpenPWM(cfg.Chip, cfg.DriveChannels[i])
		if err != nil {
			log.Fatalf("esc drive %d init failed: %v", i+1, err)
		}
		drive[i] = d
		w, err := esc.OpenPWM(cfg.Chip, cfg.WeaponChannels[i])
		if err != nil {
			log.Fatalf("esc weapon %d init failed: %v", i+1, err)
		}
		weapon[i] = w
	}
	return drive, weapon
}

func openTelemetrySink(cfg config.TelemetryConfig) telemetry.Sink {
	if !cfg.Enable {
		return nil
	}
	var (
		sink telemetry.Sink
		err  error
	)
	switch cfg.Sink {
	case "udp":
		sink, err = telemetry.NewUDPSink(cfg.Dest)
	default:
		sink, err = telemetry.NewSerialSink(cfg.Device, cfg.Baud)
	}
	if err != nil {
		log.Printf("telemetry sink init failed: %v", err)
		return nil
	}
	return sink
}
