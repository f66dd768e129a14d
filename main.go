package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"periph.io/x/conn/v3/physic"

	"wheel-service/wheel"
)

var (
	version     = pflag.Bool("version", false, "Print version info")
	help        = pflag.Bool("help", false, "Print help")
	logLevel    = pflag.Int("log", 3, "Log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	redisServer = pflag.String("redis_server", "127.0.0.1", "Redis server address (empty disables IPC)")
	redisPort   = pflag.Uint16("redis_port", 6379, "Redis server port")
	canDevice   = pflag.String("can_device", "can0", "CAN device name")
	telemetryID = pflag.Uint32("telemetry_id", wheel.DefaultTelemetryFrameID, "CAN identifier of ECU telemetry frames")
	commandID   = pflag.Uint32("command_id", wheel.DefaultCommandFrameID, "CAN identifier of wheel command frames")
	gpioChip    = pflag.String("gpio_chip", "gpiochip0", "GPIO chip carrying the buttons")
	debounce    = pflag.Duration("debounce", 20*time.Millisecond, "Button debounce period")
	mainSPI     = pflag.String("main_spi", "SPI0.0", "SPI port of the main pixel strip")
	auxSPI      = pflag.String("aux_spi", "SPI0.1", "SPI port of the aux pixel strip")
	spiFreq     = pflag.Int("spi_freq", 4000, "Pixel strip SPI clock in kHz")
	ledRate     = pflag.Int("led_rate", 60, "LED frame rate in Hz")

	pinUpshift   = pflag.Int("pin_upshift", 5, "GPIO line of the upshift paddle")
	pinDownshift = pflag.Int("pin_downshift", 6, "GPIO line of the downshift paddle")
	pinDRS       = pflag.Int("pin_drs", 13, "GPIO line of the DRS button")
	pinSettings  = pflag.Int("pin_settings", 19, "GPIO line of the settings button")
	pinAux1      = pflag.Int("pin_aux1", 26, "GPIO line of the first aux button")
	pinAux2      = pflag.Int("pin_aux2", 21, "GPIO line of the second aux button")
)

const (
	ProjectName    = "steering-wheel-service"
	ProjectVersion = "1.0.0"
)

func printVersion() {
	fmt.Printf("%s v%s\n", ProjectName, ProjectVersion)
}

func printHelp() {
	printVersion()
	pflag.PrintDefaults()
}

func optionsFromFlags() *Options {
	cfg := wheel.DefaultConfig()
	cfg.LEDRate = *ledRate
	cfg.TelemetryFrameID = *telemetryID
	cfg.CommandFrameID = *commandID

	return &Options{
		LogLevel:        LogLevel(*logLevel),
		RedisServerAddr: *redisServer,
		RedisServerPort: *redisPort,
		CANDevice:       *canDevice,
		GPIOChip:        *gpioChip,
		ButtonPins: [wheel.ButtonCount]int{
			wheel.ButtonUpshift:   *pinUpshift,
			wheel.ButtonDownshift: *pinDownshift,
			wheel.ButtonDRS:       *pinDRS,
			wheel.ButtonSettings:  *pinSettings,
			wheel.ButtonAux1:      *pinAux1,
			wheel.ButtonAux2:      *pinAux2,
		},
		Debounce:     *debounce,
		MainSPI:      *mainSPI,
		AuxSPI:       *auxSPI,
		SPIFrequency: physic.Frequency(*spiFreq) * physic.KiloHertz,
		Wheel:        cfg,
	}
}

func main() {
	pflag.Parse()

	if *version {
		printVersion()
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	opts := optionsFromFlags()
	logger := NewTerminalLogger(os.Stderr, opts.LogLevel)

	if err := opts.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}

	// Handle SIGINT and SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting %s v%s", ProjectName, ProjectVersion)

	app, err := NewWheelApp(ctx, opts, logger)
	if err != nil {
		logger.Fatalf("failed to create wheel app: %v", err)
	}

	runErr := app.Run(ctx)
	if err := app.Destroy(); err != nil {
		logger.Error("Shutdown: %v", err)
	}
	if runErr != nil {
		logger.Fatalf("%v", runErr)
	}
}
