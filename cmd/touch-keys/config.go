package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/touch-keys/internal/capsense"
)

// CLI is the daemon configuration. Values come from flags, TOUCHKEYS_* env
// vars and YAML config files, in that order of precedence.
type CLI struct {
	Config string `help:"YAML config file (overrides the default search paths)" env:"TOUCHKEYS_CONFIG" placeholder:"PATH"`

	Name   string   `help:"Device name used in MQTT topics and NATS subjects" default:"touchpad" env:"TOUCHKEYS_NAME"`
	Chip   string   `help:"GPIO chip" default:"gpiochip0" env:"TOUCHKEYS_CHIP"`
	Pins   []int    `help:"GPIO line offsets, one per pad" default:"8,9,10,11" env:"TOUCHKEYS_PINS"`
	Keys   []string `help:"Key names, in pin order" default:"up,down,left,right" env:"TOUCHKEYS_KEYS"`
	LEDPin int      `name:"led-pin" help:"GPIO line for the activity LED (-1 disables)" default:"-1" env:"TOUCHKEYS_LED_PIN"`

	Tick          time.Duration `help:"Engine tick interval" default:"4ms" env:"TOUCHKEYS_TICK"`
	Step          time.Duration `help:"Charge time per threshold unit" default:"1us" env:"TOUCHKEYS_STEP"`
	Discharge     time.Duration `help:"Discharge hold time" default:"50us" env:"TOUCHKEYS_DISCHARGE"`
	AutoDischarge bool          `help:"Discharge all pads before re-reading a pad" default:"true" negatable:"" env:"TOUCHKEYS_AUTO_DISCHARGE"`

	Samples       int    `help:"Samples per sliding window" default:"32" env:"TOUCHKEYS_SAMPLES"`
	LowPercent    int    `help:"Calibration target for the low threshold, percent touched" default:"90" env:"TOUCHKEYS_LOW_PERCENT"`
	HighPercent   int    `help:"Calibration target for the high threshold, percent touched" default:"10" env:"TOUCHKEYS_HIGH_PERCENT"`
	PressMargin   uint8  `help:"Steps added above the high threshold" default:"3" env:"TOUCHKEYS_PRESS_MARGIN"`
	ReleaseMargin uint8  `help:"Steps removed below the low threshold" default:"0" env:"TOUCHKEYS_RELEASE_MARGIN"`
	Hysteresis    uint32 `help:"Consecutive release ticks before a key is released" default:"0" env:"TOUCHKEYS_HYSTERESIS"`
	MaxGrayzone   uint32 `name:"max-grayzone" help:"Gray-zone ticks before a pad is recalibrated" default:"2000" env:"TOUCHKEYS_MAX_GRAYZONE"`
	ProbeSteps    uint32 `help:"Coarse calibration step limit" default:"250" env:"TOUCHKEYS_PROBE_STEPS"`

	Broker    string        `help:"MQTT broker address" default:"tcp://localhost:1883" env:"TOUCHKEYS_BROKER"`
	NATSURL   string        `name:"nats-url" help:"NATS server URL (empty disables)" env:"TOUCHKEYS_NATS_URL"`
	HTTP      string        `help:"HTTP status address (empty disables)" default:":8080" env:"TOUCHKEYS_HTTP"`
	Heartbeat time.Duration `help:"Heartbeat interval (0 disables)" default:"15m" env:"TOUCHKEYS_HEARTBEAT"`

	LogLevel  string `help:"Log level" default:"info" enum:"trace,debug,info,warn,error" env:"TOUCHKEYS_LOG_LEVEL"`
	LogFormat string `help:"Log format" default:"text" enum:"text,json" env:"TOUCHKEYS_LOG_FORMAT"`

	PrintState bool `help:"Calibrate, sample once, print pad state and exit"`
}

// Params returns the engine parameters.
func (c *CLI) Params() capsense.Params {
	return capsense.Params{
		SamplesNum:        c.Samples,
		LowPercent:        c.LowPercent,
		HighPercent:       c.HighPercent,
		PressMargin:       c.PressMargin,
		ReleaseMargin:     c.ReleaseMargin,
		Hysteresis:        c.Hysteresis,
		MaxTimeInGrayzone: c.MaxGrayzone,
		MaxProbeSteps:     c.ProbeSteps,
	}
}

// Validate is called by kong after parsing.
func (c *CLI) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive")
	}
	if len(c.Keys) > len(c.Pins) {
		return fmt.Errorf("%d keys named for %d pins", len(c.Keys), len(c.Pins))
	}
	return nil
}

// findUserConfig returns the --config value from args or the environment.
// It runs before kong so the file can feed kong's own resolvers.
func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("TOUCHKEYS_CONFIG")
}

// configPaths returns the candidate YAML config files.
func configPaths(user string) []string {
	if user != "" {
		return []string{user}
	}
	paths := []string{"/etc/touch-keys.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "touch-keys", "config.yaml"))
	}
	return append(paths, "touch-keys.yaml")
}

func setupLogging(level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)

	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
