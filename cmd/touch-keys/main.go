// Command touch-keys senses capacitive touch pads on GPIO lines and publishes
// key-down/key-up events to MQTT and, optionally, NATS.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/touch-keys/internal/capsense"
	"github.com/sweeney/touch-keys/internal/keys"
	"github.com/sweeney/touch-keys/internal/mqtt"
	"github.com/sweeney/touch-keys/internal/natsbus"
	"github.com/sweeney/touch-keys/internal/sense"
	"github.com/sweeney/touch-keys/internal/status"
	"github.com/sweeney/touch-keys/internal/web"
)

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("touch-keys"),
		kong.Description("Capacitive touch keys over GPIO"),
		kong.UsageOnError(),
		kong.Configuration(kongyaml.Loader, configPaths(findUserConfig(os.Args[1:]))...),
	)

	if err := setupLogging(cli.LogLevel, cli.LogFormat); err != nil {
		ctx.FatalIfErrorf(err)
	}
	if err := run(&cli); err != nil {
		log.WithError(err).Fatal("fatal")
	}
}

func run(cli *CLI) error {
	src, err := sense.NewRealSource(cli.Chip, cli.Pins, cli.Step, cli.Discharge)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.WithError(err).Warn("close gpio")
		}
	}()

	var source capsense.Source = src
	if cli.AutoDischarge {
		source = sense.NewAutoDischarge(src)
	}

	engine, err := capsense.NewEngine(cli.Params(), source, cli.Pins)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	names := keys.Names(engine.Len(), cli.Keys)

	// Every pad starts uncalibrated; calibrate before anything reads state.
	engine.Calibrate()

	if cli.PrintState {
		engine.Tick()
		printState(os.Stdout, engine.Channels(), names)
		return nil
	}

	var led sense.LED
	if cli.LEDPin >= 0 {
		l, err := sense.NewRealLED(cli.Chip, cli.LEDPin)
		if err != nil {
			return fmt.Errorf("init led: %w", err)
		}
		defer l.Close()
		led = l
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Config{Broker: cli.Broker, Name: cli.Name})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	registry := keys.NewRegistry(publisher)
	if cli.NATSURL != "" {
		nb, err := natsbus.Connect(natsbus.Options{URL: cli.NATSURL, Name: cli.Name})
		if err != nil {
			return fmt.Errorf("init nats: %w", err)
		}
		defer nb.Close()
		registry.AddSink(nb)
	}
	logKeys(registry, engine.Len())

	tracker := status.NewTracker(time.Now(), status.Config{
		Name:        cli.Name,
		Keys:        names,
		TickMs:      cli.Tick.Milliseconds(),
		HeartbeatMs: cli.Heartbeat.Milliseconds(),
		Broker:      cli.Broker,
		NATSURL:     cli.NATSURL,
		HTTPAddr:    cli.HTTP,
		Params:      engine.Params(),
	})
	tracker.Update(engine.Channels(), 0, keys.Counts{})
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.WithError(err).Warn("failed to publish startup event")
	} else {
		log.Info("published startup event")
	}

	recal := make(chan int, capsense.MaxChannels)
	if cli.HTTP != "" {
		srv := web.New(cli.HTTP, tracker, recal)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.WithField("addr", cli.HTTP).Info("http status server listening")
	}

	log.WithFields(log.Fields{
		"pins":      cli.Pins,
		"keys":      names,
		"tick":      cli.Tick,
		"broker":    cli.Broker,
		"heartbeat": cli.Heartbeat,
	}).Info("started")

	ticker := time.NewTicker(cli.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(deps{
		engine:     engine,
		decoder:    keys.NewDecoder(names, time.Now()),
		registry:   registry,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		led:        led,
		readErrors: src.Errors,
		recal:      recal,
		heartbeat:  cli.Heartbeat,
		now:        time.Now,
	}, ticker.C, sigCh)
}

// deps are the collaborators of runLoop. Optional ones may be nil.
type deps struct {
	engine     *capsense.Engine
	decoder    *keys.Decoder
	registry   *keys.Registry
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	led        sense.LED
	readErrors func() uint64
	recal      <-chan int
	heartbeat  time.Duration
	now        func() time.Time
}

func runLoop(d deps, tick <-chan time.Time, sig <-chan os.Signal) error {
	ledOn := false

	for {
		select {
		case s := <-sig:
			log.WithField("signal", s).Info("shutting down")
			reason := signalName(s)
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    reason,
				Retained:  true,
			}
			if d.tracker != nil {
				d.refreshStatus()
				event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", reason)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.WithError(err).Warn("failed to publish shutdown event")
			} else {
				log.Info("published shutdown event")
			}
			if d.led != nil && ledOn {
				if err := d.led.Set(false); err != nil {
					log.WithError(err).Debug("led off")
				}
			}
			return nil

		case ch := <-d.recal:
			log.WithField("channel", ch).Info("recalibration requested")
			d.engine.Recalibrate(ch)

		case <-tick:
			t := d.now()
			bm := d.engine.Tick()

			events := d.decoder.Process(bm, t)
			if err := d.registry.Dispatch(events); err != nil {
				// Sinks already logged; keep sensing.
				log.WithError(err).Debug("dispatch")
			}

			if d.led != nil && ledOn != (bm != 0) {
				if err := d.led.Set(bm != 0); err != nil {
					log.WithError(err).Warn("led")
				} else {
					ledOn = bm != 0
				}
			}

			if d.tracker != nil {
				d.tracker.Update(d.engine.Channels(), bm, d.decoder.Counts())
				d.refreshStatus()
			}

			if hb := d.decoder.CheckHeartbeat(t, d.heartbeat); hb != nil {
				log.WithFields(log.Fields{
					"uptime":   hb.Uptime,
					"key_down": hb.Counts.Down,
					"key_up":   hb.Counts.Up,
				}).Info("heartbeat")

				event := mqtt.SystemEvent{Timestamp: hb.Timestamp, Event: "HEARTBEAT"}
				if d.tracker != nil {
					event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := d.publisher.PublishSystem(event); err != nil {
					log.WithError(err).Warn("heartbeat publish error")
				}
			}
		}
	}
}

func (d deps) refreshStatus() {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	if d.readErrors != nil {
		d.tracker.SetSourceErrors(d.readErrors())
	}
}

// logKeys registers a logging handler for both transitions of every channel.
func logKeys(r *keys.Registry, n int) {
	h := func(e keys.Event) {
		log.WithFields(log.Fields{"key": e.Key, "channel": e.Channel}).Info(string(e.Type))
	}
	for i := 0; i < n; i++ {
		r.OnDown(i, h)
		r.OnUp(i, h)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func printState(w io.Writer, channels []capsense.ChannelInfo, names []string) {
	for _, ch := range channels {
		state := "released"
		if ch.Pressed {
			state = "PRESSED"
		}
		fmt.Fprintf(w, "%-8s pin=%-3d low=%-3d high=%-3d low_sum=%-3d high_sum=%-3d %s",
			names[ch.Index], ch.Pin, ch.Low, ch.High, ch.LowSum, ch.HighSum, state)
		if ch.Degenerate() {
			fmt.Fprint(w, " (degenerate)")
		}
		fmt.Fprintln(w)
	}
}
