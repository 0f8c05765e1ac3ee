// Command ergo-tacho reads a pulse counter from an ergometer or trainer,
// derives RPM, speed and distance, tracks laps around a virtual course and
// publishes the results to an activity log, MQTT and an HTTP status page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/ergo-tacho/internal/activity"
	"github.com/sweeney/ergo-tacho/internal/config"
	"github.com/sweeney/ergo-tacho/internal/geo"
	"github.com/sweeney/ergo-tacho/internal/logic"
	"github.com/sweeney/ergo-tacho/internal/mqtt"
	"github.com/sweeney/ergo-tacho/internal/pulse"
	"github.com/sweeney/ergo-tacho/internal/status"
	"github.com/sweeney/ergo-tacho/internal/web"
)

func main() {
	cfg := config.Defaults()
	configPath := flag.String("config", "", "JSON config file (flags given on the command line override it)")
	printCount := flag.Bool("print-count", false, "Print the current pulse count and exit")
	bindFlags(flag.CommandLine, &cfg)

	flag.Parse()

	if *configPath != "" {
		if err := loadConfig(flag.CommandLine, *configPath, &cfg); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	if err := run(cfg, *printCount); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// bindFlags registers a flag for every config option, writing straight into cfg.
func bindFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.Float64Var(&cfg.SampleRateHz, "sample-rate", cfg.SampleRateHz, "Pulse source sample rate in Hz")
	fs.Float64Var(&cfg.RevsPerMetre, "revs-per-metre", cfg.RevsPerMetre, "Counted revolutions per metre travelled")
	fs.Float64Var(&cfg.SpeedPerRPM, "speed-per-rpm", cfg.SpeedPerRPM, "Speed units per RPM (12/900 gives kph for the kayak)")
	fs.IntVar(&cfg.HistorySize, "history", cfg.HistorySize, "Number of samples the rate is smoothed over")

	fs.StringVar(&cfg.Source, "source", cfg.Source, `Pulse source: "serial" or "gpio"`)
	fs.StringVar(&cfg.Device, "device", cfg.Device, "Serial device path")
	fs.StringVar(&cfg.Framing, "framing", cfg.Framing, `Serial framing: "binary" (uint32 LE + CRLF) or "text"`)
	fs.IntVar(&cfg.Port.BaudRate, "baud", cfg.Port.BaudRate, "Serial baud rate (0 for 9600)")
	fs.StringVar(&cfg.Port.Parity, "parity", cfg.Port.Parity, "Serial parity: N, E or O")
	fs.DurationVar((*time.Duration)(&cfg.ReadTimeout), "read-timeout", time.Duration(cfg.ReadTimeout), "Serial read timeout")
	fs.StringVar(&cfg.GPIOChip, "gpio-chip", cfg.GPIOChip, "GPIO chip for the gpio source")
	fs.IntVar(&cfg.GPIOPin, "gpio-pin", cfg.GPIOPin, "BCM pin number for the gpio source")
	fs.DurationVar((*time.Duration)(&cfg.Debounce), "debounce", time.Duration(cfg.Debounce), "GPIO glitch filter (0 to disable)")

	fs.Float64Var(&cfg.Origin.Lat, "origin-lat", cfg.Origin.Lat, "Virtual course origin latitude")
	fs.Float64Var(&cfg.Origin.Lon, "origin-lon", cfg.Origin.Lon, "Virtual course origin longitude")
	fs.IntVar(&cfg.StepCount, "steps", cfg.StepCount, "Waypoints per lap (0 disables lap tracking)")
	fs.StringVar(&cfg.Curve, "curve", cfg.Curve, "Course shape: circle, bernoulli or gerono")
	fs.Float64Var(&cfg.CurveRadiusKm, "curve-radius", cfg.CurveRadiusKm, "Course radius in km")

	fs.StringVar(&cfg.ActivityLog, "activity-log", cfg.ActivityLog, "Append-only count log (empty to disable)")
	fs.StringVar(&cfg.Export, "export", cfg.Export, "GPX export of waypoint crossings (empty to disable)")
	fs.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address (empty to disable)")
	fs.DurationVar((*time.Duration)(&cfg.Heartbeat), "heartbeat", time.Duration(cfg.Heartbeat), "Heartbeat interval (0 to disable)")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	fs.IntVar(&cfg.MaxReadErrors, "max-read-errors", cfg.MaxReadErrors, "Consecutive device read errors before exiting (0 to keep retrying)")
}

// loadConfig overlays the JSON file on cfg, then re-applies any flag the
// user set explicitly so the command line always wins.
func loadConfig(fs *flag.FlagSet, path string, cfg *config.Config) error {
	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := config.Load(path, cfg); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("re-apply -%s: %w", name, err)
		}
	}
	return nil
}

func run(cfg config.Config, printCount bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	path, err := cfg.Path()
	if err != nil {
		return fmt.Errorf("build course: %w", err)
	}

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	if printCount {
		count, err := readOnce(src, 5)
		if err != nil {
			return fmt.Errorf("read %s: %w", cfg.DeviceLabel(), err)
		}
		fmt.Printf("count: %d\n", count)
		return nil
	}

	startTime := time.Now()
	sessionID := uuid.NewString()

	rec, err := activity.Open(activity.Options{
		LogPath:    cfg.ActivityLog,
		ExportPath: cfg.Export,
		SessionID:  sessionID,
		Start:      startTime,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			log.Printf("activity: close: %v", err)
		}
	}()

	var publisher mqtt.Publisher = mqtt.Discard{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.Discard{}
	if cfg.Broker != "" {
		rp := mqtt.NewRealPublisher(cfg.Broker, "ergo-tacho-"+sessionID[:8])
		publisher, mqttStatus = rp, rp
	}
	defer publisher.Close()

	tracker := status.NewTracker(startTime, statusConfig(cfg, path))
	tracker.SetSession(sessionID, startTime)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	lapDistance := 0.0
	if path != nil {
		lapDistance = path.LapDistance
	}
	log.Printf("started: source=%s device=%s rate=%vHz history=%d course=%s/%d lap=%.0fm session=%s",
		cfg.Source, cfg.DeviceLabel(), cfg.SampleRateHz, cfg.HistorySize, cfg.Curve, cfg.StepCount, lapDistance, sessionID)

	var tick <-chan time.Time
	if cfg.Source == config.SourceSerial {
		// One pass per frame: the blocking Read paces the loop, and frames
		// queued during a slow pass are consumed back to back.
		done := make(chan struct{})
		defer close(done)
		tick = freeRun(done)
	} else {
		// A Ticker's channel holds one tick, so ticks arriving while a pass
		// is still running are dropped rather than queued.
		ticker := time.NewTicker(cfg.TickInterval())
		defer ticker.Stop()
		tick = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	opts := loopOptions{
		Session: logic.Config{
			Calibration: cfg.Calibration(),
			HistorySize: cfg.HistorySize,
			Path:        path,
		},
		Heartbeat:     time.Duration(cfg.Heartbeat),
		Device:        cfg.DeviceLabel(),
		MaxReadErrors: cfg.MaxReadErrors,
		SessionID:     sessionID,
		NewSessionID:  uuid.NewString,
	}
	return runLoop(src, rec, publisher, mqttStatus, tracker, opts, time.Now, tick, sigCh)
}

// freeRun returns a tick channel that is ready whenever the loop is, until
// done is closed.
func freeRun(done <-chan struct{}) <-chan time.Time {
	ch := make(chan time.Time)
	go func() {
		for {
			select {
			case ch <- time.Time{}:
			case <-done:
				return
			}
		}
	}()
	return ch
}

func openSource(cfg config.Config) (pulse.Source, error) {
	switch cfg.Source {
	case config.SourceGPIO:
		src, err := pulse.OpenGPIO(cfg.GPIOChip, cfg.GPIOPin, time.Duration(cfg.Debounce))
		if err != nil {
			return nil, fmt.Errorf("init pulse source %s: %w", cfg.DeviceLabel(), err)
		}
		return src, nil
	default:
		framing, err := pulse.ParseFraming(cfg.Framing)
		if err != nil {
			return nil, err
		}
		src, err := pulse.OpenSerial(cfg.Device, cfg.Port, framing, time.Duration(cfg.ReadTimeout))
		if err != nil {
			return nil, fmt.Errorf("init pulse source: %w", err)
		}
		return src, nil
	}
}

// readOnce returns the first usable count, retrying skippable errors up to
// attempts times.
func readOnce(src pulse.Source, attempts int) (uint64, error) {
	var err error
	for i := 0; i < attempts; i++ {
		var count uint64
		count, err = src.Read()
		if err == nil {
			return count, nil
		}
		if !pulse.Skippable(err) {
			return 0, err
		}
	}
	return 0, err
}

func statusConfig(cfg config.Config, path *geo.Path) status.Config {
	sc := status.Config{
		Source:       cfg.Source,
		Device:       cfg.DeviceLabel(),
		SampleRateHz: cfg.SampleRateHz,
		RevsPerMetre: cfg.RevsPerMetre,
		SpeedPerRPM:  cfg.SpeedPerRPM,
		HistorySize:  cfg.HistorySize,
		HeartbeatMs:  time.Duration(cfg.Heartbeat).Milliseconds(),
		Broker:       cfg.Broker,
		HTTPAddr:     cfg.HTTPAddr,
	}
	if path != nil {
		sc.Curve = cfg.Curve
		sc.StepCount = path.Len()
		sc.LapDistance = path.LapDistance
	}
	return sc
}

// loopOptions carries the per-run settings runLoop needs besides its
// collaborators.
type loopOptions struct {
	Session   logic.Config
	Heartbeat time.Duration

	// Device names the pulse source in errors. MaxReadErrors consecutive
	// device errors stop the loop; 0 never stops.
	Device        string
	MaxReadErrors int

	// SessionID names the first session; NewSessionID names each session
	// started by a counter reset.
	SessionID    string
	NewSessionID func() string
}

// readErrorLogEvery limits logging of a run of device errors to its first
// error and every readErrorLogEvery-th after it.
const readErrorLogEvery = 100

// periodSource is implemented by sources that time the gap between pulses.
type periodSource interface {
	Period(now time.Time) (time.Duration, bool)
}

func runLoop(src pulse.Source, rec activity.Recorder, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, opts loopOptions, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	session, err := logic.NewSession(opts.Session, startTime)
	if err != nil {
		return err
	}
	sessionID := opts.SessionID
	readErrors := 0

	// snapshot refreshes the tracker and returns a status payload for event.
	snapshot := func(t time.Time, event, reason string) []byte {
		if tracker == nil {
			return nil
		}
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		tracker.Update(session.Metrics(), session.Lap(), session.Counts())
		return status.FormatStatusEvent(tracker.SnapshotAt(t), event, reason)
	}

	shutdown := func(reason string) {
		t := now()
		event := mqtt.SystemEvent{
			Timestamp:  t,
			Event:      mqtt.EventShutdown,
			Reason:     reason,
			Retained:   true,
			RawPayload: snapshot(t, mqtt.EventShutdown, reason),
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		} else {
			log.Printf("published shutdown event")
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			shutdown(signalName)
			return nil

		case <-tick:
			t := now()
			count, err := src.Read()
			if err != nil {
				if pulse.Skippable(err) {
					readErrors = 0
					if !errors.Is(err, pulse.ErrNoSample) {
						log.Printf("pulse: %v", err)
					}
				} else {
					readErrors++
					if readErrors == 1 || readErrors%readErrorLogEvery == 0 {
						log.Printf("pulse read error on %s (%d in a row): %v", opts.Device, readErrors, err)
					}
					if opts.MaxReadErrors > 0 && readErrors >= opts.MaxReadErrors {
						shutdown("SOURCE_ERROR")
						return fmt.Errorf("pulse source %s: %d consecutive read errors: %w", opts.Device, readErrors, err)
					}
				}
				session.Skip(t)
				if tracker != nil {
					tracker.Update(session.Metrics(), session.Lap(), session.Counts())
				}
				continue
			}

			readErrors = 0
			res := session.Tick(logic.Input{Count: count, Time: t})

			if err := rec.Sample(t, count); err != nil {
				shutdown("ACTIVITY_WRITE_ERROR")
				return fmt.Errorf("write activity log: %w", err)
			}

			if res.Reset {
				sessionID = opts.NewSessionID()
				log.Printf("counter reset (count=%d), new session %s", count, sessionID)
				if tracker != nil {
					tracker.SetSession(sessionID, session.SessionStart())
				}
				event := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      mqtt.EventReset,
					RawPayload: snapshot(t, mqtt.EventReset, ""),
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("reset publish error: %v", err)
				}
			}

			for _, ev := range res.Laps {
				if ev.LapCompleted {
					log.Printf("lap %d completed: distance=%.0fm elapsed=%s",
						ev.Lap, res.Metrics.Distance, logic.FormatElapsed(res.Metrics.Elapsed))
				}
				if err := rec.Crossing(ev); err != nil {
					shutdown("ACTIVITY_WRITE_ERROR")
					return fmt.Errorf("write activity export: %w", err)
				}
				if err := publisher.PublishLap(sessionID, ev); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			// Check for heartbeat
			if hbData := session.CheckHeartbeat(t, opts.Heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v samples=%d skipped=%d resets=%d rpm=%.0f distance=%.0fm laps=%d",
					hbData.Uptime, hbData.Counts.Samples, hbData.Counts.Skipped, hbData.Counts.Resets,
					hbData.Metrics.RPM, hbData.Metrics.Distance, hbData.Lap.Laps)
				if ps, ok := src.(periodSource); ok {
					if p, ok := ps.Period(t); ok {
						log.Printf("heartbeat: pulse period=%v", p)
					}
				}

				hbEvent := mqtt.SystemEvent{
					Timestamp:  hbData.Timestamp,
					Event:      mqtt.EventHeartbeat,
					RawPayload: snapshot(t, mqtt.EventHeartbeat, ""),
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(session.Metrics(), session.Lap(), session.Counts())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}
