package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brutella/can"
	"github.com/go-redis/redis/v8"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"wheel-service/hardware"
	"wheel-service/wheel"
)

const (
	WheelAppHealthCheckPeriod = 30 * time.Second
	WheelAppConnectTimeout    = 5 * time.Second
)

type WheelApp struct {
	log       *LeveledLogger
	opts      *Options
	redis     *redis.Client
	bus       *can.Bus
	buttons   *hardware.GPIOButtons
	mainStrip *hardware.SPIStrip
	auxStrip  *hardware.SPIStrip
	wheel     *wheel.Wheel
	diag      *Diag
	ipcTx     *IPCTx
	ipcRx     *IPCRx
	mu        sync.Mutex
}

func NewWheelApp(ctx context.Context, opts *Options, logger *LeveledLogger) (*WheelApp, error) {
	app := &WheelApp{
		log:  logger,
		opts: opts,
	}

	if err := app.init(ctx); err != nil {
		if cerr := app.Destroy(); cerr != nil {
			app.log.Error("Cleanup after failed start: %v", cerr)
		}
		return nil, err
	}
	return app, nil
}

func (app *WheelApp) init(ctx context.Context) error {
	opts := app.opts

	if opts.RedisEnabled() {
		app.redis = redis.NewClient(&redis.Options{
			Addr:         opts.RedisAddr(),
			Password:     "",
			DB:           0,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})

		connectCtx, connectCancel := context.WithTimeout(ctx, WheelAppConnectTimeout)
		defer connectCancel()

		app.log.Info("Connecting to Redis at %s...", opts.RedisAddr())
		if err := app.redis.Ping(connectCtx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		app.log.Info("Successfully connected to Redis")
	} else {
		app.log.Info("Redis disabled, status mirror and mode commands are off")
	}

	app.diag = NewDiag(app.log, app.redis)
	app.log.Info("Diagnostics component initialized")

	var err error
	app.mainStrip, err = hardware.OpenSPIStrip(opts.MainSPI, opts.SPIFrequency, wheel.MainLEDCount, app.log)
	if err != nil {
		return fmt.Errorf("failed to open main strip: %w", err)
	}
	app.auxStrip, err = hardware.OpenSPIStrip(opts.AuxSPI, opts.SPIFrequency, wheel.AuxLEDCount, app.log)
	if err != nil {
		return fmt.Errorf("failed to open aux strip: %w", err)
	}

	app.bus, err = can.NewBusForInterfaceWithName(opts.CANDevice)
	if err != nil {
		return fmt.Errorf("failed to initialize CAN bus: %w", err)
	}

	app.buttons = hardware.NewGPIOButtons(opts.ButtonConfig(), app.log)

	app.wheel = wheel.New(opts.Wheel, wheel.Deps{
		Bus:       app.bus,
		MainStrip: app.mainStrip,
		AuxStrip:  app.auxStrip,
		Buttons:   app.buttons,
		Clock:     wheel.SystemClock{},
		Faults:    app.diag,
		Logger:    app.log,
	})
	app.bus.Subscribe(app.wheel)
	app.log.Info("Wheel core initialized on %s", opts.CANDevice)

	if err := app.buttons.Open(app.wheel.HandleEdge); err != nil {
		return err
	}

	if app.redis != nil {
		app.ipcTx = NewIPCTx(app.log, app.redis)
		app.writeDefaultRedisState(ctx)
		app.ipcRx = NewIPCRx(app.log, app.redis, app.wheel)
		app.log.Info("IPC components initialized")
	}

	return nil
}

// writeDefaultRedisState publishes the power-on status before the first
// sample
func (app *WheelApp) writeDefaultRedisState(ctx context.Context) {
	status := statusFromSnapshot(app.wheel.State.Snapshot(), app.wheel.Renderer.CurrentMode())
	if err := app.ipcTx.SendStatus(ctx, status); err != nil {
		app.log.Warn("Failed to send default status: %v", err)
		return
	}
	app.log.Info("Default Redis state written")
}

// Run drives the wheel until ctx is cancelled or a component fails
func (app *WheelApp) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.wheel.Run(ctx)
	})

	g.Go(func() error {
		err := app.bus.ConnectAndPublish()
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return fmt.Errorf("CAN bus %s closed", app.opts.CANDevice)
		}
		return fmt.Errorf("CAN bus publish error: %w", err)
	})
	g.Go(func() error {
		<-ctx.Done()
		if err := app.bus.Disconnect(); err != nil {
			app.log.Debug("CAN bus disconnect: %v", err)
		}
		return nil
	})

	if app.redis != nil {
		g.Go(func() error { return app.diag.Run(ctx) })
		g.Go(func() error { return app.ipcTx.Run(ctx, app.wheel) })
		g.Go(func() error { return app.ipcRx.Run(ctx) })
		g.Go(func() error {
			app.redisHealthCheck(ctx)
			return nil
		})
	}

	return g.Wait()
}

func (app *WheelApp) redisHealthCheck(ctx context.Context) {
	ticker := time.NewTicker(WheelAppHealthCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := app.redis.Ping(pingCtx).Err(); err != nil && ctx.Err() == nil {
				app.log.Error("Redis health check failed: %v", err)
			}
			cancel()
		}
	}
}

// Destroy blanks the strips and releases every device. It is safe to call on
// a partially initialized app.
func (app *WheelApp) Destroy() error {
	app.mu.Lock()
	defer app.mu.Unlock()

	app.log.Info("Shutting down wheel application...")

	var err error
	if app.buttons != nil {
		err = multierr.Append(err, app.buttons.Close())
		app.buttons = nil
	}
	if app.mainStrip != nil {
		err = multierr.Append(err, app.mainStrip.Close())
		app.mainStrip = nil
	}
	if app.auxStrip != nil {
		err = multierr.Append(err, app.auxStrip.Close())
		app.auxStrip = nil
	}
	if app.redis != nil {
		if cerr := app.redis.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close Redis connection: %w", cerr))
		}
		app.redis = nil
	}

	app.log.Info("Wheel application shutdown complete")
	return err
}
