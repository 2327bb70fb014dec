package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/lixenwraith/rain-ambience/api"
	"github.com/lixenwraith/rain-ambience/audio"
	"github.com/lixenwraith/rain-ambience/config"
	"github.com/lixenwraith/rain-ambience/panel"
	"github.com/lixenwraith/rain-ambience/service"
	"github.com/lixenwraith/rain-ambience/status"
)

type runOptions struct {
	headless bool
	stats    bool

	// sink replaces the speaker; tests only
	sink audio.Sink
}

// run wires services, drives the panel or waits headless, and stops with a fade
func run(ctx context.Context, v *viper.Viper, cfg config.Config, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logFile := setupLogging(cfg.Log.Dir, cfg.Log.Debug)
	if logFile != nil {
		defer logFile.Close()
	}

	audioCfg, err := cfg.AudioConfig()
	if err != nil {
		return err
	}

	hub := service.NewHub()
	statusSvc := status.NewService()
	audioSvc := audio.NewService(audioCfg, audio.Options{Sink: opts.sink})

	// The API registers ahead of audio so it starts before assets load
	services := []service.Service{statusSvc}
	if cfg.HTTP.Listen != "" {
		services = append(services, api.NewService(cfg.HTTP.Listen, cfg.HTTP.CORSOrigins, func() api.Controller {
			if m := audioSvc.Mixer(); m != nil {
				return m
			}
			return nil
		}))
	}
	services = append(services, audioSvc)
	for _, svc := range services {
		if err := hub.Register(svc); err != nil {
			return err
		}
	}

	if err := hub.InitAll(statusSvc.Registry()); err != nil {
		return err
	}
	mixer := audioSvc.Mixer()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// Loading decodes every clip; the panel shows a spinner meanwhile
	go func() {
		if err := hub.StartAll(); err != nil {
			cancel(err)
		}
	}()

	if v != nil && config.Watch(v, levelsWatcher(mixer, cfg.Mixer.Muted)) {
		log.Printf("[main] watching %s", v.ConfigFileUsed())
	}

	headless := opts.headless
	var ui *panel.Panel
	if !headless {
		screen, err := panel.NewScreen()
		if err != nil {
			log.Printf("[main] no terminal, running headless: %v", err)
			headless = true
		} else {
			ui = panel.New(screen, mixer, statusSvc.Registry(), panel.Options{
				ShowStats: opts.stats,
				Silent:    audioSvc.IsSilent(),
			})
		}
	}

	if headless {
		fmt.Fprintln(os.Stderr, "rain-ambience: playing, press Ctrl-C to stop")
		<-runCtx.Done()
	} else {
		ui.Run(runCtx)
		ui.Cleanup()
	}

	shutdown(hub, audioSvc, mixer)

	if err := context.Cause(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// levelsWatcher applies edited levels on every reload, and mute only when the
// file's value changes so a mute toggled from the panel survives unrelated edits
func levelsWatcher(mixer *audio.Mixer, muted bool) func(config.Config) {
	return func(c config.Config) {
		mixer.SetLevels(c.Mixer.RainVolume, c.Mixer.ThunderVolume)
		if c.Mixer.Muted != muted {
			muted = c.Mixer.Muted
			mixer.SetMuted(muted)
		}
	}
}

// shutdown lets the stop fade play out before releasing the device
func shutdown(hub *service.Hub, audioSvc *audio.AudioService, mixer *audio.Mixer) {
	if settle := mixer.Stop(); settle > 0 {
		time.Sleep(settle)
	}
	// Cancels an in-flight load so StartAll releases the hub
	if err := audioSvc.Stop(); err != nil {
		log.Printf("[main] audio stop: %v", err)
	}
	hub.StopAll()
}
