// cmd/bridge/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tamzrod/greenhouse-bridge/internal/acquire"
	"github.com/tamzrod/greenhouse-bridge/internal/command"
	"github.com/tamzrod/greenhouse-bridge/internal/config"
	"github.com/tamzrod/greenhouse-bridge/internal/history"
	plcmodbus "github.com/tamzrod/greenhouse-bridge/internal/plc/modbus"
	"github.com/tamzrod/greenhouse-bridge/internal/registry"
	"github.com/tamzrod/greenhouse-bridge/internal/state"
	"github.com/tamzrod/greenhouse-bridge/internal/web"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config (optional; env overrides apply)")
	flag.Parse()

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	table, err := buildTable(cfg)
	if err != nil {
		log.Fatalf("register map invalid: %v", err)
	}

	// --------------------
	// Build the pipeline: client -> loop -> state -> web
	// --------------------

	client, err := plcmodbus.New(plcmodbus.Config{
		Endpoint: cfg.Modbus.Endpoint(),
		UnitID:   cfg.Modbus.UnitID,
		Timeout:  time.Duration(cfg.Modbus.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("modbus client build failed: %v", err)
	}

	store := state.New(table)

	// One exclusion for the whole transport: loop reads and gateway
	// writes must never interleave.
	var bus sync.Mutex

	var recorder *history.Store
	if !cfg.History.Disabled {
		recorder, err = history.Open(cfg.History.Path)
		if err != nil {
			// History is best-effort; run without it.
			log.Printf("history disabled: open %s failed: %v", cfg.History.Path, err)
			recorder = nil
		}
	}

	loopDeps := acquire.Deps{Bus: &bus, Table: table, Store: store}
	if recorder != nil {
		loopDeps.Recorder = recorder
	}
	loop, err := acquire.New(acquire.Config{
		VariableBlock:   acquire.Block{Start: cfg.Poll.VariableBlock.Address, Count: cfg.Poll.VariableBlock.Quantity},
		SetpointBlock:   acquire.Block{Start: cfg.Poll.SetpointBlock.Address, Count: cfg.Poll.SetpointBlock.Quantity},
		Interval:        time.Duration(cfg.Poll.IntervalMs) * time.Millisecond,
		Cooldown:        time.Duration(cfg.Poll.CooldownMs) * time.Millisecond,
		ConnectAttempts: cfg.Poll.ConnectAttempts,
		ConnectBackoff:  time.Duration(cfg.Poll.ConnectBackoffMs) * time.Millisecond,
	}, client, loopDeps)
	if err != nil {
		log.Fatalf("acquisition loop build failed: %v", err)
	}

	gateway := command.New(client, &bus, table, store)
	if recorder != nil {
		gateway.Recorder = recorder
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		loop.Run(ctx)
	}()

	srv := web.NewServer(store, gateway, cfg.HTTP.HTMLDir)
	httpServer := &http.Server{Addr: cfg.HTTP.Addr, Handler: srv.Router()}
	go func() {
		log.Printf("listening on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	// --------------------
	// Shutdown: stop accepting, stop the loop, then close the transport
	// so no read or write races the close.
	// --------------------

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	<-shutdownChan
	log.Println("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	cancel()
	wg.Wait()

	if err := client.Close(); err != nil {
		log.Printf("modbus close: %v", err)
	}
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			log.Printf("history close: %v", err)
		}
	}
	log.Println("bridge stopped")
}

// buildTable resolves the register map: config overrides when present,
// the baked-in greenhouse map otherwise.
func buildTable(cfg *config.Config) (*registry.Table, error) {
	if len(cfg.Variables) == 0 && len(cfg.Setpoints) == 0 {
		return registry.Default(), nil
	}
	vars, err := toDescriptors(cfg.Variables)
	if err != nil {
		return nil, err
	}
	sps, err := toDescriptors(cfg.Setpoints)
	if err != nil {
		return nil, err
	}
	return registry.New(vars, sps)
}

func toDescriptors(points []config.PointConfig) ([]registry.Descriptor, error) {
	out := make([]registry.Descriptor, 0, len(points))
	for _, pt := range points {
		kind, err := registry.ParseKind(pt.Type)
		if err != nil {
			return nil, err
		}
		scale := pt.Scale
		if scale == 0 && kind != registry.Bool {
			scale = 1
		}
		out = append(out, registry.Descriptor{
			Name:     pt.Name,
			Register: pt.Register,
			Kind:     kind,
			Scale:    scale,
		})
	}
	return out, nil
}
