// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Basic runs the window server and one client application in a single
// process: the client draws a moving gradient, the server composes it and,
// when DISPLAY is set, presents it into an X11 window.
package main

import (
	"context"
	"image"
	"os"
	"time"

	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/app"
	"github.com/lightwm/wm/internal/looper"
	"github.com/lightwm/wm/ipc"
	"github.com/lightwm/wm/server"
)

type invalidator struct {
	driver *app.ImageDriver
}

func (i *invalidator) OnPostDraw() { i.driver.OnInvalidate(true) }

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	zlog, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal().Err(err).Msg("logger")
	}
	defer zlog.Sync()

	// Server process.
	serverLoop := looper.New()
	go serverLoop.Run()
	defer serverLoop.Stop()

	sctx := server.NewServiceContext(serverLoop)
	sctx.Log = zlog.Named("server")
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	sctx.Tracer = tp.Tracer("wmserver")

	var sink server.PresentSink
	if os.Getenv("DISPLAY") != "" {
		s, err := server.NewX11Sink(480, 480)
		if err != nil {
			log.Warn().Err(err).Msg("no x11 sink, running headless")
		} else {
			sink = s
			defer s.Close()
		}
	}

	svc := server.New(sctx, server.DefaultConfig(), sink)
	serverPeer := ipc.NewPeer("wmserver", serverLoop)
	log.Info().Bool("ready", svc.Ready()).Msg("window service up")

	// Client process.
	clientLoop := looper.New()
	go clientLoop.Run()
	defer clientLoop.Stop()

	clientPeer := ipc.NewPeer("gradient", clientLoop)
	proxy := ipc.BindService(serverPeer, svc)
	ctx := app.NewContext(clientLoop, clientPeer, proxy, zlog.Named("client"))

	if err := proxy.AddWindowToken(ctx.Token, wm.TypeApplication, 0); err != nil {
		log.Fatal().Err(err).Msg("add token")
	}

	manager, err := app.NewWindowManager(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("window manager")
	}

	win := manager.NewWindow(ctx)
	frame := 0
	driver := app.NewImageDriver(win, func(canvas *image.RGBA) bool {
		frame++
		for y := 0; y < canvas.Rect.Dy(); y++ {
			for x := 0; x < canvas.Rect.Dx(); x++ {
				i := canvas.PixOffset(x, y)
				canvas.Pix[i+0] = uint8(x + frame)
				canvas.Pix[i+1] = uint8(y + frame)
				canvas.Pix[i+2] = uint8(frame * 2)
				canvas.Pix[i+3] = 0xFF
			}
		}
		return true
	})
	driver.SetEventFunc(func(msg *wm.InputMessage) {
		log.Info().Str("event", msg.String()).Msg("input")
	})
	win.SetUIProxy(driver)
	win.SetEventListener(&invalidator{driver: driver})

	if err := manager.AttachWindow(win); err != nil {
		log.Fatal().Err(err).Msg("attach window")
	}
	if err := proxy.UpdateWindowTokenVisibility(ctx.Token, wm.VisibilityVisible); err != nil {
		log.Fatal().Err(err).Msg("show")
	}

	time.Sleep(3 * time.Second)
	log.Info().Int("frames", frame).Msg("shutting down")

	proxy.UpdateWindowTokenVisibility(ctx.Token, wm.VisibilityGone)
	time.Sleep(300 * time.Millisecond)
	manager.RemoveWindow(win)
	proxy.RemoveWindowToken(ctx.Token, 0)
	clientPeer.Kill()
}
