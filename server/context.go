// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lightwm/wm/internal/fmq"
	"github.com/lightwm/wm/internal/looper"
	"github.com/lightwm/wm/internal/property"
)

// ServiceContext bundles the process-wide collaborators of the server:
// its event loop, logging, tracing, the property store and the message
// queue namespace. It is constructed once at startup and passed down;
// nothing in the server reaches for globals.
type ServiceContext struct {
	Loop       *looper.Loop
	Log        *zap.Logger
	Tracer     trace.Tracer
	Properties *property.Store
	Queues     *fmq.Registry
}

// NewServiceContext returns a context over loop with no-op logging and
// tracing, an empty property store and a fresh queue namespace. Callers
// replace what they need.
func NewServiceContext(loop *looper.Loop) *ServiceContext {
	return &ServiceContext{
		Loop:       loop,
		Log:        zap.NewNop(),
		Tracer:     trace.NewNoopTracerProvider().Tracer("wm"),
		Properties: property.NewStore(),
		Queues:     fmq.NewRegistry(),
	}
}
