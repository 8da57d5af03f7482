// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package tracing configures the OpenTelemetry TracerProvider used for the
// per-reconcile spans opened around apply and delete, supplementing the
// original implementation's trace.rs exporter-only setup. DNS provider
// calls open no spans of their own.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// serviceName is reported on every span's resource attributes.
const serviceName = "ddns-controller"

// Shutdown flushes and releases a configured TracerProvider. It is a no-op
// for the no-op fallback provider.
type Shutdown func(ctx context.Context) error

// Setup installs a global TracerProvider. When endpoint is non-empty
// (DDNS_OTLP_ENDPOINT, §6.3) it exports spans via otlptracegrpc; otherwise
// it installs OpenTelemetry's own no-op provider, so callers never need to
// branch on whether tracing is enabled.
func Setup(ctx context.Context, endpoint string) (Shutdown, error) {
	if endpoint == "" {
		otel.SetTracerProvider(trace.NewNoopTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("build otlp trace exporter for %q: %w", endpoint, err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
