/*
Package monitoring provides metrics collection for transport sessions.

# Overview

This package implements Prometheus-based metrics for the process transport:
spawns, bytes read from the child, frames decoded, and the footprint of the
ring buffer and arena that back each session.

# Features

- Spawn outcomes (ok, failed)
- Stream throughput (bytes read, bytes written)
- Frame metrics (decoded by kind, protocol errors)
- Buffer metrics (ring capacity and growth, arena capacity and resets)
- Session lifecycle (active sessions)

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	metrics.RecordSpawn(true)
	metrics.RecordRead(512)

# Metrics Endpoint

	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
*/
package monitoring
