// Package timeouts defines shared timeout constants used by viewscore
// commands and the renderer host.
package timeouts

import "time"

// RendererDial caps the wait for a remote renderer to accept a connection and
// report SERVING on its health service.
const RendererDial = 10 * time.Second

// RendererRequest caps a single renderer call. Scoring one viewpoint renders
// a full timeseries, so this is generous.
const RendererRequest = 5 * time.Minute

// HealthProbe caps one health check attempt while waiting for a renderer.
const HealthProbe = time.Second

// OTelShutdown limits how long span flushing may delay process exit.
const OTelShutdown = 5 * time.Second

// Shutdown limits how long the renderer host waits for in-flight calls.
const Shutdown = 5 * time.Second
