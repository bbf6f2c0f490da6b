// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration loading, logging, reload hooks, runtime counters and debug
// introspection for hioload-rtc processes.
//
// Provides concurrent-safe primitives including:
//   - File-based configuration (YAML or TOML) with defaults and validation
//   - A leveled logger factory whose level can change at runtime
//   - Reload hooks triggered on configuration changes
//   - Named atomic counters and debug probes exported as a CBOR dump
package control
