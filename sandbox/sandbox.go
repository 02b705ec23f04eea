// Package sandbox implements the sandboxed tool executor the core treats as
// an external collaborator (spec.md §1, §6, §4.1): a fuel/wall-clock limited
// runner for a WebAssembly module, exposed as a provider.Provider so the
// Agent dispatches it like any other tool.
//
// The original implementation runs modules through wasmtime with native
// fuel metering. wasmtime has no maintained Go binding in this module's
// dependency set, so this package uses wazero, a pure-Go WebAssembly
// runtime, instead. wazero has no per-instruction fuel counter of its own;
// see DESIGN.md for how CPU and wall-clock limits are approximated here.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/corewave/agentcore/value"
)

// Limits bounds a single module call.
type Limits struct {
	// Fuel is a coarse CPU budget. wazero has no native instruction
	// counter, so Fuel is translated into a scaled-down deadline (see
	// fuelDeadline) rather than an exact instruction count.
	Fuel uint64
	// MaxStackDepth is informational only: wazero enforces its own call
	// stack ceiling independent of this value, and a violation surfaces as
	// a Call error like any other runtime fault.
	MaxStackDepth int
	// WallClock is the maximum time a call may take before it is aborted.
	WallClock time.Duration
}

// DefaultLimits returns conservative limits suitable when the caller does
// not configure its own.
func DefaultLimits() Limits {
	return Limits{Fuel: 10_000, MaxStackDepth: 256, WallClock: 2 * time.Second}
}

// fuelUnit is the assumed cost of one fuel unit, used to derive an
// approximate CPU-bound deadline from Limits.Fuel (see Limits.Fuel).
const fuelUnit = 10 * time.Microsecond

// Provider runs a single WebAssembly module, compiled once at construction,
// against calls submitted through Ask. Each Ask instantiates a fresh module
// instance so calls are isolated from one another, mirroring the original's
// fresh-Store-per-call design.
type Provider struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	limits   Limits
}

// New compiles wasm and constructs a Provider bound to it. Compilation
// failure (malformed bytecode) is returned as an error so tool registration
// can fail fast instead of leaving a broken tool registered.
func New(ctx context.Context, wasm []byte, limits Limits) (*Provider, error) {
	if limits.WallClock <= 0 {
		limits = DefaultLimits()
	}

	rt := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("sandbox: instantiate wasi: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("sandbox: compile module: %w", err)
	}

	return &Provider{runtime: rt, compiled: compiled, limits: limits}, nil
}

// Close releases the underlying wazero runtime and compiled module.
func (p *Provider) Close(ctx context.Context) error {
	return p.runtime.Close(ctx)
}

// Kind implements provider.Provider.
func (p *Provider) Kind() value.ProviderKind { return value.SidecarUDS }

// Ask implements provider.Provider. req.Op names the module's exported
// function; req.Input carries its single i32 argument. A run that exceeds
// its deadline reports exactly {"error":"timeout"} per spec.md §4.1.
func (p *Provider) Ask(ctx context.Context, req value.Ask) value.Reply {
	start := time.Now()

	deadline := p.limits.WallClock
	if fd := fuelDeadline(p.limits.Fuel); fd < deadline {
		deadline = fd
	}
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	callCtx = experimental.WithCloseOnContextDone(callCtx, true)

	mod, err := p.runtime.InstantiateModule(callCtx, p.compiled, wazero.NewModuleConfig())
	if err != nil {
		return sandboxErrorReply(err, callCtx, start)
	}
	defer mod.Close(context.Background())

	fn := mod.ExportedFunction(req.Op)
	if fn == nil {
		return value.Reply{OK: false, Output: value.ErrorField(fmt.Sprintf("sandbox: no exported function %q", req.Op)), LatencyMS: time.Since(start).Milliseconds()}
	}

	results, err := fn.Call(callCtx, uint64(uint32(decodeArg(req.Input))))
	if err != nil {
		return sandboxErrorReply(err, callCtx, start)
	}

	latency := time.Since(start).Milliseconds()
	if len(results) == 0 {
		return value.Reply{OK: true, Output: value.Map(), LatencyMS: latency, Cost: value.Map()}
	}
	return value.Reply{OK: true, Output: float64(int32(results[0])), LatencyMS: latency, Cost: value.Map()}
}

// fuelDeadline approximates a CPU-bound time budget for a fuel allowance,
// since wazero exposes no per-instruction fuel counter to enforce it
// precisely (see the package doc comment and DESIGN.md).
func fuelDeadline(fuel uint64) time.Duration {
	if fuel == 0 {
		return DefaultLimits().WallClock
	}
	return time.Duration(fuel) * fuelUnit
}

func sandboxErrorReply(err error, callCtx context.Context, start time.Time) value.Reply {
	latency := time.Since(start).Milliseconds()
	switch {
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return value.Reply{OK: false, Output: value.ErrorField("timeout"), LatencyMS: latency}
	case errors.Is(callCtx.Err(), context.Canceled):
		return value.CancelledReply()
	default:
		return value.Reply{OK: false, Output: value.ErrorField(err.Error()), LatencyMS: latency}
	}
}

func decodeArg(v value.Value) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	default:
		return 0
	}
}
