package value

// ProviderKind enumerates the deployment variant of a Provider. It is
// observable only (surfaced in telemetry and CLI listings) and has no
// behavioral impact on the core: the Agent and retry wrapper treat every
// Provider identically regardless of Kind().
type ProviderKind string

const (
	// Embedded providers run in-process (e.g. an SDK-backed model client).
	Embedded ProviderKind = "embedded"

	// SidecarUDS providers are sandboxed executors reached over a local
	// isolation boundary (in this module, package sandbox's wazero-run
	// WebAssembly module under fuel and wall-clock deadlines).
	SidecarUDS ProviderKind = "sidecar_uds"

	// RemoteGRPC providers are reached over a remote RPC transport.
	RemoteGRPC ProviderKind = "remote_grpc"
)

// ReasoningMode is the string-valued hint propagated in Ask.Context
// indicating whether a thinking-style execution is desired.
type ReasoningMode string

const (
	// Direct requests the fastest, non-deliberative execution path.
	Direct ReasoningMode = "direct"

	// Reasoned requests a thinking-style execution path that is expected to
	// consume more of the token budget.
	Reasoned ReasoningMode = "reasoned"
)

// String returns the serialized form ("direct"/"reasoned") stored in
// Ask.Context's "reasoning" field.
func (m ReasoningMode) String() string {
	return string(m)
}
