package value

// Ask is a unit of work handed to a provider. It is produced by the caller,
// mutated only by the Agent (via copy-replace, never in place), and
// consumed by providers. Providers must not mutate the Ask they receive.
type Ask struct {
	// Op is the operation name: free-form, identifies the intended tool or
	// logical verb (e.g. "chat", "adder").
	Op string

	// Input is the arbitrary structured payload for the operation.
	Input Value

	// Context carries orchestration hints: reasoning mode, retry count,
	// source tool name, dialect, tool descriptors, tool choice.
	Context Value
}

// Clone returns a shallow copy of a. The Agent always builds the next Ask by
// copying the previous one and replacing individual fields, never by
// mutating the caller's original value in place.
func (a Ask) Clone() Ask {
	return Ask{Op: a.Op, Input: a.Input, Context: a.Context}
}

// Reply is the outcome of a provider invocation. Providers must always
// return a Reply; failures are encoded in the Reply itself (ok=false plus
// an output mapping carrying at least an "error" string), never as a Go
// error escaping Ask.
type Reply struct {
	// OK is true when the provider invocation succeeded. A true value halts
	// the Agent's step loop and is returned immediately to the caller.
	OK bool

	// Output is the structured result. On success it is the user-visible
	// payload; on failure it is either an error descriptor ({error: ...})
	// or a tool-call directive ({tool_calls: [...]})
	Output Value

	// LatencyMS is the wall-clock latency of the invocation in milliseconds.
	LatencyMS int64

	// Cost is the provider-reported cost descriptor. When no cost is
	// reported, Cost is an empty mapping or nil, depending on which
	// provider or helper built the Reply.
	Cost Value
}

// ToolCall is a single {op, input} directive embedded in a non-OK Reply's
// Output under the "tool_calls" key.
type ToolCall struct {
	Op    string
	Input Value
}

// ToolCalls extracts the tool_calls directive from a Reply's Output, if
// present. ok is false when Output carries no (or a malformed) tool_calls
// sequence.
func ToolCalls(output Value) (calls []ToolCall, ok bool) {
	m := AsMap(output)
	raw, present := m["tool_calls"]
	if !present {
		return nil, false
	}
	seq := AsSlice(raw)
	if len(seq) == 0 {
		return nil, false
	}
	calls = make([]ToolCall, 0, len(seq))
	for _, entry := range seq {
		em := AsMap(entry)
		op := AsString(em["op"])
		if op == "" {
			continue
		}
		calls = append(calls, ToolCall{Op: op, Input: em["input"]})
	}
	if len(calls) == 0 {
		return nil, false
	}
	return calls, true
}

// CancelledReply builds the canonical reply the retry wrapper and the Agent
// return when cancellation has been observed: {"error":"cancelled"} with
// zero latency and a nil Cost.
func CancelledReply() Reply {
	return Reply{OK: false, Output: ErrorField("cancelled")}
}
