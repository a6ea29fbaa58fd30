package reactor

// Consumer is anything that performs tracked reads, typically a rendered node.
// Implementations must be comparable (pointer types) because the registry keeps
// them in sets.
type Consumer interface {
	// Connected reports whether the consumer is still attached to live output.
	Connected() bool
}

// Renderer is a consumer with a render hook. BeginRender moves the consumer
// from Idle to Rendering and reports false when it has no hook or is already
// rendering; EndRender moves it back to Idle.
type Renderer interface {
	Consumer
	BeginRender() bool
	Render()
	EndRender()
}

// ValueSink is a consumer exposing a settable display value that is assigned
// directly when the mutated key equals the consumer's name.
type ValueSink interface {
	Consumer
	SupportsDirectValueSink() bool
	SinkName() string
	SetValue(v any)
}

// Resolver re-resolves a dependent against the root store of the model that
// changed.
type Resolver interface {
	Reresolve(c Consumer, root *Store)
}

// RenderState is the per-consumer re-entrancy guard.
type RenderState int32

const (
	// Idle means the consumer's render hook may run.
	Idle RenderState = iota
	// Rendering means the render hook is on the stack and must not re-enter.
	Rendering
)

func (s RenderState) String() string {
	if s == Rendering {
		return "rendering"
	}
	return "idle"
}
