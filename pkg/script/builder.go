package script

// ResponseBuilder is the fluent DSL a script uses to build a Behaviour.
// Every With* method returns the builder so calls chain; Respond ends
// the chain and produces the Behaviour.
type ResponseBuilder struct {
	behaviour Behaviour
}

// newResponseBuilder is exposed to scripts as the zero-argument
// function response().
func newResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{behaviour: Behaviour{UseDefaults: true}}
}

func (b *ResponseBuilder) WithStatusCode(code int) *ResponseBuilder {
	b.behaviour.StatusCode = code
	return b
}

func (b *ResponseBuilder) WithFile(path string) *ResponseBuilder {
	b.behaviour.File = path
	return b
}

func (b *ResponseBuilder) WithData(data string) *ResponseBuilder {
	b.behaviour.Data = data
	return b
}

func (b *ResponseBuilder) WithExampleName(name string) *ResponseBuilder {
	b.behaviour.ExampleName = name
	return b
}

func (b *ResponseBuilder) WithHeader(name, value string) *ResponseBuilder {
	if b.behaviour.Headers == nil {
		b.behaviour.Headers = make(map[string]string)
	}
	b.behaviour.Headers[name] = value
	return b
}

func (b *ResponseBuilder) WithEmpty() *ResponseBuilder {
	b.behaviour.Empty = true
	return b
}

func (b *ResponseBuilder) WithDelay(ms int) *ResponseBuilder {
	b.behaviour.DelayMs = ms
	return b
}

func (b *ResponseBuilder) WithDelayRange(minMs, maxMs int) *ResponseBuilder {
	b.behaviour.MinDelayMs = minMs
	b.behaviour.MaxDelayMs = maxMs
	return b
}

// UsingDefaultBehaviour overlays unset fields onto the resource's
// declared response. This is the default.
func (b *ResponseBuilder) UsingDefaultBehaviour() *ResponseBuilder {
	b.behaviour.UseDefaults = true
	return b
}

// SkipDefaultBehaviour treats this behaviour as a full replacement of
// the resource's declared response.
func (b *ResponseBuilder) SkipDefaultBehaviour() *ResponseBuilder {
	b.behaviour.UseDefaults = false
	return b
}

// Immediately is an alias for SkipDefaultBehaviour.
func (b *ResponseBuilder) Immediately() *ResponseBuilder {
	return b.SkipDefaultBehaviour()
}

// And is a no-op chain continuation for readability at call sites.
func (b *ResponseBuilder) And() *ResponseBuilder {
	return b
}

// Respond finalizes the builder into the Behaviour a script returns.
func (b *ResponseBuilder) Respond() *Behaviour {
	return &b.behaviour
}
