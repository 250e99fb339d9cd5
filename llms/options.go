package llms

type CallOption func(*CallOptions)

type CallOptions struct {
	Model string `json:"model"`
	// Temperature is nil when the caller leaves sampling to the provider default.
	// A non-nil zero is sent as-is.
	Temperature *float64 `json:"temperature,omitempty"`
}

// NewCallOptions applies options over an empty CallOptions.
func NewCallOptions(options ...CallOption) CallOptions {
	var o CallOptions
	for _, opt := range options {
		opt(&o)
	}
	return o
}

// WithModel overrides the model configured on the client for one call.
func WithModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

// WithTemperature sets the sampling temperature. Zero means deterministic decoding.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = &temperature
	}
}
