package flow

// Version information for the flow module.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)
