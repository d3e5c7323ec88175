package device

// Version information for the device module.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)
