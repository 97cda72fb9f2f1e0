package model

// Evaluation contains the result of a plugin's read-only assessment of the
// host against a step's desired state. Returned by Plugin.Evaluate and passed
// back to Plugin.Apply when action is required.
type Evaluation struct {
	// StepID is the identifier of the evaluated step.
	StepID string

	// Satisfied is true when the host already matches the desired state and
	// Apply must not be called. The runner records the step as success.
	Satisfied bool

	// Message describes what was found, e.g. "all 12 packages installed" or
	// "firewall inactive".
	Message string

	// Diff optionally describes what Apply would change, for dry-run output.
	Diff string

	// InternalData is opaque data handed from Evaluate to Apply so plugins
	// avoid probing the host twice.
	InternalData any
}
