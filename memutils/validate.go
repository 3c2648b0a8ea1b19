package memutils

// Validatable is implemented by partition bookkeeping that can check its own consistency. DebugValidate
// accepts any Validatable.
type Validatable interface {
	Validate() error
}
