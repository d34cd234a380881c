package domain

// Availability tags an optional result.
type Availability string

const (
	// Available means Value is meaningful.
	Available Availability = "available"
	// Undefined means the inputs do not support a value (e.g. zero variance).
	Undefined Availability = "undefined"
	// FeatureUnavailable means the capability or its input was not supplied.
	FeatureUnavailable Availability = "feature_unavailable"
)

// Optional is a tagged result used instead of stand-in objects when a
// value cannot be produced.
type Optional[T any] struct {
	Status Availability `json:"status"`
	Value  *T           `json:"value,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// Some wraps an available value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Status: Available, Value: &v}
}

// None returns an undefined result with a reason.
func None[T any](reason string) Optional[T] {
	return Optional[T]{Status: Undefined, Reason: reason}
}

// Unavailable returns a FeatureUnavailable result.
func Unavailable[T any](reason string) Optional[T] {
	return Optional[T]{Status: FeatureUnavailable, Reason: reason}
}

// Ok reports whether a value is present.
func (o Optional[T]) Ok() bool {
	return o.Status == Available && o.Value != nil
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	var zero T
	if !o.Ok() {
		return zero, false
	}
	return *o.Value, true
}
