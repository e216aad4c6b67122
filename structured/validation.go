package structured

import "errors"

// Validator checks a parsed value. A validation error fails the attempt, so
// the node retries the LLM call.
type Validator[T any] interface {
	Validate(data *T) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc[T any] func(data *T) error

func (f ValidatorFunc[T]) Validate(data *T) error { return f(data) }

// NoOpValidator accepts every non-nil value.
type NoOpValidator[T any] struct{}

func (NoOpValidator[T]) Validate(data *T) error {
	if data == nil {
		return errors.New("data cannot be nil")
	}
	return nil
}

// Validators runs validators in order and returns the first failure.
func Validators[T any](validators ...Validator[T]) Validator[T] {
	return ValidatorFunc[T](func(data *T) error {
		for _, v := range validators {
			if err := v.Validate(data); err != nil {
				return err
			}
		}
		return nil
	})
}
