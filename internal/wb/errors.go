package wb

import (
	"errors"
	"fmt"
)

var (
	// ответ пришёл, но warehouseList нет, не список или пуст
	ErrEmptyResult = errors.New("empty warehouseList")
	// тело не разбирается как JSON ответа WB
	ErrMalformedPayload = fmt.Errorf("malformed payload: %w", ErrEmptyResult)
	// запасной источник тоже не ответил
	ErrFallbackExhausted = errors.New("fallback source failed")
)

// TransportError: сеть, таймаут или не-2xx после всех попыток.
type TransportError struct {
	Source   Source
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %d attempt(s) failed: %v", e.Source, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError: сервер ответил не-2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// FallbackError несёт обе причины: почему не подошёл основной источник и почему упал запасной.
type FallbackError struct {
	Primary  error
	Fallback error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("%v (primary: %v): %v", ErrFallbackExhausted, e.Primary, e.Fallback)
}

func (e *FallbackError) Unwrap() []error { return []error{ErrFallbackExhausted, e.Fallback} }
