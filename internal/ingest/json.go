package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var errTrailingData = errors.New("unexpected data after top-level value")

// DecodeError is a JSON body that looked like an object or array but did not parse.
type DecodeError struct {
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed JSON body at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// decodeJSON picks the target by the first byte only: '{' decodes an object,
// '[' an array, anything else (including an empty body) is a 400 without a
// parse attempt.
func decodeJSON(data []byte, useNumber bool) (any, Outcome) {
	if len(data) == 0 {
		return nil, Fail(http.StatusBadRequest)
	}

	switch data[0] {
	case '{':
		var obj map[string]any
		if err := unmarshal(data, &obj, useNumber); err != nil {
			return nil, Decode(err)
		}
		return obj, Continue()
	case '[':
		var arr []any
		if err := unmarshal(data, &arr, useNumber); err != nil {
			return nil, Decode(err)
		}
		return arr, Continue()
	default:
		return nil, Fail(http.StatusBadRequest)
	}
}

func unmarshal(data []byte, v any, useNumber bool) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if useNumber {
		dec.UseNumber()
	}

	if err := dec.Decode(v); err != nil {
		return newDecodeError(err, dec.InputOffset())
	}

	if _, err := dec.Token(); err != io.EOF {
		return &DecodeError{Offset: dec.InputOffset(), Err: errTrailingData}
	}
	return nil
}

func newDecodeError(err error, fallback int64) *DecodeError {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &DecodeError{Offset: syntaxErr.Offset, Err: err}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &DecodeError{Offset: typeErr.Offset, Err: err}
	}
	return &DecodeError{Offset: fallback, Err: err}
}
