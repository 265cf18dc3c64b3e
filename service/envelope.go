package service

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ErrEnvelope is matched by the error of a wrapped response whose success
// flag is false.
var ErrEnvelope = errors.New("request reported failure")

// ErrInvalidJSON is returned by DecodeEnvelope for a body that is not JSON.
var ErrInvalidJSON = errors.New("invalid JSON response")

// Envelope is the shape of a backend response. Some endpoints answer with
// the payload itself (Raw), others wrap it:
//
//	{"success": true, "message": "", "data": {...}, "errorCode": "", "errors": []}
//
// Wrapped tells which form was received. The form is decided once, by
// DecodeEnvelope, not by inspecting the payload at each use.
type Envelope[T any] struct {
	Wrapped bool

	// Raw holds the body when the response was not wrapped.
	Raw T

	Success   bool
	Message   string
	Data      T
	ErrorCode string
	Errors    []string
}

// DecodeEnvelope decodes body into an Envelope. A JSON object with a boolean
// "success" member is the wrapped form; anything else is raw. An empty body
// yields a raw zero value.
func DecodeEnvelope[T any](body []byte) (Envelope[T], error) {
	var env Envelope[T]
	if len(strings.TrimSpace(string(body))) == 0 {
		return env, nil
	}
	if !gjson.ValidBytes(body) {
		return env, ErrInvalidJSON
	}

	root := gjson.ParseBytes(body)
	success := root.Get("success")
	if !root.IsObject() || !success.IsBool() {
		if err := json.Unmarshal(body, &env.Raw); err != nil {
			return env, fmt.Errorf("decode response: %w", err)
		}
		return env, nil
	}

	env.Wrapped = true
	env.Success = success.Bool()
	env.Message = root.Get("message").String()
	env.ErrorCode = root.Get("errorCode").String()

	root.Get("errors").ForEach(func(_, v gjson.Result) bool {
		switch {
		case v.Type == gjson.Null:
		case v.Type == gjson.String:
			env.Errors = append(env.Errors, v.Str)
		case v.IsObject() && v.Get("message").Exists():
			env.Errors = append(env.Errors, v.Get("message").String())
		default:
			env.Errors = append(env.Errors, v.Raw)
		}
		return true
	})

	if data := root.Get("data"); data.Exists() && data.Type != gjson.Null {
		if err := json.Unmarshal([]byte(data.Raw), &env.Data); err != nil {
			return env, fmt.Errorf("decode response data: %w", err)
		}
	}
	return env, nil
}

// Unwrap returns the payload, or the envelope's error when the backend
// reported failure.
func (e Envelope[T]) Unwrap() (T, error) {
	if !e.Wrapped {
		return e.Raw, nil
	}
	if !e.Success {
		var zero T
		return zero, &EnvelopeError{
			Message:   e.Message,
			ErrorCode: e.ErrorCode,
			Errors:    e.Errors,
		}
	}
	return e.Data, nil
}

// EnvelopeError is the failure carried inside a wrapped response.
type EnvelopeError struct {
	Message   string
	ErrorCode string
	Errors    []string
}

func (e *EnvelopeError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = ErrEnvelope.Error()
	}
	if e.ErrorCode != "" {
		msg += " (" + e.ErrorCode + ")"
	}
	if len(e.Errors) > 0 {
		msg += ": " + strings.Join(e.Errors, "; ")
	}
	return msg
}

func (e *EnvelopeError) Is(target error) bool {
	return target == ErrEnvelope
}

// Decode is a convenience for DecodeEnvelope followed by Unwrap.
func Decode[T any](body []byte) (T, error) {
	env, err := DecodeEnvelope[T](body)
	if err != nil {
		var zero T
		return zero, err
	}
	return env.Unwrap()
}
