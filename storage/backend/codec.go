package backend

import (
	"encoding/json"

	"github.com/taskflow-go/taskflow"
)

// resultEnvelope is the on-wire shape for TaskDetail.Results, distinguishing
// an ordinary result from a captured *taskflow.Failure so that SQL-backed
// stores round-trip both without losing the distinction.
type resultEnvelope struct {
	Failure bool            `json:"failure,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`

	// Failure detail, only populated when Failure is true.
	ExceptionType string `json:"exception_type,omitempty"`
	ErrorText     string `json:"error_text,omitempty"`
	Traceback     string `json:"traceback,omitempty"`
}

func encodeResults(results any) ([]byte, error) {
	if results == nil {
		return nil, nil
	}
	if f, ok := results.(*taskflow.Failure); ok {
		env := resultEnvelope{Failure: true, ExceptionType: f.ExceptionType, Traceback: f.Traceback}
		if f.Err != nil {
			env.ErrorText = f.Err.Error()
		}
		return json.Marshal(env)
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resultEnvelope{Value: raw})
}

func decodeResults(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var env resultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Failure {
		var err error
		if env.ErrorText != "" {
			err = errorString(env.ErrorText)
		}
		return &taskflow.Failure{Err: err, ExceptionType: env.ExceptionType, Traceback: env.Traceback}, nil
	}
	if len(env.Value) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(env.Value, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func encodeMeta(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	return json.Marshal(meta)
}

func decodeMeta(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// errorString is the minimal error type needed to reconstruct a Failure's
// Err field from its persisted message text; it deliberately carries no
// stack or type information beyond what resultEnvelope already stores
// separately (ExceptionType, Traceback).
type errorString string

func (e errorString) Error() string { return string(e) }
