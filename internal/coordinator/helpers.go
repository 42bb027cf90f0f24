package coordinator

import "encoding/json"

// decodeResponse normalizes an idempotency.Outcome.Response into T. On the
// fresh-execution path Response is already a T; on the replayed path it was
// JSON-decoded into a generic map by the envelope. Round-tripping through
// JSON unconditionally keeps both paths identical for callers.
func decodeResponse[T any](v interface{}) (T, error) {
	var out T
	if v == nil {
		return out, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
