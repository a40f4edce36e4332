package watcher

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
)

// Methods is a channel list that decodes from a JSON string or array.
type Methods []string

// UnmarshalJSON accepts "email", ["email","push"] and null. An entry that is
// not a string is kept as its raw JSON text: it names no channel, so the
// list resolves to all available channels instead of failing the request.
func (m *Methods) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*m = nil
		} else {
			*m = Methods{one}
		}
		return nil
	}
	var many []json.RawMessage
	if err := json.Unmarshal(data, &many); err != nil {
		*m = Methods{string(data)}
		return nil
	}
	out := make(Methods, 0, len(many))
	for _, raw := range many {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			name = string(raw)
		}
		out = append(out, name)
	}
	*m = out
	return nil
}

// decodeCheckBody builds a CheckRequest from a POST body. Each field decodes
// on its own so a bad method list or parameter bag never hides the url. A
// body that is not a JSON object carries no usable url.
func decodeCheckBody(r io.Reader) (CheckRequest, error) {
	var req CheckRequest
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&fields); err != nil {
		return req, nil
	}
	if raw, ok := fields["url"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &req.URL); err != nil {
			return req, invalid("url must be a string")
		}
	}
	if raw, ok := fields["method"]; ok {
		req.Methods.UnmarshalJSON(raw)
	}
	if raw, ok := fields["channel_params"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &req.ChannelParams); err != nil {
			return req, invalid("channel_params must map channel names to objects")
		}
	}
	if raw, ok := fields["push_params"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &req.PushParams); err != nil {
			return req, invalid("push_params must be an object")
		}
	}
	return req, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseQuery builds a CheckRequest from GET query parameters: url, repeated
// method, and JSON-encoded channel_params and push_params.
func parseQuery(q url.Values) (CheckRequest, error) {
	req := CheckRequest{
		URL:     q.Get("url"),
		Methods: Methods(q["method"]),
	}
	if raw := q.Get("channel_params"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.ChannelParams); err != nil {
			return req, invalid("channel_params: %v", err)
		}
	}
	if raw := q.Get("push_params"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.PushParams); err != nil {
			return req, invalid("push_params: %v", err)
		}
	}
	return req, nil
}
