package main

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	welcomeEvent   = "WELCOME"
	welcomeMessage = "Please register your code"
	registerEvent  = "REGISTER"
)

// frame is the unit exchanged over a websocket, one per text message.
//
//     {"event": "REGISTER", "data": {"code": "abc123"}}
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type registration struct {
	Code string `json:"code"`
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s data", event)
	}
	text, err := json.Marshal(frame{Event: event, Data: raw})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s frame", event)
	}
	return text, nil
}

func decodeFrame(text []byte) (frame, error) {
	var f frame
	if err := json.Unmarshal(text, &f); err != nil {
		return f, errors.Wrap(err, "decode frame")
	}
	if f.Event == "" {
		return f, errors.New("frame has no event name")
	}
	return f, nil
}

// registeredCode extracts the code from a REGISTER frame. A missing or
// malformed code yields "".
func (f frame) registeredCode() string {
	var r registration
	if len(f.Data) == 0 || json.Unmarshal(f.Data, &r) != nil {
		return ""
	}
	return r.Code
}

var welcomeFrame = func() []byte {
	text, err := encodeFrame(welcomeEvent, map[string]string{"message": welcomeMessage})
	if err != nil {
		panic(err)
	}
	return text
}()

// normalizeEvent maps an event name to the form clients subscribe to:
// "my event" becomes "MY_EVENT".
func normalizeEvent(name string) string {
	return strings.ReplaceAll(strings.ToUpper(name), " ", "_")
}

type field struct {
	key, value string
}

// payload is the data forwarded with a notify event: every query parameter,
// in order of first appearance. A repeated key keeps its first position and
// its last value.
type payload []field

func parsePayload(rawQuery string) (payload, error) {
	var p payload
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		if strings.Contains(part, ";") {
			return nil, errors.New("invalid semicolon separator in query")
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, errors.Wrapf(err, "decode query key %q", k)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, errors.Wrapf(err, "decode query value for %q", key)
		}
		p = p.set(key, value)
	}
	return p, nil
}

func (p payload) set(key, value string) payload {
	for i := range p {
		if p[i].key == key {
			p[i].value = value
			return p
		}
	}
	return append(p, field{key, value})
}

func (p payload) get(key string) string {
	for _, f := range p {
		if f.key == key {
			return f.value
		}
	}
	return ""
}

func (p payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
