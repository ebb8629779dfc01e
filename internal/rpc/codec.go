package rpc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"unicode/utf8"
	"unsafe"

	"github.com/bytedance/sonic"
	"github.com/fxamacker/cbor/v2"

	"github.com/GriffinCanCode/editorhost/internal/arena"
)

// Codec encodes message envelopes and the values they carry.
//
// DecodeMessage leaves m.Method, m.Params and m.Error aliasing data where
// the wire bytes allow it and copies them into a otherwise, so nothing it
// decodes outlives the arena's next Reset when data is arena memory.
type Codec interface {
	Name() string
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	EncodeMessage(m *Message) ([]byte, error)
	DecodeMessage(data []byte, m *Message, a *arena.Arena) error
}

// CodecByName returns the codec registered under name ("cbor" or "json").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "cbor":
		return CBOR(), nil
	case "json":
		return JSON(), nil
	default:
		return nil, fmt.Errorf("rpc: unknown codec %q", name)
	}
}

// CBORCodec encodes envelopes as CBOR arrays.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var cborCodec = newCBORCodec()

func newCBORCodec() *CBORCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{
		MaxNestedLevels: 64,
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return &CBORCodec{enc: enc, dec: dec}
}

// CBOR returns the shared CBOR codec.
func CBOR() *CBORCodec { return cborCodec }

type cborEnvelope struct {
	_    struct{} `cbor:",toarray"`
	Type Type
	ID   uint32
	Head cbor.RawMessage
	Body cbor.RawMessage
}

// cborSpan captures an element's encoded bytes without copying them.
type cborSpan []byte

func (s *cborSpan) UnmarshalCBOR(data []byte) error {
	*s = data
	return nil
}

type cborFrame struct {
	_    struct{} `cbor:",toarray"`
	Type Type
	ID   uint32
	Head cborSpan
	Body cborSpan
}

func (c *CBORCodec) Name() string { return "cbor" }

func (c *CBORCodec) Encode(v any) ([]byte, error) { return c.enc.Marshal(v) }

func (c *CBORCodec) Decode(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

func (c *CBORCodec) EncodeMessage(m *Message) ([]byte, error) {
	env := cborEnvelope{Type: m.Type, ID: m.ID, Body: m.Params}
	switch m.Type {
	case Request, Notification:
		head, err := c.enc.Marshal(m.Method)
		if err != nil {
			return nil, err
		}
		env.Head = head
	case Response:
		env.Head = m.Error
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, m.Type)
	}
	return c.enc.Marshal(env)
}

func (c *CBORCodec) DecodeMessage(data []byte, m *Message, a *arena.Arena) error {
	var env cborFrame
	if err := c.dec.Unmarshal(data, &env); err != nil {
		return err
	}
	if !env.Type.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMessageType, env.Type)
	}
	m.Type = env.Type
	m.ID = env.ID
	m.Method = ""
	m.Error = nil
	head := resident(data, env.Head, a)
	if env.Type == Response {
		m.Error = cborValue(head)
	} else if text, ok := cborText(head); ok {
		m.Method = unsafeString(text)
	} else if cborValue(head) != nil {
		var method string
		if err := c.dec.Unmarshal(head, &method); err != nil {
			return fmt.Errorf("method: %w", err)
		}
		m.Method = a.String([]byte(method))
	}
	m.Params = cborValue(resident(data, env.Body, a))
	return nil
}

// cborText returns the contents of a definite-length UTF-8 text string.
func cborText(p []byte) ([]byte, bool) {
	if len(p) == 0 || p[0]>>5 != 3 {
		return nil, false
	}
	var n uint64
	hdr := 1
	switch info := p[0] & 0x1f; {
	case info < 24:
		n = uint64(info)
	case info == 24 && len(p) >= 2:
		n, hdr = uint64(p[1]), 2
	case info == 25 && len(p) >= 3:
		n, hdr = uint64(binary.BigEndian.Uint16(p[1:])), 3
	case info == 26 && len(p) >= 5:
		n, hdr = uint64(binary.BigEndian.Uint32(p[1:])), 5
	case info == 27 && len(p) >= 9:
		n, hdr = binary.BigEndian.Uint64(p[1:]), 9
	default:
		return nil, false
	}
	if uint64(len(p)-hdr) != n || !utf8.Valid(p[hdr:]) {
		return nil, false
	}
	return p[hdr:], true
}

// cborValue maps CBOR null and undefined to nil.
func cborValue(raw cbor.RawMessage) []byte {
	if len(raw) == 0 || (len(raw) == 1 && (raw[0] == 0xf6 || raw[0] == 0xf7)) {
		return nil
	}
	return raw
}

// JSONCodec encodes envelopes as JSON arrays using sonic.
type JSONCodec struct {
	api sonic.API
}

var jsonCodec = &JSONCodec{api: sonic.ConfigStd}

// JSON returns the shared JSON codec.
func JSON() *JSONCodec { return jsonCodec }

var jsonNull = json.RawMessage("null")

// jsonSpan captures an element's encoded bytes. They alias the decoder's
// input and are moved into the arena before Unmarshal's caller returns.
type jsonSpan []byte

func (s *jsonSpan) UnmarshalJSON(data []byte) error {
	*s = data
	return nil
}

func (c *JSONCodec) Name() string { return "json" }

func (c *JSONCodec) Encode(v any) ([]byte, error) { return c.api.Marshal(v) }

func (c *JSONCodec) Decode(data []byte, v any) error { return c.api.Unmarshal(data, v) }

func (c *JSONCodec) EncodeMessage(m *Message) ([]byte, error) {
	var head json.RawMessage
	switch m.Type {
	case Request, Notification:
		b, err := c.api.Marshal(m.Method)
		if err != nil {
			return nil, err
		}
		head = b
	case Response:
		head = orNull(m.Error)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, m.Type)
	}
	return c.api.Marshal([]any{m.Type, m.ID, head, orNull(m.Params)})
}

func (c *JSONCodec) DecodeMessage(data []byte, m *Message, a *arena.Arena) error {
	var parts []jsonSpan
	if err := c.api.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 4 {
		return fmt.Errorf("envelope has %d elements, want 4", len(parts))
	}
	var typ Type
	if err := c.api.Unmarshal(parts[0], &typ); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	if !typ.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMessageType, typ)
	}
	m.Type = typ
	if err := c.api.Unmarshal(parts[1], &m.ID); err != nil {
		return fmt.Errorf("msgid: %w", err)
	}
	m.Method = ""
	m.Error = nil
	head := resident(data, parts[2], a)
	if typ == Response {
		m.Error = jsonValue(head)
	} else if text, ok := jsonText(head); ok {
		m.Method = unsafeString(text)
	} else if jsonValue(head) != nil {
		var method string
		if err := c.api.Unmarshal(head, &method); err != nil {
			return fmt.Errorf("method: %w", err)
		}
		m.Method = a.String([]byte(method))
	}
	m.Params = jsonValue(resident(data, parts[3], a))
	return nil
}

// jsonText returns the contents of a quoted string that needs no unescaping.
func jsonText(p []byte) ([]byte, bool) {
	if len(p) < 2 || p[0] != '"' || p[len(p)-1] != '"' {
		return nil, false
	}
	body := p[1 : len(p)-1]
	for _, b := range body {
		if b == '\\' || b == '"' || b < 0x20 {
			return nil, false
		}
	}
	return body, utf8.Valid(body)
}

func orNull(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return jsonNull
	}
	return raw
}

func jsonValue(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

// resident returns p when it lies inside data and an arena copy otherwise.
func resident(data, p []byte, a *arena.Arena) []byte {
	if len(p) == 0 || within(data, p) {
		return p
	}
	return a.Copy(p)
}

func within(data, p []byte) bool {
	if len(data) == 0 {
		return false
	}
	lo := uintptr(unsafe.Pointer(unsafe.SliceData(data)))
	q := uintptr(unsafe.Pointer(unsafe.SliceData(p)))
	return q >= lo && q+uintptr(len(p)) <= lo+uintptr(len(data))
}

func unsafeString(p []byte) string {
	if len(p) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(p), len(p))
}
