package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameTooLarge is returned when a frame header announces a payload
	// above the framer's limit. The stream cannot be resynchronized.
	ErrFrameTooLarge = errors.New("rpc: frame too large")

	// ErrMalformedFrame is returned when a complete payload fails to decode.
	// The frame has already been consumed, so decoding can continue.
	ErrMalformedFrame = errors.New("rpc: malformed frame")

	// ErrUnknownMessageType is returned for a message type other than
	// request, response or notification.
	ErrUnknownMessageType = errors.New("rpc: unknown message type")
)

// Type is the message kind carried in the first payload element.
type Type uint8

const (
	Request      Type = 0
	Response     Type = 1
	Notification Type = 2
)

func (t Type) String() string {
	switch t {
	case Request:
		return "request"
	case Response:
		return "response"
	case Notification:
		return "notification"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

func (t Type) valid() bool { return t <= Notification }

// Message is one decoded frame. Params and Error hold codec-encoded values
// and are decoded on demand with Codec.Decode. Error is nil for successful
// responses and for requests and notifications.
type Message struct {
	Type   Type
	ID     uint32
	Method string
	Error  []byte
	Params []byte

	// Raw is the whole payload. For decoded messages it lives in arena memory.
	Raw []byte
}

// NewRequest builds a request with params encoded by c.
func NewRequest(c Codec, id uint32, method string, params any) (Message, error) {
	body, err := c.Encode(params)
	if err != nil {
		return Message{}, fmt.Errorf("encode params of %s: %w", method, err)
	}
	return Message{Type: Request, ID: id, Method: method, Params: body}, nil
}

// NewNotification builds a notification with params encoded by c.
func NewNotification(c Codec, method string, params any) (Message, error) {
	body, err := c.Encode(params)
	if err != nil {
		return Message{}, fmt.Errorf("encode params of %s: %w", method, err)
	}
	return Message{Type: Notification, Method: method, Params: body}, nil
}

// NewResponse builds a response to request id. A nil errValue marks success.
func NewResponse(c Codec, id uint32, errValue, result any) (Message, error) {
	m := Message{Type: Response, ID: id}
	if errValue != nil {
		head, err := c.Encode(errValue)
		if err != nil {
			return Message{}, fmt.Errorf("encode error of response %d: %w", id, err)
		}
		m.Error = head
	}
	body, err := c.Encode(result)
	if err != nil {
		return Message{}, fmt.Errorf("encode result of response %d: %w", id, err)
	}
	m.Params = body
	return m, nil
}
