package messaging

import (
	"encoding/json"
	"fmt"
	"mime"

	"github.com/fxamacker/cbor/v2"
)

// Content types of message bodies.
const (
	ContentTypeJSON = "application/json"
	ContentTypeCBOR = "application/cbor"
)

// Codec encodes and decodes message bodies.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec uses encoding/json.
type JSONCodec struct{}

func (JSONCodec) ContentType() string { return ContentTypeJSON }

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// CBORCodec uses Core Deterministic Encoding, so equal messages encode to equal bytes.
// Unknown fields are ignored when decoding.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec creates the CBOR codec.
func NewCBORCodec() (*CBORCodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor decoder: %w", err)
	}
	return &CBORCodec{enc: enc, dec: dec}, nil
}

func (c *CBORCodec) ContentType() string { return ContentTypeCBOR }

func (c *CBORCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

func (c *CBORCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

// Codecs selects a codec by content type.
type Codecs struct {
	byType   map[string]Codec
	fallback Codec
}

// NewCodecs registers JSON and CBOR. An empty content type falls back to JSON.
func NewCodecs() (*Codecs, error) {
	cborCodec, err := NewCBORCodec()
	if err != nil {
		return nil, err
	}
	jsonCodec := JSONCodec{}
	return &Codecs{
		byType: map[string]Codec{
			ContentTypeJSON: jsonCodec,
			ContentTypeCBOR: cborCodec,
		},
		fallback: jsonCodec,
	}, nil
}

// For returns the codec for contentType. Parameters such as charset are ignored.
func (c *Codecs) For(contentType string) (Codec, error) {
	if contentType == "" {
		return c.fallback, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("invalid content type %q: %w", contentType, err)
	}
	codec, ok := c.byType[mediaType]
	if !ok {
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}
	return codec, nil
}
