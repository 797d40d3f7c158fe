package alert

import (
	"encoding/json"
	"fmt"
)

// The ledger stores content, sound, and metadata as JSON strings so the
// record schema stays storage-engine-agnostic.

// EncodeContent serializes content to its stored JSON form.
func EncodeContent(c *Content) (string, error) {
	if c == nil {
		return "", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode content: %w: %v", ErrSerialization, err)
	}
	return string(data), nil
}

// DecodeContent deserializes stored JSON into content. An empty string
// decodes to nil.
func DecodeContent(s string) (*Content, error) {
	if s == "" {
		return nil, nil
	}
	var c Content
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil, fmt.Errorf("decode content: %w: %v", ErrSerialization, err)
	}
	return &c, nil
}

// EncodeSound serializes a sound to its stored JSON form.
func EncodeSound(s *Sound) (string, error) {
	if s == nil {
		return "", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode sound: %w: %v", ErrSerialization, err)
	}
	return string(data), nil
}

// DecodeSound deserializes stored JSON into a sound. An empty string
// decodes to nil.
func DecodeSound(s string) (*Sound, error) {
	if s == "" {
		return nil, nil
	}
	var snd Sound
	if err := json.Unmarshal([]byte(s), &snd); err != nil {
		return nil, fmt.Errorf("decode sound: %w: %v", ErrSerialization, err)
	}
	if !snd.Type.IsValid() {
		return nil, fmt.Errorf("decode sound: %w: invalid type %q", ErrSerialization, string(snd.Type))
	}
	return &snd, nil
}

// EncodeMetadata serializes metadata to its stored JSON form.
func EncodeMetadata(m Metadata) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w: %v", ErrSerialization, err)
	}
	return string(data), nil
}

// DecodeMetadata deserializes stored JSON into metadata. An empty string
// decodes to nil.
func DecodeMetadata(s string) (Metadata, error) {
	if s == "" {
		return nil, nil
	}
	var m Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w: %v", ErrSerialization, err)
	}
	return m, nil
}
