// Package tlv implements the tag-length-value byte format used throughout
// the HomeKit Accessory Protocol for pairing and pairing-admin messages.
package tlv

import "fmt"

// Tag identifies a single TLV field.
type Tag byte

// Tags defined by the HAP pairing and pairing-admin messages.
const (
	TagRequestType    Tag = 0x00
	TagUsername       Tag = 0x01
	TagSalt           Tag = 0x02
	TagPublicKey      Tag = 0x03
	TagPasswordProof  Tag = 0x04
	TagEncryptedData  Tag = 0x05
	TagSequenceNumber Tag = 0x06
	TagErrorCode      Tag = 0x07
	TagProof          Tag = 0x0A
	TagPermissions    Tag = 0x0B
	TagSeparator      Tag = 0xFF
)

// chunkSize is the maximum length of a single length-prefixed TLV value.
// Values longer than this are split across consecutive same-tag entries.
const chunkSize = 255

// Container is a decoded TLV message: a tag maps to the concatenation of
// every (possibly chunked) occurrence of that tag in encounter order.
type Container map[Tag][]byte

// Get returns the bytes stored for tag, and whether the tag was present.
func (c Container) Get(tag Tag) ([]byte, bool) {
	v, ok := c[tag]
	return v, ok
}

// GetByte returns the first byte stored for tag, or 0 if absent or empty.
func (c Container) GetByte(tag Tag) byte {
	v, ok := c[tag]
	if !ok || len(v) == 0 {
		return 0
	}
	return v[0]
}

// pair is a single tag/value pair passed to Encode.
type pair struct {
	tag   Tag
	value []byte
}

// Pair constructs a tag/value pair for use with Encode.
func Pair(tag Tag, value []byte) pair {
	return pair{tag: tag, value: value}
}

// Encode serializes the given tag/value pairs in order. A value longer than
// 255 bytes is split into 255-byte chunks, each prefixed by the same tag,
// followed by a final chunk (possibly empty) carrying the true remaining
// length.
func Encode(pairs ...pair) []byte {
	var out []byte
	for _, p := range pairs {
		out = append(out, encodeOne(p.tag, p.value)...)
	}
	return out
}

func encodeOne(tag Tag, value []byte) []byte {
	if len(value) <= chunkSize {
		out := make([]byte, 0, len(value)+2)
		out = append(out, byte(tag), byte(len(value)))
		out = append(out, value...)
		return out
	}

	var out []byte
	i := 0
	for ; i+chunkSize <= len(value); i += chunkSize {
		out = append(out, byte(tag), 0xFF)
		out = append(out, value[i:i+chunkSize]...)
	}
	remaining := value[i:]
	out = append(out, byte(tag), byte(len(remaining)))
	out = append(out, remaining...)
	return out
}

// Decode walks data as a sequence of (tag, length, value) triples. Every
// occurrence of a tag, adjacent or not, is concatenated in encounter order —
// this is how chunked (>255 byte) values are reassembled; callers that need
// list semantics separate entries with TagSeparator.
func Decode(data []byte) (Container, error) {
	out := Container{}
	i := 0
	for i < len(data) {
		if i+2 > len(data) {
			return nil, fmt.Errorf("tlv: truncated length header at offset %d", i)
		}
		tag := Tag(data[i])
		length := int(data[i+1])
		i += 2
		if i+length > len(data) {
			return nil, fmt.Errorf("tlv: truncated value for tag %#x at offset %d", tag, i)
		}
		value := data[i : i+length]
		i += length

		out[tag] = append(out[tag], value...)
	}
	return out, nil
}
