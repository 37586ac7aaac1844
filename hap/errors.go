// Package hap implements the pairing state machines and the paired HTTP
// endpoints of the HomeKit Accessory Protocol (§4.4–§4.6). It operates on
// the wire-level TLV/JSON payloads; package conn owns the actual HTTP
// connection and dispatches into here.
package hap

import "github.com/ivucica/go-hap/tlv"

// ErrorCode is a HAP pairing TLV error value (§4.4).
type ErrorCode byte

// Error codes defined by HAP pairing.
const (
	ErrUnknown        ErrorCode = 0x01
	ErrAuthentication ErrorCode = 0x02
	ErrBackoff        ErrorCode = 0x03
	ErrMaxPeers       ErrorCode = 0x04
	ErrMaxTries       ErrorCode = 0x05
	ErrUnavailable    ErrorCode = 0x06
	ErrBusy           ErrorCode = 0x07
)

// Sequence numbers used by the pair-setup and pair-verify TLV exchanges.
const (
	seqM1 byte = 1
	seqM2 byte = 2
	seqM3 byte = 3
	seqM4 byte = 4
	seqM5 byte = 5
	seqM6 byte = 6
)

// errorResponse builds the TLV body HAP expects when a pairing step fails:
// {SEQ=seq, ERROR=code}.
func errorResponse(seq byte, code ErrorCode) []byte {
	return tlv.Encode(
		tlv.Pair(tlv.TagSequenceNumber, []byte{seq}),
		tlv.Pair(tlv.TagErrorCode, []byte{byte(code)}),
	)
}

// Characteristic-status codes used by GET/PUT /characteristics (§4.6, §7).
const (
	StatusUnprivileged         = -70401
	StatusCommunicationFailure = -70402
	StatusReadOnly             = -70404
	StatusWriteOnly            = -70405
	StatusInvalidValue         = -70410
)
