package protocol

import (
	"encoding/binary"
	"errors"
)

// Frame header: one byte. Bit 7 selects the frame type; control frames
// carry a 6-bit command in bits 6-1 (bit 0 reserved), data frames carry the
// record count in bits 5-0.
const (
	frameTypeMask  = 0x80
	dataCountMask  = 0x3F
	controlCmdMask = 0x3F

	// MaxRecordsPerFrame is the largest record count a data header can carry.
	MaxRecordsPerFrame = 63
)

// Control command codes.
const (
	CmdAuthReq       byte = 0x00
	CmdAuthOK        byte = 0x01
	CmdStartTripReq  byte = 0x02
	CmdStartTripOK   byte = 0x03
	CmdResumeTripReq byte = 0x04
	CmdResumeTripOK  byte = 0x05
	CmdEndTripReq    byte = 0x06
	CmdEndTripOK     byte = 0x07
	CmdAck           byte = 0x08
	CmdError         byte = 0x09
	CmdPing          byte = 0x0A
	CmdPong          byte = 0x0B
	CmdPauseTripReq  byte = 0x0C
	CmdPauseTripOK   byte = 0x0D
	CmdConfigReq     byte = 0x0E
	CmdConfigAck     byte = 0x0F
)

// Error codes carried in ERROR frame payloads.
const (
	ErrCodeAuthFailed      byte = 1
	ErrCodeInvalidTrip     byte = 2
	ErrCodeMalformedRecord byte = 3
)

// Websocket close codes used when a session is torn down.
const (
	CloseProtocolViolation = 4000
	CloseAuthFailed        = 4001
	CloseInvalidTrip       = 4002
	CloseNotReady          = 4003
	CloseInternal          = 4004
)

var ErrEmptyFrame = errors.New("empty frame")
var ErrTruncatedPayload = errors.New("truncated frame payload")

// Frame is one decoded protocol message.
type Frame struct {
	Data        bool
	Command     byte
	RecordCount int
	Payload     []byte
}

// DecodeFrame splits a raw message into header and payload.
func DecodeFrame(msg []byte) (Frame, error) {
	if len(msg) == 0 {
		return Frame{}, ErrEmptyFrame
	}
	header := msg[0]
	if header&frameTypeMask != 0 {
		return Frame{
			Data:        true,
			RecordCount: int(header & dataCountMask),
			Payload:     msg[1:],
		}, nil
	}
	return Frame{
		Command: (header >> 1) & controlCmdMask,
		Payload: msg[1:],
	}, nil
}

// EncodeControl builds a control frame for cmd with an optional payload.
func EncodeControl(cmd byte, payload []byte) []byte {
	msg := make([]byte, 1, 1+len(payload))
	msg[0] = (cmd & controlCmdMask) << 1
	return append(msg, payload...)
}

// EncodeDataHeader builds a data frame header for count records.
func EncodeDataHeader(count int) byte {
	return frameTypeMask | byte(count&dataCountMask)
}

// EncodeError builds an ERROR frame: 1-byte code plus length-prefixed
// message.
func EncodeError(code byte, msg string) []byte {
	payload := append([]byte{code}, appendLenPrefixed(nil, []byte(msg))...)
	return EncodeControl(CmdError, payload)
}

// EncodeConfigAck carries the ack threshold and the advisory keep-alive
// timers: uint16 threshold, uint32 ping interval ms, uint32 pong timeout ms.
func EncodeConfigAck(ackThreshold uint16, pingIntervalMs, pongTimeoutMs uint32) []byte {
	payload := make([]byte, 10)
	binary.BigEndian.PutUint16(payload[0:2], ackThreshold)
	binary.BigEndian.PutUint32(payload[2:6], pingIntervalMs)
	binary.BigEndian.PutUint32(payload[6:10], pongTimeoutMs)
	return EncodeControl(CmdConfigAck, payload)
}

// appendLenPrefixed appends a 2-byte big-endian length followed by val.
func appendLenPrefixed(dst, val []byte) []byte {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(val)))
	dst = append(dst, l[:]...)
	return append(dst, val...)
}

// readLenPrefixed consumes a 2-byte length and that many bytes from buf,
// returning the value and the remainder.
func readLenPrefixed(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 2 {
		return nil, nil, ErrTruncatedPayload
	}
	n := int(binary.BigEndian.Uint16(buf[0:2]))
	if len(buf) < 2+n {
		return nil, nil, ErrTruncatedPayload
	}
	return buf[2 : 2+n], buf[2+n:], nil
}
