package bridge

import (
	"encoding/binary"
	"fmt"

	"github.com/herlein/isdbtune/pkg/bus"
)

// encodeCommand builds an EP5 command packet
// Protocol: app(1) + cmd(1) + length(2 LE) + payload
func encodeCommand(app, cmd uint8, payload []byte) []byte {
	packet := make([]byte, headerLen+len(payload))
	packet[0] = app
	packet[1] = cmd
	binary.LittleEndian.PutUint16(packet[2:4], uint16(len(payload)))
	copy(packet[headerLen:], payload)
	return packet
}

// parseResponse looks for a complete response to app/cmd in buf. It returns
// the payload and the unconsumed remainder. When no matching response is
// complete, ok is false and rest is what should be kept buffered.
// Response format: '@'(1) + app(1) + cmd(1) + length(2 LE) + payload
func parseResponse(buf []byte, app, cmd uint8) (payload, rest []byte, ok bool) {
	for {
		markerIdx := -1
		for i, b := range buf {
			if b == ResponseMarker {
				markerIdx = i
				break
			}
		}
		if markerIdx == -1 {
			return nil, buf[:0], false
		}

		// Discard any data before the marker
		data := buf[markerIdx:]
		if len(data) < responseHeader {
			return nil, data, false
		}
		length := int(binary.LittleEndian.Uint16(data[3:5]))
		total := responseHeader + length
		if len(data) < total {
			return nil, data, false
		}

		if data[1] != app || data[2] != cmd {
			// A stale response; skip past it
			buf = data[total:]
			continue
		}
		payload = make([]byte, length)
		copy(payload, data[responseHeader:total])
		return payload, data[total:], true
	}
}

// encodeXfer encodes a combined transaction
// Payload: count(1) + per segment addr(2 LE) + flags(1) + length(2 LE) + write data
func encodeXfer(msgs []bus.Msg) ([]byte, error) {
	if len(msgs) == 0 || len(msgs) > maxSegments {
		return nil, fmt.Errorf("%w: %d segments", ErrTooLarge, len(msgs))
	}
	payload := []byte{uint8(len(msgs))}
	for _, m := range msgs {
		var flags uint8
		if m.Read {
			flags |= SegRead
		}
		payload = binary.LittleEndian.AppendUint16(payload, m.Addr)
		payload = append(payload, flags)
		payload = binary.LittleEndian.AppendUint16(payload, uint16(len(m.Data)))
		if !m.Read {
			payload = append(payload, m.Data...)
		}
	}
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}
	return payload, nil
}

// decodeXfer checks the status of a transaction response and copies read
// data into the read segments
// Response: status(1) + failed segment(1) + read data in segment order
func decodeXfer(resp []byte, msgs []bus.Msg) error {
	if len(resp) < 2 {
		return fmt.Errorf("%w: %d byte transfer response", ErrProtocol, len(resp))
	}
	switch resp[0] {
	case StatusOK:
	case StatusNAK:
		return fmt.Errorf("%w: segment %d", ErrNAK, resp[1])
	case StatusBusErr:
		return fmt.Errorf("%w: segment %d", ErrBusFault, resp[1])
	default:
		return fmt.Errorf("%w: status 0x%02X", ErrProtocol, resp[0])
	}

	data := resp[2:]
	for _, m := range msgs {
		if !m.Read {
			continue
		}
		if len(data) < len(m.Data) {
			return fmt.Errorf("%w: short read data", ErrProtocol)
		}
		copy(m.Data, data[:len(m.Data)])
		data = data[len(m.Data):]
	}
	if len(data) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrProtocol, len(data))
	}
	return nil
}
