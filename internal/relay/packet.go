package relay

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Packet is one captured response body with the URL it was served from.
type Packet struct {
	URL        string    `msgpack:"url"`
	Data       []byte    `msgpack:"data"`
	CapturedAt time.Time `msgpack:"captured_at"`
}

func encodePacket(p Packet) ([]byte, error) {
	b, err := msgpack.Marshal(&p)
	if err != nil {
		return nil, fmt.Errorf("encode packet: %w", err)
	}
	return b, nil
}

func decodePacket(b []byte) (Packet, error) {
	var p Packet
	if err := msgpack.Unmarshal(b, &p); err != nil {
		return Packet{}, fmt.Errorf("decode packet: %w", err)
	}
	return p, nil
}
