package sphero

import (
	"fmt"

	"github.com/pkg/errors"
)

// API v2 framing.  Everything between SOP and EOP is escaped so neither marker can appear
// inside a packet.
const (
	SOP    = 0x8D
	EOP    = 0xD8
	Escape = 0xAB

	escapeMask = 0x88
)

const (
	FlagIsResponse                = 0x01
	FlagRequestsResponse          = 0x02
	FlagRequestsOnlyErrorResponse = 0x04
	FlagIsActivity                = 0x08
	FlagHasTargetID               = 0x10
	FlagHasSourceID               = 0x20
	FlagExtendedFlags             = 0x80
)

// Packet is one decoded API v2 message.
type Packet struct {
	Flags    byte
	TargetID byte
	SourceID byte
	DID      byte
	CID      byte
	Seq      byte
	// ErrCode is only present on responses; 0 means success.
	ErrCode byte
	Data    []byte
}

func (p *Packet) IsResponse() bool {
	return p.Flags&FlagIsResponse != 0
}

func (p *Packet) String() string {
	return fmt.Sprintf("packet(flags=%#02x did=%#02x cid=%#02x seq=%d err=%d data=% x)",
		p.Flags, p.DID, p.CID, p.Seq, p.ErrCode, p.Data)
}

func (p *Packet) body() []byte {
	b := []byte{p.Flags}
	if p.Flags&FlagHasTargetID != 0 {
		b = append(b, p.TargetID)
	}
	if p.Flags&FlagHasSourceID != 0 {
		b = append(b, p.SourceID)
	}
	b = append(b, p.DID, p.CID, p.Seq)
	if p.IsResponse() {
		b = append(b, p.ErrCode)
	}
	return append(b, p.Data...)
}

// Encode returns the framed, escaped bytes ready for the wire.
func (p *Packet) Encode() []byte {
	body := p.body()
	body = append(body, checksum(body))

	out := make([]byte, 0, len(body)+4)
	out = append(out, SOP)
	for _, b := range body {
		switch b {
		case SOP, EOP, Escape:
			out = append(out, Escape, b&^escapeMask)
		default:
			out = append(out, b)
		}
	}
	return append(out, EOP)
}

func checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return ^sum
}

func parseBody(b []byte) (*Packet, error) {
	if len(b) < 5 {
		return nil, errors.Errorf("packet too short (%d bytes)", len(b))
	}
	var sum byte
	for _, v := range b {
		sum += v
	}
	if sum != 0xFF {
		return nil, errors.Errorf("bad checksum on % x", b)
	}
	b = b[:len(b)-1]

	p := &Packet{Flags: b[0]}
	i := 1
	need := func(n int) error {
		if len(b) < i+n {
			return errors.Errorf("truncated packet % x", b)
		}
		return nil
	}
	if p.Flags&FlagHasTargetID != 0 {
		if err := need(1); err != nil {
			return nil, err
		}
		p.TargetID = b[i]
		i++
	}
	if p.Flags&FlagHasSourceID != 0 {
		if err := need(1); err != nil {
			return nil, err
		}
		p.SourceID = b[i]
		i++
	}
	if err := need(3); err != nil {
		return nil, err
	}
	p.DID, p.CID, p.Seq = b[i], b[i+1], b[i+2]
	i += 3
	if p.IsResponse() {
		if err := need(1); err != nil {
			return nil, err
		}
		p.ErrCode = b[i]
		i++
	}
	p.Data = append([]byte(nil), b[i:]...)
	return p, nil
}

// Decoder reassembles packets from a byte stream that may be split at any point.  Bytes
// outside SOP..EOP are discarded.
type Decoder struct {
	inPacket bool
	escaping bool
	buf      []byte

	// Dropped counts malformed packets that were thrown away.
	Dropped int
}

func (d *Decoder) Feed(chunk []byte) []*Packet {
	var packets []*Packet
	for _, b := range chunk {
		switch {
		case b == SOP:
			if d.inPacket {
				d.Dropped++
			}
			d.inPacket = true
			d.escaping = false
			d.buf = d.buf[:0]
		case !d.inPacket:
			// Line noise between packets.
		case b == EOP:
			d.inPacket = false
			if d.escaping {
				d.Dropped++
				continue
			}
			p, err := parseBody(d.buf)
			if err != nil {
				fmt.Println("Toy: dropping packet:", err)
				d.Dropped++
				continue
			}
			packets = append(packets, p)
		case b == Escape:
			d.escaping = true
		case d.escaping:
			d.buf = append(d.buf, b|escapeMask)
			d.escaping = false
		default:
			d.buf = append(d.buf, b)
		}
	}
	return packets
}
