package wire

import (
	"fmt"
	"io"
)

// Command identifies a GossipRecord's purpose on the wire.
type Command uint8

const (
	CmdConnect      Command = 1
	CmdDisconnect   Command = 2
	CmdGossipGet    Command = 4
	CmdMessage      Command = 10
	CmdSuspect      Command = 11
	CmdPing         Command = 12
	CmdClose        Command = 13
	CmdConnectOK    Command = 14
	CmdOpFail       Command = 15
	CmdDisconnectOK Command = 16
)

func (c Command) String() string {
	switch c {
	case CmdConnect:
		return "CONNECT"
	case CmdDisconnect:
		return "DISCONNECT"
	case CmdGossipGet:
		return "GOSSIP_GET"
	case CmdMessage:
		return "MESSAGE"
	case CmdSuspect:
		return "SUSPECT"
	case CmdPing:
		return "PING"
	case CmdClose:
		return "CLOSE"
	case CmdConnectOK:
		return "CONNECT_OK"
	case CmdOpFail:
		return "OP_FAIL"
	case CmdDisconnectOK:
		return "DISCONNECT_OK"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(c))
	}
}

// GossipRecord is the single on-the-wire message envelope. Every field
// past Command is optional; presence is carried by each field's own wire
// flag, not by the command type, so a decoder does not need to know the
// command to read the rest of the record.
type GossipRecord struct {
	Command     Command
	Group       *string
	Addr        *LogicalAddress
	LogicalName *string
	Physical    *PhysicalAddress
	Payload     []byte
}

// Encode writes the record in the fixed field order the wire format
// requires: command, group, addr, logical_name, physical, payload. Callers
// must Flush the Writer to push the record onto the stream.
func (rec *GossipRecord) Encode(w *Writer) error {
	if err := w.WriteUint8(uint8(rec.Command)); err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	if err := w.WriteASCIIString(rec.Group); err != nil {
		return fmt.Errorf("encode group: %w", err)
	}
	if err := w.WriteLogicalAddress(rec.Addr); err != nil {
		return fmt.Errorf("encode addr: %w", err)
	}
	if err := w.WriteASCIIString(rec.LogicalName); err != nil {
		return fmt.Errorf("encode logical_name: %w", err)
	}
	if err := w.WritePhysicalAddress(rec.Physical); err != nil {
		return fmt.Errorf("encode physical: %w", err)
	}
	if err := w.WriteByteBlock(rec.Payload); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return nil
}

// DecodeGossipRecord reads one record in the same fixed field order Encode
// writes. A read failure on the first byte (command) that is io.EOF is
// returned unwrapped so callers can distinguish a clean peer disconnect
// from a mid-record framing fault.
func DecodeGossipRecord(r *Reader) (*GossipRecord, error) {
	cmd, err := r.ReadUint8()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode command: %w", err)
	}
	rec := &GossipRecord{Command: Command(cmd)}
	if rec.Group, err = r.ReadASCIIString(); err != nil {
		return nil, fmt.Errorf("decode group: %w", err)
	}
	if rec.Addr, err = r.ReadLogicalAddress(); err != nil {
		return nil, fmt.Errorf("decode addr: %w", err)
	}
	if rec.LogicalName, err = r.ReadASCIIString(); err != nil {
		return nil, fmt.Errorf("decode logical_name: %w", err)
	}
	if rec.Physical, err = r.ReadPhysicalAddress(); err != nil {
		return nil, fmt.Errorf("decode physical: %w", err)
	}
	if rec.Payload, err = r.ReadByteBlock(); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return rec, nil
}

// PingData is one entry of a GOSSIP_GET reply: a group member's identity
// and last-known physical address.
type PingData struct {
	LogicalAddr LogicalAddress
	IsServer    bool
	LogicalName *string
	Physical    *PhysicalAddress
}

// Encode writes the PingData wire form used inside a GOSSIP_GET reply.
func (p *PingData) Encode(w *Writer) error {
	if err := w.WriteLogicalAddress(&p.LogicalAddr); err != nil {
		return fmt.Errorf("encode ping logical_addr: %w", err)
	}
	isServer := uint8(0)
	if p.IsServer {
		isServer = 1
	}
	if err := w.WriteUint8(isServer); err != nil {
		return fmt.Errorf("encode ping is_server: %w", err)
	}
	if err := w.WriteASCIIString(p.LogicalName); err != nil {
		return fmt.Errorf("encode ping logical_name: %w", err)
	}
	if err := w.WritePhysicalAddress(p.Physical); err != nil {
		return fmt.Errorf("encode ping physical: %w", err)
	}
	return nil
}

// DecodePingData reads the wire form written by PingData.Encode.
func DecodePingData(r *Reader) (*PingData, error) {
	addr, err := r.ReadLogicalAddress()
	if err != nil {
		return nil, fmt.Errorf("decode ping logical_addr: %w", err)
	}
	if addr == nil {
		return nil, fmt.Errorf("ping logical_addr must not be null")
	}
	isServer, err := r.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("decode ping is_server: %w", err)
	}
	p := &PingData{LogicalAddr: *addr, IsServer: isServer != 0}
	if p.LogicalName, err = r.ReadASCIIString(); err != nil {
		return nil, fmt.Errorf("decode ping logical_name: %w", err)
	}
	if p.Physical, err = r.ReadPhysicalAddress(); err != nil {
		return nil, fmt.Errorf("decode ping physical: %w", err)
	}
	return p, nil
}

// WriteGossipGetReply writes the GOSSIP_GET reply wire form: a 16-bit
// big-endian count followed by that many PingData records.
func WriteGossipGetReply(w *Writer, members []PingData) error {
	if len(members) > 1<<16-1 {
		return fmt.Errorf("too many members for one reply: %d", len(members))
	}
	if err := w.WriteUint16(uint16(len(members))); err != nil {
		return fmt.Errorf("encode member count: %w", err)
	}
	for i := range members {
		if err := members[i].Encode(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadGossipGetReply reads the wire form written by WriteGossipGetReply.
func ReadGossipGetReply(r *Reader) ([]PingData, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("decode member count: %w", err)
	}
	members := make([]PingData, 0, n)
	for i := uint16(0); i < n; i++ {
		p, err := DecodePingData(r)
		if err != nil {
			return nil, err
		}
		members = append(members, *p)
	}
	return members, nil
}
