package wire

import (
	"fmt"

	"github.com/google/uuid"
)

// LogicalAddress is the 128-bit opaque peer identity used as the key in
// every index the rendezvous table maintains. It is comparable by value
// and therefore usable directly as a map key.
type LogicalAddress uuid.UUID

// ParseLogicalAddress decodes the 16-byte wire representation of a
// LogicalAddress.
func ParseLogicalAddress(b []byte) (LogicalAddress, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return LogicalAddress{}, fmt.Errorf("parse logical address: %w", err)
	}
	return LogicalAddress(id), nil
}

// NewLogicalAddress mints a fresh, universally-unique LogicalAddress. The
// server never mints these itself — peers do — but tests and the mirror
// package use it to synthesize addresses.
func NewLogicalAddress() LogicalAddress {
	return LogicalAddress(uuid.New())
}

func (a LogicalAddress) String() string {
	return uuid.UUID(a).String()
}

func (a LogicalAddress) bytes() []byte {
	u := uuid.UUID(a)
	return u[:]
}

// logicalAddressTag identifies the encoding used for the payload that
// follows a logical address's presence flag. Only rawUUID is produced by
// this codec; the tag exists so the wire form can evolve without breaking
// older decoders, matching the presence-flag-plus-tag shape the rest of
// the frame codec uses for extensible fields.
const logicalAddressTagRawUUID uint8 = 1

// WriteLogicalAddress writes a one-byte presence flag (0 = null, 1 =
// present) followed, if present, by a type tag and the 16-byte raw
// identity.
func (w *Writer) WriteLogicalAddress(a *LogicalAddress) error {
	if a == nil {
		return w.WriteUint8(0)
	}
	if err := w.WriteUint8(1); err != nil {
		return err
	}
	if err := w.WriteUint8(logicalAddressTagRawUUID); err != nil {
		return err
	}
	return w.WriteRaw(a.bytes())
}

// ReadLogicalAddress reads the wire form written by WriteLogicalAddress.
func (r *Reader) ReadLogicalAddress() (*LogicalAddress, error) {
	flag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if flag == 0 {
		return nil, nil
	}
	tag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if tag != logicalAddressTagRawUUID {
		return nil, fmt.Errorf("unknown logical address tag %d", tag)
	}
	b, err := r.ReadRaw(16)
	if err != nil {
		return nil, err
	}
	addr, err := ParseLogicalAddress(b)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// PhysicalAddress is an opaque transport endpoint blob. The server never
// interprets its contents; it only stores, forwards, and overwrites it on
// re-registration.
type PhysicalAddress struct {
	Data []byte
}

// WritePhysicalAddress writes a one-byte presence flag (0 = null, 1 =
// present) followed, if present, by a length-prefixed opaque blob.
func (w *Writer) WritePhysicalAddress(p *PhysicalAddress) error {
	if p == nil {
		return w.WriteUint8(0)
	}
	if err := w.WriteUint8(1); err != nil {
		return err
	}
	return w.WriteByteBlock(p.Data)
}

// ReadPhysicalAddress reads the wire form written by WritePhysicalAddress.
func (r *Reader) ReadPhysicalAddress() (*PhysicalAddress, error) {
	flag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if flag == 0 {
		return nil, nil
	}
	b, err := r.ReadByteBlock()
	if err != nil {
		return nil, err
	}
	return &PhysicalAddress{Data: b}, nil
}
