package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeDecode(t *testing.T, rec *GossipRecord) *GossipRecord {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, rec.Encode(w))
	require.NoError(t, w.Flush())
	r := NewReader(&buf)
	got, err := DecodeGossipRecord(r)
	require.NoError(t, err)
	return got
}

func TestGossipRecordRoundTripAllFieldsPresent(t *testing.T) {
	group := "lobby"
	name := "peer-1"
	addr := NewLogicalAddress()
	physical := &PhysicalAddress{Data: []byte{10, 0, 0, 1, 0x1F, 0x90}}
	rec := &GossipRecord{
		Command:     CmdConnect,
		Group:       &group,
		Addr:        &addr,
		LogicalName: &name,
		Physical:    physical,
		Payload:     []byte("hello"),
	}

	got := encodeDecode(t, rec)
	assert.Equal(t, rec.Command, got.Command)
	require.NotNil(t, got.Group)
	assert.Equal(t, group, *got.Group)
	require.NotNil(t, got.Addr)
	assert.Equal(t, addr, *got.Addr)
	require.NotNil(t, got.LogicalName)
	assert.Equal(t, name, *got.LogicalName)
	require.NotNil(t, got.Physical)
	assert.Equal(t, physical.Data, got.Physical.Data)
	assert.Equal(t, rec.Payload, got.Payload)
}

func TestGossipRecordRoundTripAllFieldsAbsent(t *testing.T) {
	rec := &GossipRecord{Command: CmdPing}
	got := encodeDecode(t, rec)
	assert.Equal(t, CmdPing, got.Command)
	assert.Nil(t, got.Group)
	assert.Nil(t, got.Addr)
	assert.Nil(t, got.LogicalName)
	assert.Nil(t, got.Physical)
	assert.Nil(t, got.Payload)
}

func TestGossipRecordRoundTripMixedPresence(t *testing.T) {
	group := "g"
	addr := NewLogicalAddress()
	rec := &GossipRecord{
		Command: CmdDisconnect,
		Group:   &group,
		Addr:    &addr,
	}
	got := encodeDecode(t, rec)
	assert.Equal(t, CmdDisconnect, got.Command)
	require.NotNil(t, got.Group)
	assert.Equal(t, group, *got.Group)
	require.NotNil(t, got.Addr)
	assert.Equal(t, addr, *got.Addr)
	assert.Nil(t, got.LogicalName)
	assert.Nil(t, got.Physical)
}

func TestGossipGetReplyRoundTrip(t *testing.T) {
	name := "p1"
	members := []PingData{
		{LogicalAddr: NewLogicalAddress(), IsServer: true, LogicalName: &name, Physical: &PhysicalAddress{Data: []byte{1, 2, 3}}},
		{LogicalAddr: NewLogicalAddress(), IsServer: true},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, WriteGossipGetReply(w, members))
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	got, err := ReadGossipGetReply(r)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, members[0].LogicalAddr, got[0].LogicalAddr)
	assert.True(t, got[0].IsServer)
	require.NotNil(t, got[0].LogicalName)
	assert.Equal(t, name, *got[0].LogicalName)
	assert.Nil(t, got[1].LogicalName)
}

func TestGossipGetReplyEmpty(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, WriteGossipGetReply(w, nil))
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	got, err := ReadGossipGetReply(r)
	require.NoError(t, err)
	assert.Len(t, got, 0)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "CONNECT", CmdConnect.String())
	assert.Equal(t, "SUSPECT", CmdSuspect.String())
}
