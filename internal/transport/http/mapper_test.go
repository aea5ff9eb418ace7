package http

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/docrelay/internal/core"
	"github.com/vovakirdan/docrelay/internal/proto"
)

func TestInboundToCommand(t *testing.T) {
	tests := []struct {
		name string
		in   proto.Inbound
		want *core.Command
	}{
		{
			name: "join",
			in:   proto.Inbound{Type: "join-doc", Data: json.RawMessage(`{"docId":"d","user":{"uid":"u1","email":"a@x"}}`)},
			want: &core.Command{Kind: core.CommandJoinDoc, DocID: "d", User: core.User{UID: "u1", Email: "a@x"}},
		},
		{
			name: "join without user",
			in:   proto.Inbound{Type: "join-doc", Data: json.RawMessage(`{"docId":"d"}`)},
			want: &core.Command{Kind: core.CommandJoinDoc, DocID: "d"},
		},
		{
			name: "typing",
			in:   proto.Inbound{Type: "typing", Data: json.RawMessage(`{"docId":"d","user":{"email":"a@x"}}`)},
			want: &core.Command{Kind: core.CommandTyping, DocID: "d", User: core.User{Email: "a@x"}},
		},
		{
			name: "delta kept verbatim",
			in:   proto.Inbound{Type: "send-delta", Data: json.RawMessage(`{"docId":"d","delta":{"ops": [1, 2]}}`)},
			want: &core.Command{Kind: core.CommandSendDelta, DocID: "d", Delta: []byte(`{"ops": [1, 2]}`)},
		},
		{
			name: "null delta kept verbatim",
			in:   proto.Inbound{Type: "send-delta", Data: json.RawMessage(`{"docId":"d","delta":null}`)},
			want: &core.Command{Kind: core.CommandSendDelta, DocID: "d", Delta: []byte(`null`)},
		},
		{
			name: "missing delta",
			in:   proto.Inbound{Type: "send-delta", Data: json.RawMessage(`{"docId":"d"}`)},
			want: &core.Command{Kind: core.CommandSendDelta, DocID: "d"},
		},
		{
			name: "leave",
			in:   proto.Inbound{Type: "leave-doc", Data: json.RawMessage(`{"docId":"d","uid":"u1"}`)},
			want: &core.Command{Kind: core.CommandLeaveDoc, DocID: "d", User: core.User{UID: "u1"}},
		},
		{
			name: "leave without data",
			in:   proto.Inbound{Type: "leave-doc"},
			want: &core.Command{Kind: core.CommandLeaveDoc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inboundToCommand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.DocID, got.DocID)
			assert.Equal(t, tt.want.User, got.User)
			assert.Equal(t, string(tt.want.Delta), string(got.Delta))
		})
	}
}

func TestInboundToCommandErrors(t *testing.T) {
	_, err := inboundToCommand(proto.Inbound{Type: "shout"})
	assert.True(t, errors.Is(err, errUnknownType))

	_, err = inboundToCommand(proto.Inbound{Type: "join-doc", Data: json.RawMessage(`"nope"`)})
	assert.Error(t, err)
}

func TestOutboundFromEvent(t *testing.T) {
	out := outboundFromEvent(&core.Event{Kind: core.EventPresence, Presence: core.Roster{{UID: "u1", Email: "a@x"}}})
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"event","event":"presence","data":[{"uid":"u1","email":"a@x"}]}`, string(raw))

	out = outboundFromEvent(&core.Event{Kind: core.EventReceiveDelta, Delta: []byte(`{"ops":[]}`)})
	raw, err = json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"event","event":"receive-delta","data":{"delta":{"ops":[]}}}`, string(raw))

	out = outboundFromEvent(&core.Event{Kind: core.EventUserTyping, Email: "a@x"})
	raw, err = json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"event","event":"user-typing","data":{"email":"a@x"}}`, string(raw))
}
