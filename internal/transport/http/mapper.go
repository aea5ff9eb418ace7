package http

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vovakirdan/docrelay/internal/core"
	"github.com/vovakirdan/docrelay/internal/proto"
)

var errUnknownType = errors.New("unknown message type")

func inboundToCommand(inbound proto.Inbound) (*core.Command, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinDoc:
		var join proto.JoinDocData
		if err := decodeData(inbound.Data, &join); err != nil {
			return nil, err
		}
		cmd := &core.Command{Kind: core.CommandJoinDoc, DocID: join.DocID}
		if join.User != nil {
			cmd.User = core.User{UID: join.User.UID, Email: join.User.Email}
		}
		return cmd, nil
	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := decodeData(inbound.Data, &typing); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:  core.CommandTyping,
			DocID: typing.DocID,
			User:  core.User{Email: typing.User.Email},
		}, nil
	case proto.InboundTypeSendDelta:
		var delta proto.SendDeltaData
		if err := decodeData(inbound.Data, &delta); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:  core.CommandSendDelta,
			DocID: delta.DocID,
			Delta: delta.Delta,
		}, nil
	case proto.InboundTypeLeaveDoc:
		var leave proto.LeaveDocData
		if err := decodeData(inbound.Data, &leave); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:  core.CommandLeaveDoc,
			DocID: leave.DocID,
			User:  core.User{UID: leave.UID},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownType, inbound.Type)
	}
}

// decodeData unmarshals an envelope payload. A missing payload decodes to the
// zero value so the core can reject it with a precise reason.
func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventPresence:
		users := make([]proto.User, 0, len(event.Presence))
		for _, u := range event.Presence {
			users = append(users, proto.User{UID: u.UID, Email: u.Email})
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPresence,
			Data:  users,
		}
	case core.EventUserTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserTyping,
			Data:  proto.UserTyping{Email: event.Email},
		}
	case core.EventReceiveDelta:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReceiveDelta,
			Data:  proto.ReceiveDelta{Delta: json.RawMessage(event.Delta)},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
