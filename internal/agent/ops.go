package agent

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/radio-ops-platform/internal/audit"
	"github.com/wolfman30/radio-ops-platform/internal/conversation"
)

// Redeliver re-sends a failed agent message of the active conversation and updates it in place.
// On success the stage advances for the message's intent, as if the original send had worked.
func (a *Agent) Redeliver(ctx context.Context, leadID string, channel conversation.Channel, messageID string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "agent.redeliver")
	defer span.End()
	span.SetAttributes(attribute.String("lead_id", leadID), attribute.String("message_id", messageID))

	res, err := a.redeliver(ctx, leadID, channel, messageID)
	a.finish(ctx, span, OpRedeliver, err)
	return res, err
}

func (a *Agent) redeliver(ctx context.Context, leadID string, channel conversation.Channel, messageID string) (*Result, error) {
	tf := a.failer(OpRedeliver, leadID, channel)

	unlock, err := a.locker.Lock(ctx, conversation.Key(leadID, channel))
	if err != nil {
		return nil, tf.fail("", err)
	}
	defer unlock()

	lead, err := a.loadLead(ctx, leadID)
	if err != nil {
		return nil, tf.fail("", err)
	}
	tf.scope(lead)
	conv, err := a.store.FindActive(ctx, leadID, channel)
	if err != nil {
		return nil, tf.fail("", err)
	}
	msg, err := a.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, tf.fail("", err)
	}
	if msg.ConversationID != conv.ID || msg.Role != conversation.RoleAgent || msg.Status != conversation.StatusFailed {
		return nil, tf.fail(msg.Intent, fmt.Errorf("%w: message %s is %s %s", ErrNotRedeliverable, msg.ID, msg.Role, msg.Status))
	}
	if !a.delivery.Supports(channel) {
		return nil, tf.fail(msg.Intent, fmt.Errorf("%w: %s", ErrUnsupportedChannel, channel))
	}
	to, err := a.resolveRecipient(ctx, lead, channel, msg.Intent)
	if err != nil {
		return nil, tf.fail(msg.Intent, err)
	}

	res := &Result{
		LeadID:         lead.ID,
		ConversationID: conv.ID,
		Channel:        channel,
		Intent:         msg.Intent,
		Message:        msg,
		Reply:          msg.Content,
		Stage:          lead.Stage,
	}
	if err := a.deliver(ctx, lead, channel, msg, to, res, audit.EventMessageRedelivered); err != nil {
		return res, tf.fail(msg.Intent, err)
	}
	return res, nil
}

// EndConversation deactivates the active conversation for (lead, channel). The next turn starts a new one.
func (a *Agent) EndConversation(ctx context.Context, leadID string, channel conversation.Channel) (*conversation.Conversation, error) {
	ctx, span := tracer.Start(ctx, "agent.end_conversation")
	defer span.End()

	conv, err := a.endConversation(ctx, leadID, channel)
	a.finish(ctx, span, OpEndConversation, err)
	return conv, err
}

func (a *Agent) endConversation(ctx context.Context, leadID string, channel conversation.Channel) (*conversation.Conversation, error) {
	tf := a.failer(OpEndConversation, leadID, channel)

	unlock, err := a.locker.Lock(ctx, conversation.Key(leadID, channel))
	if err != nil {
		return nil, tf.fail("", err)
	}
	defer unlock()

	lead, err := a.loadLead(ctx, leadID)
	if err != nil {
		return nil, tf.fail("", err)
	}
	tf.scope(lead)
	conv, err := a.store.FindActive(ctx, leadID, channel)
	if err != nil {
		return nil, tf.fail("", err)
	}
	if err := a.store.Deactivate(ctx, conv.ID); err != nil {
		return nil, tf.fail("", err)
	}
	conv.IsActive = false
	a.logger.Info("conversation ended", "lead_id", leadID, "channel", channel, "conversation_id", conv.ID)
	a.record(ctx, audit.Event{
		Type:           audit.EventConversationEnded,
		StationID:      lead.StationID,
		LeadID:         leadID,
		ConversationID: conv.ID,
		Channel:        string(channel),
	})
	return conv, nil
}

// History returns the active conversation for (lead, channel) and its most recent messages.
func (a *Agent) History(ctx context.Context, leadID string, channel conversation.Channel, limit int) (*conversation.Conversation, []conversation.Message, error) {
	if _, err := a.loadLead(ctx, leadID); err != nil {
		return nil, nil, err
	}
	conv, err := a.store.FindActive(ctx, leadID, channel)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = a.historyWindow
	}
	msgs, err := a.store.RecentHistory(ctx, conv.ID, limit)
	if err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}
