package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/radio-ops-platform/internal/audit"
	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/delivery"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/internal/llm"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
	"github.com/wolfman30/radio-ops-platform/internal/pipeline"
	"github.com/wolfman30/radio-ops-platform/internal/prompt"
)

// respond runs the agent half of a turn: resolve address, compose, generate, persist, deliver, advance.
// The caller holds the (lead, channel) lock.
func (a *Agent) respond(ctx context.Context, lead *leads.Lead, in persona.Intent, channel conversation.Channel, res *Result) error {
	if !a.delivery.Supports(channel) {
		return fmt.Errorf("%w: %s", ErrUnsupportedChannel, channel)
	}
	to, err := a.resolveRecipient(ctx, lead, channel, in)
	if err != nil {
		return err
	}

	conv, err := a.activeConversation(ctx, lead, channel)
	if err != nil {
		return err
	}
	res.ConversationID = conv.ID

	history, err := a.store.RecentHistory(ctx, conv.ID, a.historyWindow)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	lc := a.leadContext(lead, channel, history)
	messages, err := a.composer.Compose(a.persona, in, lc, history, prompt.Options{HistoryWindow: a.historyWindow})
	if err != nil {
		return fmt.Errorf("compose prompt: %w", err)
	}
	var subject string
	if channel == conversation.ChannelEmail {
		if subject, err = a.composer.Subject(a.persona, in, lc); err != nil {
			return fmt.Errorf("compose subject: %w", err)
		}
	}

	gen, err := a.generate(ctx, messages)
	if err != nil {
		a.record(ctx, audit.Event{
			Type:           audit.EventGenerationFailed,
			StationID:      lead.StationID,
			LeadID:         lead.ID,
			ConversationID: conv.ID,
			Channel:        string(channel),
			Intent:         string(in),
		}.WithDetails(generationDetails(err)))
		return err
	}
	res.LLMProvider = gen.Provider
	res.TokensUsed = gen.TokensUsed

	msg, err := a.store.AppendMessage(ctx, conv.ID, conversation.Turn{
		Role:    conversation.RoleAgent,
		Content: gen.Text,
		Intent:  in,
		Subject: subject,
	})
	if err != nil {
		return fmt.Errorf("append agent message: %w", err)
	}
	res.Message = msg
	res.Reply = msg.Content

	return a.deliver(ctx, lead, channel, msg, to, res, audit.EventMessageSent)
}

func (a *Agent) resolveRecipient(ctx context.Context, lead *leads.Lead, channel conversation.Channel, in persona.Intent) (string, error) {
	to, err := delivery.ResolveRecipient(lead, channel, a.region)
	if err == nil {
		return to, nil
	}
	a.logger.Warn("lead has no usable address for channel", "lead_id", lead.ID, "channel", channel, "intent", in, "error", err)
	a.record(ctx, audit.Event{
		Type:      audit.EventNoRecipientAddress,
		StationID: lead.StationID,
		LeadID:    lead.ID,
		Channel:   string(channel),
		Intent:    string(in),
	}.WithDetails(audit.Details{Error: err.Error()}))
	return "", err
}

// generate calls the gateway under the generation timeout. Every error comes back as a *llm.GenerationFailure.
func (a *Agent) generate(ctx context.Context, messages []llm.Message) (llm.Generation, error) {
	gctx, cancel := context.WithTimeout(ctx, a.generationTimeout)
	defer cancel()

	start := time.Now()
	gen, err := a.gateway.Generate(gctx, messages, llm.Options{
		Temperature: a.persona.Temperature,
		MaxTokens:   a.persona.MaxTokens,
	})
	elapsed := time.Since(start).Seconds()
	if err == nil && strings.TrimSpace(gen.Text) == "" {
		err = &llm.GenerationFailure{Provider: gen.Provider, Kind: llm.FailureMalformed, Err: errors.New("empty completion")}
	}
	if err != nil {
		gf, ok := llm.IsGenerationFailure(err)
		if !ok {
			kind := llm.FailureProvider
			if errors.Is(err, context.DeadlineExceeded) {
				kind = llm.FailureTimeout
			}
			gf = &llm.GenerationFailure{Provider: gen.Provider, Kind: kind, Err: err}
		}
		a.metrics.ObserveGeneration(gf.Provider, false, elapsed, 0)
		return llm.Generation{}, gf
	}
	gen.Text = strings.TrimSpace(gen.Text)
	a.metrics.ObserveGeneration(gen.Provider, true, elapsed, gen.TokensUsed)
	return gen, nil
}

// deliver sends msg, folds the outcome into its status by message ID, and advances the stage only
// when the channel accepted it.
func (a *Agent) deliver(ctx context.Context, lead *leads.Lead, channel conversation.Channel, msg *conversation.Message, to string, res *Result, sentEvent audit.EventType) error {
	dctx, cancel := context.WithTimeout(ctx, a.deliveryTimeout)
	out := a.delivery.Send(dctx, delivery.Request{
		Channel: channel,
		To:      to,
		ToName:  lead.Name,
		Subject: msg.Subject,
		Content: msg.Content,
	})
	cancel()
	res.Provider = out.Provider

	update := conversation.DeliveryUpdate{Status: conversation.StatusDelivered, ExternalID: out.ExternalID}
	if !out.Success {
		update.Status = conversation.StatusFailed
		update.Error = out.Error
	}
	// The status write must land even if the caller's context expired during the send.
	if err := a.store.UpdateDelivery(context.WithoutCancel(ctx), msg.ID, update); err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	msg.Status = update.Status
	msg.ExternalID = update.ExternalID
	msg.Error = update.Error
	a.metrics.ObserveDelivery(string(channel), out.Provider, string(update.Status))

	event := audit.Event{
		StationID:      lead.StationID,
		LeadID:         lead.ID,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Channel:        string(channel),
		Intent:         string(msg.Intent),
	}
	if !out.Success {
		event.Type = audit.EventDeliveryFailed
		a.record(ctx, event.WithDetails(audit.Details{Provider: out.Provider, ErrorClass: string(out.Class), Error: out.Error}))
		return &DeliveryFailure{MessageID: msg.ID, Provider: out.Provider, Class: out.Class, Reason: out.Error}
	}
	event.Type = sentEvent
	a.record(ctx, event.WithDetails(audit.Details{Provider: out.Provider, ExternalID: out.ExternalID}))

	if err := a.leads.RecordOutbound(ctx, lead.ID, a.now()); err != nil {
		a.logger.Warn("failed to record outbound contact", "lead_id", lead.ID, "error", err)
	}
	a.logger.Info("outreach message delivered",
		"lead_id", lead.ID,
		"channel", channel,
		"intent", msg.Intent,
		"message_id", msg.ID,
		"provider", out.Provider,
	)

	tr, err := a.engine.Advance(ctx, lead, a.persona, msg.Intent)
	res.Stage = lead.Stage
	res.StageChanged = tr.Changed
	res.BenefitGranted = tr.BenefitActivated
	if errors.Is(err, pipeline.ErrBenefitActivation) {
		// Stage is persisted and the claim released; the next qualifying turn retries the hook.
		a.logger.Warn("benefit activation deferred", "lead_id", lead.ID, "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("advance stage: %w", err)
	}
	return nil
}

func (a *Agent) leadContext(lead *leads.Lead, channel conversation.Channel, history []conversation.Message) prompt.LeadContext {
	first := true
	for _, m := range history {
		if m.Role == conversation.RoleAgent && m.Status == conversation.StatusDelivered {
			first = false
			break
		}
	}
	if lead.OutboundCount > 0 {
		first = false
	}
	return prompt.LeadContext{
		Name:         lead.Name,
		Profile:      lead.ProfileValue(a.persona.ProfileKey),
		Tier:         lead.ProfileValue("tier"),
		Station:      a.station,
		FirstContact: first,
		Channel:      channel,
	}
}

func generationDetails(err error) audit.Details {
	d := audit.Details{Error: err.Error()}
	if gf, ok := llm.IsGenerationFailure(err); ok {
		d.Provider = gf.Provider
		d.FailureKind = string(gf.Kind)
	}
	return d
}
