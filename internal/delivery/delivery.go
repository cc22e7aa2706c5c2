// Package delivery sends generated text over SMS, email and social direct messages.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

var tracer = otel.Tracer("radio.internal.delivery")

// ErrorClass buckets a failed send.
type ErrorClass string

const (
	ClassNone               ErrorClass = ""
	ClassRejected           ErrorClass = "rejected"
	ClassTransient          ErrorClass = "transient"
	ClassTimeout            ErrorClass = "timeout"
	ClassMisconfigured      ErrorClass = "misconfigured"
	ClassUnsupportedChannel ErrorClass = "unsupported_channel"
)

// Request is one message to deliver. To is already resolved and non-empty.
type Request struct {
	Channel conversation.Channel
	To      string
	ToName  string
	Subject string
	Content string
}

// Outcome is the result of one send attempt.
type Outcome struct {
	Success    bool
	ExternalID string
	Provider   string
	Class      ErrorClass
	Error      string
}

func delivered(provider, externalID string) Outcome {
	return Outcome{Success: true, Provider: provider, ExternalID: externalID}
}

func failed(provider string, class ErrorClass, err error) Outcome {
	return Outcome{Provider: provider, Class: class, Error: err.Error()}
}

// Sender delivers over one concrete provider. Senders make a single attempt; retries are explicit.
type Sender interface {
	Send(ctx context.Context, req Request) Outcome
}

// Gateway routes a request to the sender registered for its channel.
type Gateway struct {
	senders map[conversation.Channel]Sender
	logger  *logging.Logger
}

func NewGateway(logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{senders: make(map[conversation.Channel]Sender), logger: logger}
}

// Register binds a sender to a channel, replacing any previous one.
func (g *Gateway) Register(channel conversation.Channel, sender Sender) *Gateway {
	if sender != nil {
		g.senders[channel] = sender
	}
	return g
}

// Supports reports whether a sender is registered for channel.
func (g *Gateway) Supports(channel conversation.Channel) bool {
	_, ok := g.senders[channel]
	return ok
}

func (g *Gateway) Send(ctx context.Context, req Request) Outcome {
	ctx, span := tracer.Start(ctx, "delivery.send")
	defer span.End()
	span.SetAttributes(attribute.String("channel", string(req.Channel)))

	sender, ok := g.senders[req.Channel]
	if !ok {
		err := fmt.Errorf("delivery: no sender for channel %q", req.Channel)
		span.RecordError(err)
		return failed("", ClassUnsupportedChannel, err)
	}
	out := sender.Send(ctx, req)
	span.SetAttributes(attribute.String("provider", out.Provider), attribute.Bool("success", out.Success))
	if !out.Success {
		span.SetStatus(codes.Error, out.Error)
		g.logger.Warn("delivery failed", "channel", req.Channel, "provider", out.Provider, "class", out.Class, "error", out.Error)
	}
	return out
}

// classifyStatus maps a provider HTTP status to an error class.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusTooManyRequests, code >= 500:
		return ClassTransient
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ClassMisconfigured
	default:
		return ClassRejected
	}
}

// classifyErr maps a transport error to an error class.
func classifyErr(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	return ClassTransient
}
