package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

const (
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"

	defaultSendGridHost = "https://api.sendgrid.com"
	defaultFromName     = "Station Outreach"
)

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	Host      string
}

// SendGridEmailSender sends email via the SendGrid v3 API.
type SendGridEmailSender struct {
	cfg    SendGridConfig
	logger *logging.Logger
}

// NewSendGridEmailSender returns nil when no API key is configured.
func NewSendGridEmailSender(cfg SendGridConfig, logger *logging.Logger) *SendGridEmailSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	if cfg.Host == "" {
		cfg.Host = defaultSendGridHost
	}
	return &SendGridEmailSender{cfg: cfg, logger: logger}
}

func (s *SendGridEmailSender) Send(ctx context.Context, req Request) Outcome {
	if s == nil {
		return failed(ProviderSendGrid, ClassMisconfigured, errors.New("sendgrid not configured"))
	}
	ctx, span := tracer.Start(ctx, "delivery.sendgrid.send")
	defer span.End()

	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromEmail)
	to := mail.NewEmail(req.ToName, req.To)
	message := mail.NewSingleEmail(from, req.Subject, to, req.Content, plainToHTML(req.Content))

	request := sendgrid.GetRequest(s.cfg.APIKey, "/v3/mail/send", s.cfg.Host)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		span.RecordError(err)
		return failed(ProviderSendGrid, classifyErr(err), fmt.Errorf("sendgrid send: %w", err))
	}
	if response.StatusCode >= 400 {
		err := fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, strings.TrimSpace(response.Body))
		span.RecordError(err)
		return failed(ProviderSendGrid, classifyStatus(response.StatusCode), err)
	}

	var messageID string
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}
	s.logger.Info("email sent via sendgrid", "to", req.To, "subject", req.Subject, "status", response.StatusCode)
	return delivered(ProviderSendGrid, messageID)
}

// SESAPI is the subset of the sesv2 client the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	FromEmail string
	FromName  string
}

// SESEmailSender sends email via AWS SES.
type SESEmailSender struct {
	client SESAPI
	cfg    SESConfig
	logger *logging.Logger
}

// NewSESEmailSender returns nil without a client.
func NewSESEmailSender(client SESAPI, cfg SESConfig, logger *logging.Logger) *SESEmailSender {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SESEmailSender{client: client, cfg: cfg, logger: logger}
}

func (s *SESEmailSender) Send(ctx context.Context, req Request) Outcome {
	if s == nil || s.client == nil {
		return failed(ProviderSES, ClassMisconfigured, errors.New("ses client not configured"))
	}
	ctx, span := tracer.Start(ctx, "delivery.ses.send")
	defer span.End()

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)),
		Destination:      &sestypes.Destination{ToAddresses: []string{req.To}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(req.Subject), Charset: aws.String("UTF-8")},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(req.Content), Charset: aws.String("UTF-8")},
					Html: &sestypes.Content{Data: aws.String(plainToHTML(req.Content)), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	output, err := s.client.SendEmail(ctx, input)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("SES send failed", "error", err, "to", req.To)
		return failed(ProviderSES, classifyErr(err), fmt.Errorf("ses send: %w", err))
	}
	messageID := aws.ToString(output.MessageId)
	s.logger.Info("email sent via SES", "to", req.To, "subject", req.Subject, "message_id", messageID)
	return delivered(ProviderSES, messageID)
}

// plainToHTML wraps paragraphs of plain text for the HTML part.
func plainToHTML(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	paras := strings.Split(strings.TrimSpace(text), "\n\n")
	var b strings.Builder
	for _, p := range paras {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(r.Replace(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
