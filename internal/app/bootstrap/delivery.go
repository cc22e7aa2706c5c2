package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/radio-ops-platform/internal/config"
	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/delivery"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

// BuildDeliveryGateway registers one sender per configured channel. Outside production a channel
// without credentials gets a LogSender so local runs exercise the whole turn.
// awsCfg is only needed for SES and may be nil otherwise.
func BuildDeliveryGateway(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (*delivery.Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	gw := delivery.NewGateway(logger)
	devFallback := cfg.Env != "production"

	sms, provider, reason := delivery.BuildSMSSender(delivery.ProviderSelectionConfig{
		Preference:       cfg.SMSProvider,
		TelnyxAPIKey:     cfg.TelnyxAPIKey,
		TelnyxProfileID:  cfg.TelnyxMessagingProfileID,
		TelnyxFromNumber: cfg.TelnyxFromNumber,
		TwilioAccountSID: cfg.TwilioAccountSID,
		TwilioAuthToken:  cfg.TwilioAuthToken,
		TwilioFromNumber: cfg.TwilioFromNumber,
	}, logger)
	switch {
	case sms != nil:
		logger.Info("sms delivery enabled", "provider", provider)
		gw.Register(conversation.ChannelSMS, sms)
	case devFallback:
		logger.Warn("sms provider not configured; logging sms instead", "reason", reason)
		gw.Register(conversation.ChannelSMS, delivery.NewLogSender("log-sms", logger))
	default:
		logger.Warn("sms delivery disabled", "reason", reason)
	}

	email, err := buildEmailSender(cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}
	switch {
	case email != nil:
		gw.Register(conversation.ChannelEmail, email)
	case devFallback:
		logger.Warn("email provider not configured; logging email instead")
		gw.Register(conversation.ChannelEmail, delivery.NewLogSender("log-email", logger))
	default:
		logger.Warn("email delivery disabled")
	}

	switch {
	case strings.TrimSpace(cfg.InstagramPageAccessToken) != "":
		logger.Info("social delivery enabled", "provider", "instagram")
		gw.Register(conversation.ChannelSocial, delivery.NewInstagramSender(cfg.InstagramPageAccessToken))
	case devFallback:
		gw.Register(conversation.ChannelSocial, delivery.NewLogSender("log-social", logger))
	}
	return gw, nil
}

func buildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (delivery.Sender, error) {
	switch cfg.EmailProvider {
	case delivery.ProviderSES:
		if strings.TrimSpace(cfg.SESFromEmail) == "" {
			return nil, nil
		}
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: ses email requires aws config")
		}
		logger.Info("email delivery enabled", "provider", delivery.ProviderSES)
		return delivery.NewSESEmailSender(sesv2.NewFromConfig(*awsCfg), delivery.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger), nil
	case delivery.ProviderSendGrid, "":
		sender := delivery.NewSendGridEmailSender(delivery.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil, nil
		}
		logger.Info("email delivery enabled", "provider", delivery.ProviderSendGrid)
		return sender, nil
	}
	return nil, fmt.Errorf("bootstrap: unknown email provider %q", cfg.EmailProvider)
}
