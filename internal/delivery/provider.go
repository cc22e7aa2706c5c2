package delivery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

const (
	// SMSProviderAuto prefers Telnyx with Twilio as failover.
	SMSProviderAuto = "auto"
	// SMSProviderTelnyx forces the Telnyx sender when credentials exist.
	SMSProviderTelnyx = "telnyx"
	// SMSProviderTwilio forces the Twilio sender when credentials exist.
	SMSProviderTwilio = "twilio"
)

// ProviderSelectionConfig captures the credentials required to build SMS senders.
type ProviderSelectionConfig struct {
	Preference       string
	TelnyxAPIKey     string
	TelnyxProfileID  string
	TelnyxFromNumber string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

// BuildSMSSender instantiates a Sender based on the preferred provider.
// It returns the sender, the provider that was selected, and a reason when no provider could be initialized.
func BuildSMSSender(cfg ProviderSelectionConfig, logger *logging.Logger) (Sender, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	preference := strings.ToLower(strings.TrimSpace(cfg.Preference))
	if preference == "" {
		preference = SMSProviderAuto
	}

	missing := map[string]string{}
	var telnyx, twilio Sender

	if cfg.TelnyxAPIKey != "" && (cfg.TelnyxProfileID != "" || cfg.TelnyxFromNumber != "") {
		telnyx = NewTelnyxSender(cfg.TelnyxAPIKey, cfg.TelnyxProfileID, cfg.TelnyxFromNumber, logger)
	} else {
		var reasons []string
		if cfg.TelnyxAPIKey == "" {
			reasons = append(reasons, "TELNYX_API_KEY missing")
		}
		if cfg.TelnyxProfileID == "" && cfg.TelnyxFromNumber == "" {
			reasons = append(reasons, "TELNYX_MESSAGING_PROFILE_ID or TELNYX_FROM_NUMBER missing")
		}
		missing[SMSProviderTelnyx] = strings.Join(reasons, ", ")
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromNumber != "" {
		twilio = NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	} else {
		var reasons []string
		if cfg.TwilioAccountSID == "" {
			reasons = append(reasons, "TWILIO_ACCOUNT_SID missing")
		}
		if cfg.TwilioAuthToken == "" {
			reasons = append(reasons, "TWILIO_AUTH_TOKEN missing")
		}
		if cfg.TwilioFromNumber == "" {
			reasons = append(reasons, "TWILIO_FROM_NUMBER missing")
		}
		missing[SMSProviderTwilio] = strings.Join(reasons, ", ")
	}

	switch preference {
	case SMSProviderTelnyx:
		if telnyx != nil {
			return telnyx, SMSProviderTelnyx, ""
		}
		return nil, "", missing[SMSProviderTelnyx]
	case SMSProviderTwilio:
		if twilio != nil {
			return twilio, SMSProviderTwilio, ""
		}
		return nil, "", missing[SMSProviderTwilio]
	case SMSProviderAuto:
		switch {
		case telnyx != nil && twilio != nil:
			return NewFailoverSender(telnyx, twilio, logger), "telnyx+twilio", ""
		case telnyx != nil:
			return telnyx, SMSProviderTelnyx, ""
		case twilio != nil:
			return twilio, SMSProviderTwilio, ""
		}
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+missing[k])
		}
		return nil, "", strings.Join(parts, "; ")
	default:
		return nil, "", fmt.Sprintf("unknown sms provider %q", preference)
	}
}

// LogSender logs instead of sending. Used when a channel has no provider configured in development.
type LogSender struct {
	Provider string
	logger   *logging.Logger
}

func NewLogSender(provider string, logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{Provider: provider, logger: logger}
}

func (s *LogSender) Send(ctx context.Context, req Request) Outcome {
	id := "log-" + uuid.NewString()
	s.logger.Info("log sender: would deliver message", "channel", req.Channel, "to", req.To, "subject", req.Subject, "external_id", id)
	return delivered(s.Provider, id)
}
