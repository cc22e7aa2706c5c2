package delivery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
)

// ErrNoRecipientAddress means the lead has no usable address for the channel.
var ErrNoRecipientAddress = errors.New("delivery: no recipient address for channel")

var validate = validator.New()

// ResolveRecipient picks the lead's address for channel. Phones are normalised to E.164
// using defaultRegion for numbers without a country code.
func ResolveRecipient(lead *leads.Lead, channel conversation.Channel, defaultRegion string) (string, error) {
	if lead == nil {
		return "", ErrNoRecipientAddress
	}
	switch channel {
	case conversation.ChannelSMS:
		return NormalizePhone(lead.Phone, defaultRegion)
	case conversation.ChannelEmail:
		email := strings.TrimSpace(lead.Email)
		if email == "" || validate.Var(email, "required,email") != nil {
			return "", fmt.Errorf("%w: email %q", ErrNoRecipientAddress, email)
		}
		return email, nil
	case conversation.ChannelSocial:
		handle := strings.TrimPrefix(strings.TrimSpace(lead.SocialHandle), "@")
		if handle == "" {
			return "", fmt.Errorf("%w: social", ErrNoRecipientAddress)
		}
		return handle, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNoRecipientAddress, channel)
}

// NormalizePhone parses raw into E.164.
func NormalizePhone(raw, defaultRegion string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: sms", ErrNoRecipientAddress)
	}
	if defaultRegion == "" {
		defaultRegion = "US"
	}
	num, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: phone %q is not dialable", ErrNoRecipientAddress, raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
