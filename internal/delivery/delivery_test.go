package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

type fakeSender struct {
	out   Outcome
	calls int
	last  Request
}

func (f *fakeSender) Send(ctx context.Context, req Request) Outcome {
	f.calls++
	f.last = req
	return f.out
}

func TestGateway_RoutesByChannel(t *testing.T) {
	sms := &fakeSender{out: delivered("sms-fake", "sm-1")}
	email := &fakeSender{out: delivered("email-fake", "em-1")}
	gw := NewGateway(logging.Discard()).
		Register(conversation.ChannelSMS, sms).
		Register(conversation.ChannelEmail, email)

	out := gw.Send(context.Background(), Request{Channel: conversation.ChannelEmail, To: "a@b.test", Content: "hi"})
	assert.True(t, out.Success)
	assert.Equal(t, "em-1", out.ExternalID)
	assert.Equal(t, 0, sms.calls)
	assert.Equal(t, 1, email.calls)

	out = gw.Send(context.Background(), Request{Channel: conversation.ChannelSocial, To: "dee", Content: "hi"})
	assert.False(t, out.Success)
	assert.Equal(t, ClassUnsupportedChannel, out.Class)
	assert.False(t, gw.Supports(conversation.ChannelSocial))
}

func TestResolveRecipient(t *testing.T) {
	lead := &leads.Lead{Phone: "(650) 253-0000", Email: " dee@example.com ", SocialHandle: "@dee.beats"}

	phone, err := ResolveRecipient(lead, conversation.ChannelSMS, "US")
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", phone)

	email, err := ResolveRecipient(lead, conversation.ChannelEmail, "US")
	require.NoError(t, err)
	assert.Equal(t, "dee@example.com", email)

	handle, err := ResolveRecipient(lead, conversation.ChannelSocial, "US")
	require.NoError(t, err)
	assert.Equal(t, "dee.beats", handle)

	intl, err := ResolveRecipient(&leads.Lead{Phone: "+44 20 7031 3000"}, conversation.ChannelSMS, "US")
	require.NoError(t, err)
	assert.Equal(t, "+442070313000", intl)
}

func TestResolveRecipient_Missing(t *testing.T) {
	cases := []struct {
		name    string
		lead    *leads.Lead
		channel conversation.Channel
	}{
		{"no phone", &leads.Lead{Email: "a@b.test"}, conversation.ChannelSMS},
		{"bad phone", &leads.Lead{Phone: "123"}, conversation.ChannelSMS},
		{"no email", &leads.Lead{Phone: "+16502530000"}, conversation.ChannelEmail},
		{"bad email", &leads.Lead{Email: "nope"}, conversation.ChannelEmail},
		{"no handle", &leads.Lead{SocialHandle: " @ "}, conversation.ChannelSocial},
		{"nil lead", nil, conversation.ChannelSMS},
		{"unknown channel", &leads.Lead{Phone: "+16502530000"}, "fax"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveRecipient(tc.lead, tc.channel, "US")
			assert.ErrorIs(t, err, ErrNoRecipientAddress)
		})
	}
}

func TestTelnyxSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/messages", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"id":"tx-1","status":"queued"}}`))
	}))
	defer srv.Close()

	s := NewTelnyxSender("key", "profile", "+16502530001", logging.Discard())
	s.SetBaseURL(srv.URL)
	out := s.Send(context.Background(), Request{Channel: conversation.ChannelSMS, To: "+16502530000", Content: "hey"})
	assert.True(t, out.Success)
	assert.Equal(t, "tx-1", out.ExternalID)
	assert.Equal(t, "hey", got["text"])
	assert.Equal(t, "profile", got["messaging_profile_id"])
}

func TestTelnyxSender_Failures(t *testing.T) {
	for code, class := range map[int]ErrorClass{
		http.StatusBadRequest:          ClassRejected,
		http.StatusTooManyRequests:     ClassTransient,
		http.StatusBadGateway:          ClassTransient,
		http.StatusUnauthorized:        ClassMisconfigured,
		http.StatusUnprocessableEntity: ClassRejected,
	} {
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
				_, _ = w.Write([]byte(`{"errors":[{"detail":"nope"}]}`))
			}))
			defer srv.Close()
			s := NewTelnyxSender("key", "profile", "", logging.Discard())
			s.SetBaseURL(srv.URL)
			out := s.Send(context.Background(), Request{To: "+16502530000", Content: "x"})
			assert.False(t, out.Success)
			assert.Equal(t, class, out.Class)
			assert.Contains(t, out.Error, fmt.Sprint(code))
		})
	}

	out := NewTelnyxSender("", "", "", logging.Discard()).Send(context.Background(), Request{To: "+1", Content: "x"})
	assert.Equal(t, ClassMisconfigured, out.Class)
}

func TestTwilioSender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC1", user)
		assert.Equal(t, "tok", pass)
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		assert.Equal(t, "+16502530000", form.Get("To"))
		assert.Equal(t, "+16502530001", form.Get("From"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	s := NewTwilioSender("AC1", "tok", "+16502530001", logging.Discard())
	s.SetBaseURL(srv.URL)
	out := s.Send(context.Background(), Request{To: "+16502530000", Content: "hi"})
	assert.True(t, out.Success)
	assert.Equal(t, "SM1", out.ExternalID)
	assert.Equal(t, ProviderTwilio, out.Provider)
}

func TestTwilioSender_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	s := NewTwilioSender("AC1", "tok", "+16502530001", logging.Discard())
	s.SetBaseURL(srv.URL)
	out := s.Send(context.Background(), Request{To: "+1", Content: "hi"})
	assert.False(t, out.Success)
	assert.Equal(t, ClassRejected, out.Class)
	assert.Contains(t, out.Error, "21211")
}

func TestFailoverSender(t *testing.T) {
	primary := &fakeSender{out: Outcome{Provider: "p", Class: ClassTransient, Error: "down"}}
	secondary := &fakeSender{out: delivered("s", "s-1")}
	f := NewFailoverSender(primary, secondary, logging.Discard())

	out := f.Send(context.Background(), Request{To: "+16502530000", Content: "x"})
	assert.True(t, out.Success)
	assert.Equal(t, "s", out.Provider)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)

	primary.out = Outcome{Provider: "p", Class: ClassRejected, Error: "bad number"}
	out = f.Send(context.Background(), Request{To: "+1", Content: "x"})
	assert.False(t, out.Success)
	assert.Equal(t, 1, secondary.calls, "rejected requests are not re-sent")

	primary.out = delivered("p", "p-1")
	out = f.Send(context.Background(), Request{To: "+16502530000", Content: "x"})
	assert.Equal(t, "p-1", out.ExternalID)

	var nilFailover *FailoverSender
	assert.Equal(t, ClassMisconfigured, nilFailover.Send(context.Background(), Request{}).Class)
}

func TestSendGridEmailSender(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("X-Message-Id", "sg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSendGridEmailSender(SendGridConfig{APIKey: "SG.key", FromEmail: "outreach@kxrw.test", Host: srv.URL}, logging.Discard())
	out := s.Send(context.Background(), Request{Channel: conversation.ChannelEmail, To: "rosa@bakery.test", Subject: "KXRW sponsorship packages", Content: "Hi Rosa"})
	require.True(t, out.Success, out.Error)
	assert.Equal(t, "sg-1", out.ExternalID)
	assert.Equal(t, "KXRW sponsorship packages", payload["subject"])

	assert.Nil(t, NewSendGridEmailSender(SendGridConfig{}, nil))
}

func TestSendGridEmailSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":[{"message":"sender not verified"}]}`))
	}))
	defer srv.Close()

	s := NewSendGridEmailSender(SendGridConfig{APIKey: "SG.key", FromEmail: "x@y.test", Host: srv.URL}, logging.Discard())
	out := s.Send(context.Background(), Request{To: "rosa@bakery.test", Content: "hi"})
	assert.False(t, out.Success)
	assert.Equal(t, ClassMisconfigured, out.Class)
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESEmailSender(t *testing.T) {
	api := &fakeSES{}
	s := NewSESEmailSender(api, SESConfig{FromEmail: "outreach@kxrw.test", FromName: "KXRW"}, logging.Discard())
	out := s.Send(context.Background(), Request{To: "dee@example.com", Subject: "Hello", Content: "Line one\n\nLine <two>"})
	require.True(t, out.Success)
	assert.Equal(t, "ses-1", out.ExternalID)
	assert.Equal(t, "KXRW <outreach@kxrw.test>", aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, "<p>Line one</p><p>Line &lt;two&gt;</p>", aws.ToString(api.input.Content.Simple.Body.Html.Data))

	api.err = errors.New("throttled")
	out = s.Send(context.Background(), Request{To: "dee@example.com", Content: "x"})
	assert.False(t, out.Success)
	assert.Equal(t, ClassTransient, out.Class)
}

func TestInstagramSender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/messages", r.URL.Path)
		assert.Equal(t, "page-token", r.URL.Query().Get("access_token"))
		var req graphSendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "dee.beats", req.Recipient.ID)
		_, _ = w.Write([]byte(`{"recipient_id":"dee.beats","message_id":"mid.1"}`))
	}))
	defer srv.Close()

	s := NewInstagramSender("page-token")
	s.SetGraphAPIBase(srv.URL)
	out := s.Send(context.Background(), Request{Channel: conversation.ChannelSocial, To: "dee.beats", Content: "hey"})
	assert.True(t, out.Success)
	assert.Equal(t, "mid.1", out.ExternalID)
}

func TestInstagramSender_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"outside messaging window","code":10}}`))
	}))
	defer srv.Close()

	s := NewInstagramSender("page-token")
	s.SetGraphAPIBase(srv.URL)
	out := s.Send(context.Background(), Request{To: "dee.beats", Content: "hey"})
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "outside messaging window")

	assert.Equal(t, ClassMisconfigured, NewInstagramSender("").Send(context.Background(), Request{}).Class)
}

func TestBuildSMSSender(t *testing.T) {
	sender, provider, reason := BuildSMSSender(ProviderSelectionConfig{
		TelnyxAPIKey: "k", TelnyxProfileID: "p",
		TwilioAccountSID: "AC", TwilioAuthToken: "t", TwilioFromNumber: "+16502530001",
	}, logging.Discard())
	assert.IsType(t, &FailoverSender{}, sender)
	assert.Equal(t, "telnyx+twilio", provider)
	assert.Empty(t, reason)

	sender, provider, _ = BuildSMSSender(ProviderSelectionConfig{Preference: "twilio", TwilioAccountSID: "AC", TwilioAuthToken: "t", TwilioFromNumber: "+1"}, nil)
	assert.IsType(t, &TwilioSender{}, sender)
	assert.Equal(t, SMSProviderTwilio, provider)

	sender, _, reason = BuildSMSSender(ProviderSelectionConfig{Preference: "telnyx"}, nil)
	assert.Nil(t, sender)
	assert.Contains(t, reason, "TELNYX_API_KEY missing")

	sender, _, reason = BuildSMSSender(ProviderSelectionConfig{}, nil)
	assert.Nil(t, sender)
	assert.Contains(t, reason, "telnyx:")
	assert.Contains(t, reason, "twilio:")

	_, _, reason = BuildSMSSender(ProviderSelectionConfig{Preference: "pigeon"}, nil)
	assert.Contains(t, reason, "unknown sms provider")
}

func TestLogSender(t *testing.T) {
	out := NewLogSender("log", logging.Discard()).Send(context.Background(), Request{To: "x", Content: "y"})
	assert.True(t, out.Success)
	assert.Contains(t, out.ExternalID, "log-")
}
