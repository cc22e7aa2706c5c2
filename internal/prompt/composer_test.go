package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/llm"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

func TestCompose_ThreeMessages(t *testing.T) {
	c := NewComposer()
	msgs, err := c.Compose(persona.Sponsor(), persona.IntentPitchPackages, LeadContext{
		Name:    "Rosa",
		Profile: "bakery",
		Station: "KXRW",
	}, nil, Options{})
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, llm.RoleSystem, msgs[1].Role)
	assert.Equal(t, llm.RoleUser, msgs[2].Role)

	assert.Contains(t, msgs[0].Content, "Marcus")
	assert.Contains(t, msgs[0].Content, "KXRW")
	assert.Contains(t, msgs[1].Content, "Rosa")
	assert.Contains(t, msgs[1].Content, "bakery")
	assert.Contains(t, msgs[2].Content, "Keep it short")
}

func TestCompose_SponsorPitchIncludesFourTiers(t *testing.T) {
	sponsor := persona.Sponsor()
	msgs, err := NewComposer().Compose(sponsor, persona.IntentPitchPackages, LeadContext{Name: "Rosa"}, nil, Options{})
	require.NoError(t, err)

	require.Len(t, sponsor.Packages, 4)
	for _, pkg := range sponsor.Packages {
		assert.Contains(t, msgs[1].Content, pkg.Name)
		assert.Contains(t, msgs[1].Content, pkg.Price)
	}
	assert.Contains(t, msgs[1].Content, sponsor.DefaultTier)
}

func TestCompose_PlaceholdersForMissingAttributes(t *testing.T) {
	msgs, err := NewComposer().Compose(persona.Artist(), persona.IntentInitialOutreach, LeadContext{}, nil, Options{})
	require.NoError(t, err)

	assert.Contains(t, msgs[1].Content, "the artist")
	assert.NotContains(t, msgs[1].Content, "<no value>")
	assert.NotContains(t, msgs[1].Content, "  ")
	assert.Contains(t, msgs[0].Content, defaultStation)
}

func TestCompose_SystemMessageInvariant(t *testing.T) {
	c := NewComposer()
	p := persona.Listener()
	a, err := c.Compose(p, persona.IntentInviteToListen, LeadContext{Name: "Sam", Station: "KXRW"}, nil, Options{})
	require.NoError(t, err)
	b, err := c.Compose(p, persona.IntentSharePerks, LeadContext{Name: "Alex", Station: "KXRW"}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, a[0].Content, b[0].Content)
	assert.NotEqual(t, a[1].Content, b[1].Content)
}

func TestCompose_HistoryWindow(t *testing.T) {
	var history []conversation.Message
	for i := 0; i < 30; i++ {
		role := conversation.RoleCounterparty
		if i%2 == 0 {
			role = conversation.RoleAgent
		}
		history = append(history, conversation.Message{Role: role, Content: fmt.Sprintf("turn-%02d", i)})
	}

	msgs, err := NewComposer().Compose(persona.Artist(), persona.IntentFollowUp, LeadContext{Name: "Dee"}, history, Options{HistoryWindow: 5})
	require.NoError(t, err)
	user := msgs[2].Content
	assert.NotContains(t, user, "turn-24")
	for i := 25; i < 30; i++ {
		assert.Contains(t, user, fmt.Sprintf("turn-%02d", i))
	}
	assert.Less(t, strings.Index(user, "turn-25"), strings.Index(user, "turn-29"))
	assert.Contains(t, user, "Jade: turn-26")
	assert.Contains(t, user, "Dee: turn-25")

	msgs, err = NewComposer().Compose(persona.Artist(), persona.IntentFollowUp, LeadContext{Name: "Dee"}, history, Options{})
	require.NoError(t, err)
	assert.NotContains(t, msgs[2].Content, "turn-09")
	assert.Contains(t, msgs[2].Content, "turn-10")
}

func TestCompose_FirstContactAndChannelHints(t *testing.T) {
	msgs, err := NewComposer().Compose(persona.Artist(), persona.IntentEducate, LeadContext{Name: "Dee", FirstContact: true, Channel: conversation.ChannelSMS}, nil, Options{})
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, "first message")
	assert.Contains(t, msgs[1].Content, "text message")
}

func TestCompose_UnknownIntent(t *testing.T) {
	_, err := NewComposer().Compose(persona.Listener(), persona.IntentPitchPackages, LeadContext{}, nil, Options{})
	assert.ErrorIs(t, err, persona.ErrUnknownIntent)

	_, err = NewComposer().Compose(nil, persona.IntentFollowUp, LeadContext{}, nil, Options{})
	assert.ErrorIs(t, err, persona.ErrUnknownFamily)
}

func TestCompose_NoSecretsInPrompt(t *testing.T) {
	msgs, err := NewComposer().Compose(persona.Sponsor(), persona.IntentNegotiate, LeadContext{Name: "Rosa"}, []conversation.Message{
		{Role: conversation.RoleCounterparty, Content: "what's your best price"},
	}, Options{})
	require.NoError(t, err)
	for _, m := range msgs {
		assert.NotContains(t, strings.ToLower(m.Content), "api key")
		assert.NotContains(t, strings.ToLower(m.Content), "password")
	}
}

func TestSubject(t *testing.T) {
	c := NewComposer()
	subj, err := c.Subject(persona.Sponsor(), persona.IntentCloseDeal, LeadContext{Name: "Rosa"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome aboard, Rosa", subj)

	subj, err = c.Subject(persona.Sponsor(), persona.IntentNegotiate, LeadContext{Station: "KXRW"})
	require.NoError(t, err)
	assert.Equal(t, "Following up from KXRW", subj)
}

func TestFormatPackages(t *testing.T) {
	out := FormatPackages([]persona.Package{{Name: "Community", Price: "$150/mo", Includes: "10 spots"}, {Name: "Free"}})
	assert.Equal(t, "- Community ($150/mo): 10 spots\n- Free", out)
	assert.Empty(t, FormatPackages(nil))
}

func TestRenderer_StrictMissingKey(t *testing.T) {
	var r Renderer
	_, err := r.Render("x", "{{.Missing}}", map[string]string{})
	assert.Error(t, err)
	_, err = r.Render("x", "", nil)
	assert.Error(t, err)

	out, err := r.Render("x", "hi {{.Name}}", templateData{Name: "Dee"})
	require.NoError(t, err)
	assert.Equal(t, "hi Dee", out)
}
