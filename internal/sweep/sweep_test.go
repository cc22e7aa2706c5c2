package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wolfman30/radio-ops-platform/internal/agent"
	"github.com/wolfman30/radio-ops-platform/internal/conversation"
	"github.com/wolfman30/radio-ops-platform/internal/leads"
	"github.com/wolfman30/radio-ops-platform/internal/persona"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

type sendCall struct {
	leadID  string
	intent  persona.Intent
	channel conversation.Channel
}

type fakeAgent struct {
	p     *persona.Persona
	mu    sync.Mutex
	calls []sendCall
	fail  map[string]bool
}

func (f *fakeAgent) Persona() *persona.Persona { return f.p }

func (f *fakeAgent) SendOutbound(ctx context.Context, leadID string, intent persona.Intent, channel conversation.Channel) (*agent.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sendCall{leadID, intent, channel})
	if f.fail[leadID] {
		return nil, errors.New("carrier down")
	}
	return &agent.Result{LeadID: leadID, Intent: intent, Channel: channel}, nil
}

func (f *fakeAgent) byLead() map[string]sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]sendCall{}
	for _, c := range f.calls {
		out[c.leadID] = c
	}
	return out
}

func put(repo *leads.InMemoryRepository, id string, family persona.Family, stage persona.Stage, phone, email string, lastContact *time.Time) {
	repo.Put(&leads.Lead{ID: id, Family: family, Stage: stage, Phone: phone, Email: email, LastContactedAt: lastContact})
}

func TestRunner_SelectsDueLeads(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	old := time.Now().UTC().Add(-96 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)
	put(repo, "new-artist", persona.FamilyArtist, persona.StageDiscovered, "+16502530000", "", nil)
	put(repo, "idle-artist", persona.FamilyArtist, persona.StageContacted, "", "idle@band.test", &old)
	put(repo, "fresh-artist", persona.FamilyArtist, persona.StageContacted, "+16502530001", "", &recent)
	put(repo, "engaged-artist", persona.FamilyArtist, persona.StageEngaged, "+16502530002", "", &old)
	put(repo, "no-contact", persona.FamilyArtist, persona.StageDiscovered, "", "", nil)
	put(repo, "new-sponsor", persona.FamilySponsor, persona.StageDiscovery, "+16502530003", "", nil)

	artist := &fakeAgent{p: persona.Artist()}
	sponsor := &fakeAgent{p: persona.Sponsor()}
	runner, err := NewRunner(repo, []Outreacher{artist, sponsor}, Config{RatePerSecond: 1000, FollowUpAfter: 72 * time.Hour}, nil, logging.Discard())
	require.NoError(t, err)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Considered)
	assert.Equal(t, 3, report.Sent)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.ByFamily[persona.FamilyArtist])
	assert.Equal(t, 1, report.ByFamily[persona.FamilySponsor])

	calls := artist.byLead()
	require.Len(t, calls, 2)
	assert.Equal(t, sendCall{"new-artist", persona.IntentInitialOutreach, conversation.ChannelSMS}, calls["new-artist"])
	assert.Equal(t, sendCall{"idle-artist", persona.IntentFollowUp, conversation.ChannelEmail}, calls["idle-artist"])
	assert.Equal(t, persona.IntentInitialOutreach, sponsor.byLead()["new-sponsor"].intent)
}

func TestRunner_CapsPerRunAndCountsFailures(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		put(repo, id, persona.FamilyListener, persona.StageDiscovered, "+16502530000", "", nil)
	}
	listener := &fakeAgent{p: persona.Listener(), fail: map[string]bool{}}
	runner, err := NewRunner(repo, []Outreacher{listener}, Config{MaxPerRun: 3, Concurrency: 2, RatePerSecond: 1000}, nil, logging.Discard())
	require.NoError(t, err)

	all, err := repo.ListForSweep(context.Background(), leads.SweepQuery{Family: persona.FamilyListener})
	require.NoError(t, err)
	for _, l := range all {
		listener.fail[l.ID] = true
	}

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Considered)
	assert.Equal(t, 3, report.Failed)
	assert.Zero(t, report.Sent)
	assert.Len(t, report.Errors, 3)
	assert.Len(t, listener.byLead(), 3)
}

type failingLister struct{}

func (failingLister) ListForSweep(context.Context, leads.SweepQuery) ([]*leads.Lead, error) {
	return nil, errors.New("db offline")
}

func TestRunner_ListError(t *testing.T) {
	runner, err := NewRunner(failingLister{}, []Outreacher{&fakeAgent{p: persona.Artist()}}, Config{}, nil, logging.Discard())
	require.NoError(t, err)
	_, err = runner.Run(context.Background())
	assert.ErrorContains(t, err, "db offline")
}

func TestRunner_CancelledContext(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	put(repo, "a", persona.FamilyArtist, persona.StageDiscovered, "+16502530000", "", nil)
	put(repo, "b", persona.FamilyArtist, persona.StageDiscovered, "+16502530001", "", nil)
	runner, err := NewRunner(repo, []Outreacher{&fakeAgent{p: persona.Artist()}}, Config{RatePerSecond: 0.001}, nil, logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = runner.Run(ctx)
	assert.Error(t, err)
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(nil, []Outreacher{&fakeAgent{p: persona.Artist()}}, Config{}, nil, nil)
	assert.Error(t, err)
	_, err = NewRunner(leads.NewInMemoryRepository(), nil, Config{}, nil, nil)
	assert.Error(t, err)
}

func TestScheduler_StopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := leads.NewInMemoryRepository()
	put(repo, "a", persona.FamilyArtist, persona.StageDiscovered, "+16502530000", "", nil)
	fake := &fakeAgent{p: persona.Artist()}
	runner, err := NewRunner(repo, []Outreacher{fake}, Config{RatePerSecond: 1000}, nil, logging.Discard())
	require.NoError(t, err)

	s, err := NewScheduler(runner, "@every 1h", time.Second, logging.Discard())
	require.NoError(t, err)
	s.Start()
	s.tick()
	<-s.Stop().Done()

	assert.Len(t, fake.byLead(), 1)
}

func TestScheduler_SkipsOverlappingTick(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	put(repo, "a", persona.FamilyArtist, persona.StageDiscovered, "+16502530000", "", nil)
	fake := &fakeAgent{p: persona.Artist()}
	runner, err := NewRunner(repo, []Outreacher{fake}, Config{RatePerSecond: 1000}, nil, logging.Discard())
	require.NoError(t, err)
	s, err := NewScheduler(runner, "@daily", time.Second, logging.Discard())
	require.NoError(t, err)

	s.running.Store(true)
	s.tick()
	assert.Empty(t, fake.byLead())
}

func TestNewScheduler_BadSpec(t *testing.T) {
	runner, err := NewRunner(leads.NewInMemoryRepository(), []Outreacher{&fakeAgent{p: persona.Artist()}}, Config{}, nil, nil)
	require.NoError(t, err)
	_, err = NewScheduler(runner, "not a cron spec", 0, nil)
	assert.Error(t, err)
}
