package leads

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/radio-ops-platform/internal/persona"
)

func TestCreateLeadRequest_Validate(t *testing.T) {
	registry := persona.DefaultRegistry()

	req := &CreateLeadRequest{StationID: "kxrw", Family: persona.FamilySponsor, Name: " Rosa ", Email: "rosa@bakery.test"}
	require.NoError(t, req.Validate(registry))
	assert.Equal(t, "Rosa", req.Name)
	assert.Equal(t, persona.StageDiscovery, req.Stage)

	req = &CreateLeadRequest{StationID: "kxrw", Family: persona.FamilyArtist, SocialHandle: "@dee.beats"}
	require.NoError(t, req.Validate(registry))
	assert.Equal(t, "dee.beats", req.SocialHandle)
	assert.Equal(t, persona.StageDiscovered, req.Stage)

	err := (&CreateLeadRequest{StationID: "kxrw", Family: persona.FamilyArtist}).Validate(registry)
	assert.ErrorIs(t, err, ErrMissingContact)

	err = (&CreateLeadRequest{StationID: "kxrw", Family: "dj", Phone: "+15555550100"}).Validate(registry)
	assert.Error(t, err)

	err = (&CreateLeadRequest{StationID: "kxrw", Family: persona.FamilyArtist, Email: "not-an-email"}).Validate(registry)
	assert.Error(t, err)

	err = (&CreateLeadRequest{StationID: "kxrw", Family: persona.FamilyArtist, Phone: "+15555550100", Stage: persona.StageNegotiating}).Validate(registry)
	assert.ErrorIs(t, err, ErrInvalidStage)

	err = (&CreateLeadRequest{Family: persona.FamilyArtist, Phone: "+15555550100"}).Validate(registry)
	assert.Error(t, err)
}

func TestInMemoryRepository_Counters(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	lead, err := repo.Create(ctx, &CreateLeadRequest{StationID: "kxrw", Family: persona.FamilyArtist, Phone: "+15555550100", Stage: persona.StageDiscovered})
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordOutbound(ctx, lead.ID, at))
	require.NoError(t, repo.RecordInbound(ctx, lead.ID, at.Add(time.Hour)))
	require.NoError(t, repo.UpdateStage(ctx, lead.ID, persona.StageContacted))

	got, err := repo.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.OutboundCount)
	assert.Equal(t, 1, got.InboundCount)
	assert.Equal(t, at, *got.LastContactedAt)
	assert.Equal(t, persona.StageContacted, got.Stage)

	assert.ErrorIs(t, repo.UpdateStage(ctx, "missing", persona.StageContacted), ErrLeadNotFound)
	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	lead, _ := repo.Create(context.Background(), &CreateLeadRequest{Family: persona.FamilyArtist, Profile: map[string]string{"genre": "dub"}})
	lead.Profile["genre"] = "polka"
	lead.Stage = persona.StageActive

	got, _ := repo.GetByID(context.Background(), lead.ID)
	assert.Equal(t, "dub", got.ProfileValue("genre"))
	assert.Empty(t, got.Stage)
}

func TestInMemoryRepository_ClaimBenefitOnce(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	lead, _ := repo.Create(ctx, &CreateLeadRequest{Family: persona.FamilySponsor})

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ClaimBenefit(ctx, lead.ID, time.Now())
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)

	has, err := repo.HasBenefit(ctx, lead.ID)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, repo.ReleaseBenefit(ctx, lead.ID))
	has, _ = repo.HasBenefit(ctx, lead.ID)
	assert.False(t, has)
}

func TestInMemoryRepository_ListForSweep(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.Add(-96 * time.Hour)
	recent := now.Add(-time.Hour)

	repo.Put(&Lead{ID: "fresh", Family: persona.FamilyArtist, Stage: persona.StageDiscovered})
	repo.Put(&Lead{ID: "idle", Family: persona.FamilyArtist, Stage: persona.StageContacted, LastContactedAt: &old})
	repo.Put(&Lead{ID: "busy", Family: persona.FamilyArtist, Stage: persona.StageContacted, LastContactedAt: &recent})
	repo.Put(&Lead{ID: "sponsor", Family: persona.FamilySponsor, Stage: persona.StageDiscovery})

	cutoff := now.Add(-72 * time.Hour)
	got, err := repo.ListForSweep(ctx, SweepQuery{Family: persona.FamilyArtist, Stages: []persona.Stage{persona.StageContacted}, IdleSince: &cutoff})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "idle", got[0].ID)

	got, err = repo.ListForSweep(ctx, SweepQuery{Family: persona.FamilyArtist, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "fresh", got[0].ID)
	assert.Equal(t, "idle", got[1].ID)
}
