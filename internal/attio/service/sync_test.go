package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
	aerepo "github.com/paylinelabs/payline/internal/aeprofile/repository"
	assignservice "github.com/paylinelabs/payline/internal/assignment/service"
	attiodomain "github.com/paylinelabs/payline/internal/attio/domain"
	attiorepo "github.com/paylinelabs/payline/internal/attio/repository"
	auditdomain "github.com/paylinelabs/payline/internal/audit/domain"
	auditrepo "github.com/paylinelabs/payline/internal/audit/repository"
	auditservice "github.com/paylinelabs/payline/internal/audit/service"
	"github.com/paylinelabs/payline/internal/config"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	dealrepo "github.com/paylinelabs/payline/internal/deal/repository"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
	planrepo "github.com/paylinelabs/payline/internal/plan/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeClient struct {
	members []map[string]any
	deals   []map[string]any
	err     error
}

func (f *fakeClient) ListWorkspaceMembers(context.Context) ([]map[string]any, error) {
	return f.members, f.err
}

func (f *fakeClient) QueryDeals(context.Context) ([]map[string]any, error) {
	return f.deals, f.err
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now(context.Context) time.Time { return c.now }

type syncFixture struct {
	svc    attiodomain.Service
	db     *gorm.DB
	node   *snowflake.Node
	client *fakeClient
	redis  *miniredis.Miniredis
	cfg    config.Config
}

func setupSync(t *testing.T, mutate func(*config.Config)) *syncFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&aedomain.AEProfile{},
		&attiodomain.AttioWorkspaceMember{},
		&dealdomain.Deal{},
		&plandomain.CommissionPlan{},
		&plandomain.BonusRule{},
		&plandomain.PerformanceAccelerator{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := config.Config{
		Attio: config.AttioConfig{APIKey: "test-key", OnlyWon: true},
		Sync:  config.SyncConfig{LockTTL: time.Minute},
		Audit: config.AuditConfig{RetentionDays: 30},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	log := zap.NewNop()
	clk := fixedClock{now: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)}

	profileRepo := aerepo.Provide()
	memberRepo := attiorepo.Provide()
	dRepo := dealrepo.Provide()
	pRepo := planrepo.Provide()

	assign := assignservice.New(assignservice.Params{
		DB: db, Log: log, ProfileRepo: profileRepo, DealRepo: dRepo, MemberRepo: memberRepo,
	})
	audit := auditservice.New(auditservice.Params{
		Config: cfg, DB: db, Log: log, GenID: node, Repo: auditrepo.Provide(), Clock: clk,
	})

	client := &fakeClient{}
	svc := New(Params{
		Config:      cfg,
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Client:      client,
		MemberRepo:  memberRepo,
		ProfileRepo: profileRepo,
		DealRepo:    dRepo,
		PlanRepo:    pRepo,
		Assign:      assign,
		Audit:       audit,
		Redis:       rdb,
	})
	return &syncFixture{svc: svc, db: db, node: node, client: client, redis: mr, cfg: cfg}
}

func memberPayload(memberID, email string) map[string]any {
	return map[string]any{
		"id":            map[string]any{"workspace_member_id": memberID},
		"email_address": email,
		"first_name":    "Test",
	}
}

func wonDealPayload(recordID, name string, amount float64, ownerMemberID string) map[string]any {
	return map[string]any{
		"id": map[string]any{"record_id": recordID},
		"values": map[string]any{
			"name":          []any{map[string]any{"value": name}},
			"amount":        []any{map[string]any{"currency_value": amount}},
			"won_loss_date": []any{map[string]any{"value": "2025-06-15"}},
			"stage":         []any{map[string]any{"status": map[string]any{"title": "Closed Won 🎉"}}},
			"owner": []any{map[string]any{
				"referenced_actor_type": "workspace-member",
				"referenced_actor_id":   ownerMemberID,
			}},
		},
	}
}

func TestRunMissingAPIKey(t *testing.T) {
	f := setupSync(t, func(c *config.Config) { c.Attio.APIKey = "" })

	_, err := f.svc.Run(context.Background(), nil)
	require.ErrorIs(t, err, attiodomain.ErrMissingAPIKey)
}

func TestRunIsIdempotent(t *testing.T) {
	f := setupSync(t, nil)
	ctx := context.Background()

	profile := &aedomain.AEProfile{
		ID:           f.node.Generate(),
		FullName:     "Jordan Reyes",
		Email:        "jordan@example.com",
		Status:       aedomain.StatusActive,
		AnnualTarget: decimal.NewFromInt(1_000_000),
	}
	require.NoError(t, f.db.Create(profile).Error)

	f.client.members = []map[string]any{memberPayload("wm-1", "jordan@example.com")}
	f.client.deals = []map[string]any{
		wonDealPayload("rec-1", "Acme Expansion", 120_000, "wm-1"),
		{"id": map[string]any{"record_id": "rec-open"}, "values": map[string]any{
			"won_loss_date": []any{map[string]any{"value": "2025-06-01"}},
			"stage":         []any{map[string]any{"status": map[string]any{"title": "Open"}}},
		}},
	}

	first, err := f.svc.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.MembersUpserted)
	assert.Equal(t, 1, first.ProfilesLinked)
	assert.Equal(t, 1, first.DealsUpserted)
	assert.Equal(t, 1, first.DealsSkipped)
	assert.Zero(t, first.Conflicts)

	// Second run against identical CRM state changes nothing.
	second, err := f.svc.Run(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, second.MembersUpserted)
	assert.Zero(t, second.ProfilesLinked)
	assert.Zero(t, second.DealsUpserted)
	assert.Zero(t, second.IdentityRepairs)

	var dealCount int64
	require.NoError(t, f.db.Model(&dealdomain.Deal{}).Count(&dealCount).Error)
	assert.EqualValues(t, 1, dealCount)

	// The won deal landed on the linked profile.
	var deal dealdomain.Deal
	require.NoError(t, f.db.First(&deal, "attio_record_id = ?", "rec-1").Error)
	require.NotNil(t, deal.AEProfileID)
	assert.Equal(t, profile.ID, *deal.AEProfileID)
	assert.Equal(t, "Won", deal.Status)
}

func TestRunRepairsIdentityByEmail(t *testing.T) {
	f := setupSync(t, nil)
	ctx := context.Background()

	profile := &aedomain.AEProfile{
		ID:           f.node.Generate(),
		FullName:     "Sam Oduya",
		Email:        "sam@example.com",
		Status:       aedomain.StatusActive,
		AnnualTarget: decimal.NewFromInt(800_000),
	}
	require.NoError(t, f.db.Create(profile).Error)

	f.client.members = []map[string]any{memberPayload("wm-old", "sam@example.com")}
	_, err := f.svc.Run(ctx, nil)
	require.NoError(t, err)

	var linked aedomain.AEProfile
	require.NoError(t, f.db.First(&linked, "id = ?", profile.ID).Error)
	require.NotNil(t, linked.AttioWorkspaceMemberID)
	assert.Equal(t, "wm-old", *linked.AttioWorkspaceMemberID)

	// The CRM reissued the member under a new id with the same email.
	f.client.members = []map[string]any{memberPayload("wm-new", "sam@example.com")}
	result, err := f.svc.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.IdentityRepairs)
	assert.Zero(t, result.Conflicts)

	// One surviving member row, profile repointed.
	var members []attiodomain.AttioWorkspaceMember
	require.NoError(t, f.db.Find(&members).Error)
	require.Len(t, members, 1)
	assert.Equal(t, "wm-new", members[0].MemberID)

	require.NoError(t, f.db.First(&linked, "id = ?", profile.ID).Error)
	require.NotNil(t, linked.AttioWorkspaceMemberID)
	assert.Equal(t, "wm-new", *linked.AttioWorkspaceMemberID)
}

func TestRunAppliesAttributeRulesMonotonically(t *testing.T) {
	f := setupSync(t, nil)
	ctx := context.Background()

	attr := "multi_year_commitment"
	plan := &plandomain.CommissionPlan{
		ID:                 f.node.Generate(),
		Name:               "Standard",
		BaseCommissionRate: decimal.NewFromFloat(0.10),
		EffectiveStartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		BonusRules: []plandomain.BonusRule{{
			ID:                 f.node.Generate(),
			Name:               "Multi-year",
			RateAdd:            decimal.NewFromFloat(0.02),
			Enabled:            true,
			AttioAttributeName: &attr,
		}},
	}
	require.NoError(t, f.db.Create(plan).Error)
	ruleID := plan.BonusRules[0].ID

	profile := &aedomain.AEProfile{
		ID:               f.node.Generate(),
		FullName:         "Mia Chen",
		Email:            "mia@example.com",
		Status:           aedomain.StatusActive,
		AnnualTarget:     decimal.NewFromInt(1_000_000),
		CommissionPlanID: &plan.ID,
	}
	require.NoError(t, f.db.Create(profile).Error)

	payload := wonDealPayload("rec-my", "Initech Multi-Year", 300_000, "wm-5")
	payload["values"].(map[string]any)[attr] = []any{map[string]any{"value": true}}
	f.client.members = []map[string]any{memberPayload("wm-5", "mia@example.com")}
	f.client.deals = []map[string]any{payload}

	result, err := f.svc.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.BonusRulesApplied)

	var deal dealdomain.Deal
	require.NoError(t, f.db.First(&deal, "attio_record_id = ?", "rec-my").Error)
	assert.True(t, deal.HasBonusRule(ruleID))

	// Attribute flips to false later; the applied rule stays.
	payload["values"].(map[string]any)[attr] = []any{map[string]any{"value": false}}
	result, err = f.svc.Run(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, result.BonusRulesApplied)

	require.NoError(t, f.db.First(&deal, "attio_record_id = ?", "rec-my").Error)
	assert.True(t, deal.HasBonusRule(ruleID))
}

func TestRunLockRejectsConcurrentRun(t *testing.T) {
	f := setupSync(t, nil)

	require.NoError(t, f.redis.Set("payline:attio:sync:lock", "other-run"))

	_, err := f.svc.Run(context.Background(), nil)
	require.ErrorIs(t, err, attiodomain.ErrSyncInProgress)

	// A foreign lock is never released by a rejected run.
	assert.True(t, f.redis.Exists("payline:attio:sync:lock"))
}

func TestRunWritesAuditAndCachesResult(t *testing.T) {
	f := setupSync(t, nil)
	ctx := context.Background()

	f.client.members = []map[string]any{memberPayload("wm-1", "a@example.com")}
	result, err := f.svc.Run(ctx, nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)

	var entries []auditdomain.AuditLog
	require.NoError(t, f.db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "ATTIO_SYNC", entries[0].Action)
	assert.Equal(t, "Attio", entries[0].EntityType)
	assert.Equal(t, "workspace", entries[0].EntityID)
	assert.Nil(t, entries[0].ActorUserID)

	cached, err := f.svc.LastResult(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, result.RunID, cached.RunID)
}

func TestRunPurgesNonWonWhenConfigured(t *testing.T) {
	f := setupSync(t, func(c *config.Config) { c.Attio.PurgeNonWon = true })
	ctx := context.Background()

	stale := &dealdomain.Deal{
		ID:                   f.node.Generate(),
		AttioRecordID:        "rec-stale",
		DealName:             "Stale Open Deal",
		Amount:               decimal.NewFromInt(1),
		CommissionableAmount: decimal.NewFromInt(1),
		CloseDate:            time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Status:               "Open",
	}
	require.NoError(t, f.db.Create(stale).Error)

	result, err := f.svc.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DealsPurged)

	var count int64
	require.NoError(t, f.db.Model(&dealdomain.Deal{}).Count(&count).Error)
	assert.Zero(t, count)
}
