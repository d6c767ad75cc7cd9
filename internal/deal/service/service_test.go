package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	"github.com/paylinelabs/payline/internal/deal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setup(t *testing.T) (dealdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&dealdomain.Deal{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.Provide(),
	})
	return svc, db, node
}

func newDeal(node *snowflake.Node, recordID, status string, amount float64) *dealdomain.Deal {
	return &dealdomain.Deal{
		ID:                   node.Generate(),
		AttioRecordID:        recordID,
		DealName:             "Acme Expansion",
		Amount:               decimal.NewFromFloat(amount),
		CommissionableAmount: decimal.NewFromFloat(amount),
		CloseDate:            time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC),
		Status:               status,
	}
}

func TestToggleBonusRuleAddAndRemove(t *testing.T) {
	svc, db, node := setup(t)
	ctx := context.Background()

	deal := newDeal(node, "rec-1", "Closed Won 🎉", 50000)
	require.NoError(t, db.Create(deal).Error)

	ruleID := node.Generate()

	updated, err := svc.ToggleBonusRule(ctx, deal.ID.String(), ruleID.String(), true)
	require.NoError(t, err)
	require.True(t, updated.HasBonusRule(ruleID))

	// Toggling on again is a no-op, not a duplicate.
	updated, err = svc.ToggleBonusRule(ctx, deal.ID.String(), ruleID.String(), true)
	require.NoError(t, err)
	require.Len(t, updated.AppliedBonusRuleIDs, 1)

	updated, err = svc.ToggleBonusRule(ctx, deal.ID.String(), ruleID.String(), false)
	require.NoError(t, err)
	require.False(t, updated.HasBonusRule(ruleID))
	require.Empty(t, updated.AppliedBonusRuleIDs)
}

func TestToggleBonusRuleUnknownDeal(t *testing.T) {
	svc, _, node := setup(t)

	_, err := svc.ToggleBonusRule(context.Background(), node.Generate().String(), node.Generate().String(), true)
	require.ErrorIs(t, err, dealdomain.ErrDealNotFound)
}

func TestUpsertByRecordIDPreservesAllowList(t *testing.T) {
	_, db, node := setup(t)
	ctx := context.Background()
	repo := repository.Provide()

	first := newDeal(node, "rec-2", "Open", 10000)
	changed, err := repo.UpsertByRecordID(ctx, db, first)
	require.NoError(t, err)
	require.True(t, changed)

	ruleID := node.Generate()
	require.NoError(t, repo.UpdateAppliedBonusRules(ctx, db, first.ID, []string{ruleID.String()}))

	second := newDeal(node, "rec-2", "Closed Won", 12000)
	changed, err = repo.UpsertByRecordID(ctx, db, second)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.HasBonusRule(ruleID))

	// A byte-identical refresh reports no change.
	third := newDeal(node, "rec-2", "Closed Won", 12000)
	changed, err = repo.UpsertByRecordID(ctx, db, third)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestListWonOnlyMatchesSubstring(t *testing.T) {
	svc, db, node := setup(t)
	ctx := context.Background()

	require.NoError(t, db.Create(newDeal(node, "rec-3", "Closed Won 🎉", 1000)).Error)
	require.NoError(t, db.Create(newDeal(node, "rec-4", "WON", 2000)).Error)
	require.NoError(t, db.Create(newDeal(node, "rec-5", "Open", 3000)).Error)
	require.NoError(t, db.Create(newDeal(node, "rec-6", "Closed Lost", 4000)).Error)

	deals, err := svc.List(ctx, dealdomain.ListFilter{WonOnly: true})
	require.NoError(t, err)
	require.Len(t, deals, 2)
	for _, d := range deals {
		require.Contains(t, []string{"rec-3", "rec-4"}, d.AttioRecordID)
	}
}

func TestReassignOwnerIsIdempotent(t *testing.T) {
	_, db, node := setup(t)
	ctx := context.Background()
	repo := repository.Provide()

	memberID := "member-abc"
	d1 := newDeal(node, "rec-7", "Closed Won", 1000)
	d1.AttioOwnerWorkspaceMemberID = &memberID
	d2 := newDeal(node, "rec-8", "Closed Won", 2000)
	d2.AttioOwnerWorkspaceMemberID = &memberID
	require.NoError(t, db.Create(d1).Error)
	require.NoError(t, db.Create(d2).Error)

	profileID := node.Generate()
	moved, err := repo.ReassignOwner(ctx, db, memberID, profileID)
	require.NoError(t, err)
	require.EqualValues(t, 2, moved)

	moved, err = repo.ReassignOwner(ctx, db, memberID, profileID)
	require.NoError(t, err)
	require.Zero(t, moved)
}
