package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
	aerepo "github.com/paylinelabs/payline/internal/aeprofile/repository"
	aeservice "github.com/paylinelabs/payline/internal/aeprofile/service"
	assignservice "github.com/paylinelabs/payline/internal/assignment/service"
	attiodomain "github.com/paylinelabs/payline/internal/attio/domain"
	attiorepo "github.com/paylinelabs/payline/internal/attio/repository"
	attioservice "github.com/paylinelabs/payline/internal/attio/service"
	auditdomain "github.com/paylinelabs/payline/internal/audit/domain"
	auditrepo "github.com/paylinelabs/payline/internal/audit/repository"
	auditservice "github.com/paylinelabs/payline/internal/audit/service"
	commservice "github.com/paylinelabs/payline/internal/commission/service"
	"github.com/paylinelabs/payline/internal/config"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	dealrepo "github.com/paylinelabs/payline/internal/deal/repository"
	dealservice "github.com/paylinelabs/payline/internal/deal/service"
	fxdomain "github.com/paylinelabs/payline/internal/fxrate/domain"
	fxrepo "github.com/paylinelabs/payline/internal/fxrate/repository"
	fxservice "github.com/paylinelabs/payline/internal/fxrate/service"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
	planrepo "github.com/paylinelabs/payline/internal/plan/repository"
	planservice "github.com/paylinelabs/payline/internal/plan/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now(context.Context) time.Time { return c.now }

type emptyClient struct{}

func (emptyClient) ListWorkspaceMembers(context.Context) ([]map[string]any, error) {
	return nil, nil
}
func (emptyClient) QueryDeals(context.Context) ([]map[string]any, error) { return nil, nil }

type fixture struct {
	router *gin.Engine
	db     *gorm.DB
	node   *snowflake.Node
	audit  auditdomain.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&plandomain.CommissionPlan{},
		&plandomain.BonusRule{},
		&plandomain.PerformanceAccelerator{},
		&aedomain.AEProfile{},
		&dealdomain.Deal{},
		&fxdomain.FxRate{},
		&attiodomain.AttioWorkspaceMember{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	clk := fixedClock{now: time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)}
	log := zap.NewNop()
	cfg := config.Config{Audit: config.AuditConfig{RetentionDays: 30}}

	profileRepo := aerepo.Provide()
	dealRepo := dealrepo.Provide()
	memberRepo := attiorepo.Provide()
	pRepo := planrepo.Provide()

	planSvc := planservice.New(planservice.Params{DB: db, Log: log, GenID: node, Repo: pRepo, Clock: clk})
	profileSvc := aeservice.New(aeservice.Params{DB: db, Log: log, GenID: node, Repo: profileRepo, DealRepo: dealRepo, Clock: clk})
	fxSvc := fxservice.New(fxservice.Params{DB: db, Log: log, GenID: node, Repo: fxrepo.Provide(), Clock: clk})
	dealSvc := dealservice.New(dealservice.Params{DB: db, Log: log, Repo: dealRepo})
	commissionSvc := commservice.New(commservice.Params{
		DB: db, Log: log, Clock: clk,
		ProfileRepo: profileRepo, ProfileSvc: profileSvc,
		DealRepo: dealRepo, PlanRepo: pRepo, Fx: fxSvc,
	})
	auditSvc := auditservice.New(auditservice.Params{
		Config: cfg, DB: db, Log: log, GenID: node, Repo: auditrepo.Provide(), Clock: clk,
	})
	assignSvc := assignservice.New(assignservice.Params{
		DB: db, Log: log, ProfileRepo: profileRepo, DealRepo: dealRepo, MemberRepo: memberRepo,
	})
	syncSvc := attioservice.New(attioservice.Params{
		Config: cfg, DB: db, Log: log, GenID: node, Clock: clk,
		Client: emptyClient{}, MemberRepo: memberRepo, ProfileRepo: profileRepo,
		DealRepo: dealRepo, PlanRepo: pRepo, Assign: assignSvc, Audit: auditSvc,
	})

	srv := New(Params{
		Config: cfg, DB: db, Log: log,
		PlanSvc: planSvc, ProfileSvc: profileSvc, FxSvc: fxSvc, DealSvc: dealSvc,
		CommissionSvc: commissionSvc, SyncSvc: syncSvc,
		AuditSvc: auditSvc, AuditExport: auditservice.NewExportService(db),
	})
	return &fixture{router: srv.Router(), db: db, node: node, audit: auditSvc}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestHealthz(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlanCRUD(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/v1/commission-plans", map[string]any{
		"name":                 "Standard 2025",
		"base_commission_rate": 0.10,
		"effective_start_date": "2025-01-01T00:00:00Z",
		"performance_accelerators": []map[string]any{
			{"min_attainment": 0, "max_attainment": 99.999, "commission_rate": 0.10},
			{"min_attainment": 100, "commission_rate": 0.15},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeData(t, rec)
	planID, _ := created["id"].(string)
	require.NotEmpty(t, planID)

	rec = f.do(t, http.MethodGet, "/v1/commission-plans/"+planID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Standard 2025", decodeData(t, rec)["name"])

	rec = f.do(t, http.MethodDelete, "/v1/commission-plans/"+planID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/commission-plans/"+planID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatementEndpoint(t *testing.T) {
	f := setup(t)

	plan := &plandomain.CommissionPlan{
		ID:                 f.node.Generate(),
		Name:               "Standard 2025",
		BaseCommissionRate: decimal.NewFromFloat(0.10),
		EffectiveStartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.db.Create(plan).Error)

	profile := &aedomain.AEProfile{
		ID:               f.node.Generate(),
		FullName:         "Jordan Reyes",
		Email:            "jordan@example.com",
		Status:           aedomain.StatusActive,
		AnnualTarget:     decimal.NewFromInt(1_000_000),
		CommissionPlanID: &plan.ID,
		PayoutCurrency:   "USD",
	}
	require.NoError(t, f.db.Create(profile).Error)

	deal := &dealdomain.Deal{
		ID:                   f.node.Generate(),
		AttioRecordID:        "rec-1",
		DealName:             "Acme Renewal",
		Amount:               decimal.NewFromInt(150_000),
		CommissionableAmount: decimal.NewFromInt(150_000),
		CloseDate:            time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		Status:               "Won",
		AEProfileID:          &profile.ID,
	}
	require.NoError(t, f.db.Create(deal).Error)

	rec := f.do(t, http.MethodGet, "/v1/ae-profiles/"+profile.ID.String()+"/statement?view=qtd", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decodeData(t, rec)
	assert.Equal(t, "Q2 2025", data["period_label"])
	assert.InDelta(t, 250_000, data["target"].(float64), 1e-6)
	assert.InDelta(t, 150_000, data["total_closed_won_amount"].(float64), 1e-6)
	assert.InDelta(t, 15_000, data["total_commission"].(float64), 1e-6)
}

func TestStatementUnknownProfileIs404(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodGet, "/v1/ae-profiles/"+f.node.Generate().String()+"/statement", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerSyncWithoutAPIKey(t *testing.T) {
	f := setup(t)
	rec := f.do(t, http.MethodPost, "/v1/sync/attio", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestAuditLogsPagination(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Distinct timestamps so the keyset cursor has a stable order.
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		entry := &auditdomain.AuditLog{
			ID:         f.node.Generate(),
			Action:     "ATTIO_SYNC",
			EntityType: "Attio",
			EntityID:   "workspace",
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, f.db.WithContext(ctx).Create(entry).Error)
	}

	rec := f.do(t, http.MethodGet, "/v1/audit-logs?page_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Data     []auditdomain.AuditLog `json:"data"`
		PageInfo struct {
			NextPageToken string `json:"next_page_token"`
			HasMore       bool   `json:"has_more"`
		} `json:"page_info"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 2)
	require.True(t, page.PageInfo.HasMore)
	require.NotEmpty(t, page.PageInfo.NextPageToken)

	rec = f.do(t, http.MethodGet, "/v1/audit-logs?page_size=2&page_token="+page.PageInfo.NextPageToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
	assert.False(t, page.PageInfo.HasMore)
}
