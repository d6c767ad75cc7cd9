package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
	assigndomain "github.com/paylinelabs/payline/internal/assignment/domain"
	attiodomain "github.com/paylinelabs/payline/internal/attio/domain"
	auditdomain "github.com/paylinelabs/payline/internal/audit/domain"
	"github.com/paylinelabs/payline/internal/clock"
	"github.com/paylinelabs/payline/internal/config"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	lockKey       = "payline:attio:sync:lock"
	lastResultKey = "payline:attio:sync:last"
)

type Service struct {
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	client      attiodomain.Client
	memberRepo  attiodomain.Repository
	profileRepo aedomain.Repository
	dealRepo    dealdomain.Repository
	planRepo    plandomain.Repository
	assign      assigndomain.Service
	audit       auditdomain.Service
	redis       *redis.Client
}

type Params struct {
	fx.In

	Config      config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Client      attiodomain.Client
	MemberRepo  attiodomain.Repository
	ProfileRepo aedomain.Repository
	DealRepo    dealdomain.Repository
	PlanRepo    plandomain.Repository
	Assign      assigndomain.Service
	Audit       auditdomain.Service
	Redis       *redis.Client `optional:"true"`
}

func New(p Params) attiodomain.Service {
	return &Service{
		cfg:         p.Config,
		db:          p.DB,
		log:         p.Log.Named("attio.sync"),
		genID:       p.GenID,
		clock:       p.Clock,
		client:      p.Client,
		memberRepo:  p.MemberRepo,
		profileRepo: p.ProfileRepo,
		dealRepo:    p.DealRepo,
		planRepo:    p.PlanRepo,
		assign:      p.Assign,
		audit:       p.Audit,
		redis:       p.Redis,
	}
}

func (s *Service) Run(ctx context.Context, actorUserID *string) (*attiodomain.SyncResult, error) {
	if s.cfg.Attio.APIKey == "" {
		return nil, attiodomain.ErrMissingAPIKey
	}

	runID := ulid.MustNew(ulid.Timestamp(s.clock.Now(ctx)), rand.Reader).String()
	if err := s.acquireLock(ctx, runID); err != nil {
		return nil, err
	}
	defer s.releaseLock(context.WithoutCancel(ctx), runID)

	result := &attiodomain.SyncResult{
		RunID:     runID,
		StartedAt: s.clock.Now(ctx),
	}
	s.log.Info("sync run started", zap.String("run_id", runID))

	err := s.run(ctx, result)
	result.FinishedAt = s.clock.Now(ctx)

	if err != nil {
		syncRuns.WithLabelValues("error").Inc()
		s.log.Error("sync run failed", zap.String("run_id", runID), zap.Error(err))
		return nil, err
	}

	syncRuns.WithLabelValues("ok").Inc()
	syncDealsUpserted.Add(float64(result.DealsUpserted))
	syncIdentityRepairs.Add(float64(result.IdentityRepairs))
	syncConflicts.Add(float64(result.Conflicts))

	if auditErr := s.audit.Log(ctx, actorUserID, "ATTIO_SYNC", "Attio", "workspace", result); auditErr != nil {
		s.log.Warn("sync audit entry failed", zap.Error(auditErr))
	}
	s.cacheResult(ctx, result)

	s.log.Info("sync run finished",
		zap.String("run_id", runID),
		zap.Int("members_upserted", result.MembersUpserted),
		zap.Int("identity_repairs", result.IdentityRepairs),
		zap.Int("deals_upserted", result.DealsUpserted),
		zap.Int("conflicts", result.Conflicts))
	return result, nil
}

func (s *Service) run(ctx context.Context, result *attiodomain.SyncResult) error {
	if err := s.syncMembers(ctx, result); err != nil {
		return fmt.Errorf("sync members: %w", err)
	}

	linked, err := s.assign.LinkProfilesByEmail(ctx)
	if err != nil {
		return fmt.Errorf("link profiles by email: %w", err)
	}
	result.ProfilesLinked = linked.Linked
	result.Conflicts += linked.Conflicts

	if err := s.syncDeals(ctx, result); err != nil {
		return fmt.Errorf("sync deals: %w", err)
	}

	if s.cfg.Attio.PurgeNonWon {
		purged, err := s.dealRepo.DeleteNonWon(ctx, s.db)
		if err != nil {
			return fmt.Errorf("purge non-won deals: %w", err)
		}
		result.DealsPurged = int(purged)
	}

	reassigned, err := s.assign.ReassignDeals(ctx)
	if err != nil {
		return fmt.Errorf("reassign deals: %w", err)
	}
	result.DealsReassigned = int(reassigned)
	return nil
}

func (s *Service) syncMembers(ctx context.Context, result *attiodomain.SyncResult) error {
	records, err := s.client.ListWorkspaceMembers(ctx)
	if err != nil {
		return err
	}
	result.MembersFetched = len(records)

	for _, raw := range records {
		parsed := attiodomain.ParseMember(raw)
		if parsed == nil {
			continue
		}
		if err := s.upsertMember(ctx, parsed, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) upsertMember(ctx context.Context, parsed *attiodomain.ParsedMember, result *attiodomain.SyncResult) error {
	now := s.clock.Now(ctx)

	existing, err := s.memberRepo.FindMemberByID(ctx, s.db, parsed.MemberID)
	if err != nil {
		return err
	}
	if existing != nil {
		if memberEqual(existing, parsed) {
			return nil
		}
		existing.Email = parsed.Email
		existing.FirstName = parsed.FirstName
		existing.LastName = parsed.LastName
		existing.UpdatedAt = now
		if err := s.memberRepo.Save(ctx, s.db, existing); err != nil {
			return err
		}
		result.MembersUpserted++
		return nil
	}

	// Same email under a different external id means the CRM reissued the
	// member. Repoint profiles, drop the stale row, and store the new one in
	// a single transaction so a partial repair never survives.
	if parsed.Email != "" {
		stale, err := s.memberRepo.FindMemberByEmail(ctx, s.db, parsed.Email)
		if err != nil {
			return err
		}
		if stale != nil && stale.MemberID != parsed.MemberID {
			repairErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				if _, err := s.profileRepo.RepointMember(ctx, tx, stale.MemberID, parsed.MemberID); err != nil {
					return err
				}
				if err := s.memberRepo.DeleteByMemberID(ctx, tx, stale.MemberID); err != nil {
					return err
				}
				return s.memberRepo.Save(ctx, tx, s.newMember(parsed, now))
			})
			if repairErr != nil {
				result.Conflicts++
				result.Errors = append(result.Errors, fmt.Sprintf("identity repair for %s: %v", parsed.Email, repairErr))
				s.log.Warn("identity repair failed",
					zap.String("email", parsed.Email),
					zap.Error(repairErr))
				return nil
			}
			result.IdentityRepairs++
			result.MembersUpserted++
			return nil
		}
	}

	if err := s.memberRepo.Save(ctx, s.db, s.newMember(parsed, now)); err != nil {
		return err
	}
	result.MembersUpserted++
	return nil
}

func (s *Service) newMember(parsed *attiodomain.ParsedMember, now time.Time) *attiodomain.AttioWorkspaceMember {
	return &attiodomain.AttioWorkspaceMember{
		ID:        s.genID.Generate(),
		MemberID:  parsed.MemberID,
		Email:     parsed.Email,
		FirstName: parsed.FirstName,
		LastName:  parsed.LastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func memberEqual(m *attiodomain.AttioWorkspaceMember, p *attiodomain.ParsedMember) bool {
	return m.Email == p.Email &&
		strPtrEqual(m.FirstName, p.FirstName) &&
		strPtrEqual(m.LastName, p.LastName)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Service) syncDeals(ctx context.Context, result *attiodomain.SyncResult) error {
	records, err := s.client.QueryDeals(ctx)
	if err != nil {
		return err
	}
	result.DealsFetched = len(records)

	memberToProfile, profilePlans, err := s.ownershipMaps(ctx)
	if err != nil {
		return err
	}
	attributeRules, err := s.attributeRules(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now(ctx)
	for _, raw := range records {
		parsed := attiodomain.ParseDeal(raw)
		if parsed == nil || parsed.CloseDate == nil {
			result.DealsSkipped++
			continue
		}
		if s.cfg.Attio.OnlyWon && !parsed.IsWon() {
			result.DealsSkipped++
			continue
		}

		deal, err := s.buildDeal(parsed, memberToProfile, now)
		if err != nil {
			result.DealsSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("deal %s: %v", parsed.RecordID, err))
			continue
		}

		changed, err := s.dealRepo.UpsertByRecordID(ctx, s.db, deal)
		if err != nil {
			return err
		}
		if changed {
			result.DealsUpserted++
		}

		applied, err := s.applyAttributeRules(ctx, deal, parsed, attributeRules, profilePlans)
		if err != nil {
			return err
		}
		result.BonusRulesApplied += applied
	}
	return nil
}

func (s *Service) buildDeal(parsed *attiodomain.ParsedDeal, memberToProfile map[string]snowflake.ID, now time.Time) (*dealdomain.Deal, error) {
	rawPayload, err := json.Marshal(parsed.Raw)
	if err != nil {
		return nil, err
	}

	name := parsed.Name
	if name == "" {
		name = "Untitled Deal"
	}
	deal := &dealdomain.Deal{
		ID:                          s.genID.Generate(),
		AttioRecordID:               parsed.RecordID,
		DealName:                    name,
		AccountName:                 parsed.AccountName,
		Amount:                      decimal.NewFromFloat(parsed.Amount),
		CommissionableAmount:        decimal.NewFromFloat(parsed.Amount),
		CloseDate:                   *parsed.CloseDate,
		Status:                      parsed.Status,
		AttioOwnerWorkspaceMemberID: parsed.OwnerMemberID,
		RawAttioPayload:             datatypes.JSON(rawPayload),
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}
	if parsed.OwnerMemberID != nil {
		if profileID, ok := memberToProfile[*parsed.OwnerMemberID]; ok {
			deal.AEProfileID = &profileID
		}
	}
	return deal, nil
}

func (s *Service) ownershipMaps(ctx context.Context) (map[string]snowflake.ID, map[snowflake.ID]snowflake.ID, error) {
	profiles, err := s.profileRepo.ListActive(ctx, s.db)
	if err != nil {
		return nil, nil, err
	}

	memberToProfile := make(map[string]snowflake.ID)
	profilePlans := make(map[snowflake.ID]snowflake.ID)
	for _, p := range profiles {
		if p.AttioWorkspaceMemberID != nil && *p.AttioWorkspaceMemberID != "" {
			memberToProfile[*p.AttioWorkspaceMemberID] = p.ID
		}
		if p.CommissionPlanID != nil {
			profilePlans[p.ID] = *p.CommissionPlanID
		}
	}
	return memberToProfile, profilePlans, nil
}

// attributeRules returns the enabled bonus rules carrying an external
// attribute link, grouped by owning plan.
func (s *Service) attributeRules(ctx context.Context) (map[snowflake.ID][]plandomain.BonusRule, error) {
	plans, err := s.planRepo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	rules := make(map[snowflake.ID][]plandomain.BonusRule)
	for _, plan := range plans {
		for _, rule := range plan.BonusRules {
			if !rule.Enabled {
				continue
			}
			if rule.AttioAttributeID == nil && rule.AttioAttributeName == nil {
				continue
			}
			rules[plan.ID] = append(rules[plan.ID], rule)
		}
	}
	return rules, nil
}

// applyAttributeRules adds attribute-linked rules to a deal's allow-list
// when the deal's raw record carries a truthy value for the attribute. The
// application is monotonic: sync never removes a rule, so manual toggles
// stay safe.
func (s *Service) applyAttributeRules(ctx context.Context, deal *dealdomain.Deal, parsed *attiodomain.ParsedDeal, attributeRules map[snowflake.ID][]plandomain.BonusRule, profilePlans map[snowflake.ID]snowflake.ID) (int, error) {
	if deal.AEProfileID == nil {
		return 0, nil
	}
	planID, ok := profilePlans[*deal.AEProfileID]
	if !ok {
		return 0, nil
	}
	rules := attributeRules[planID]
	if len(rules) == 0 {
		return 0, nil
	}

	applied := 0
	allowList := []string(deal.AppliedBonusRuleIDs)
	for _, rule := range rules {
		if deal.HasBonusRule(rule.ID) {
			continue
		}
		truthy := false
		if rule.AttioAttributeID != nil && attiodomain.AttributeTruthy(parsed.Raw, *rule.AttioAttributeID) {
			truthy = true
		}
		if !truthy && rule.AttioAttributeName != nil && attiodomain.AttributeTruthy(parsed.Raw, *rule.AttioAttributeName) {
			truthy = true
		}
		if !truthy {
			continue
		}
		allowList = append(allowList, rule.ID.String())
		deal.AppliedBonusRuleIDs = datatypes.JSONSlice[string](allowList)
		applied++
	}
	if applied == 0 {
		return 0, nil
	}

	if err := s.dealRepo.UpdateAppliedBonusRules(ctx, s.db, deal.ID, allowList); err != nil {
		return 0, err
	}
	return applied, nil
}

func (s *Service) acquireLock(ctx context.Context, runID string) error {
	if s.redis == nil {
		return nil
	}
	ok, err := s.redis.SetNX(ctx, lockKey, runID, s.cfg.Sync.LockTTL).Result()
	if err != nil {
		return fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return attiodomain.ErrSyncInProgress
	}
	return nil
}

func (s *Service) releaseLock(ctx context.Context, runID string) {
	if s.redis == nil {
		return
	}
	// Only the holder releases; a TTL-expired lock may belong to a newer run.
	current, err := s.redis.Get(ctx, lockKey).Result()
	if err != nil || current != runID {
		return
	}
	if err := s.redis.Del(ctx, lockKey).Err(); err != nil {
		s.log.Warn("release sync lock failed", zap.Error(err))
	}
}

func (s *Service) cacheResult(ctx context.Context, result *attiodomain.SyncResult) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, lastResultKey, raw, 0).Err(); err != nil {
		s.log.Warn("cache sync result failed", zap.Error(err))
	}
}

func (s *Service) LastResult(ctx context.Context) (*attiodomain.SyncResult, error) {
	if s.redis == nil {
		return nil, nil
	}
	raw, err := s.redis.Get(ctx, lastResultKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var result attiodomain.SyncResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
