package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
	"github.com/paylinelabs/payline/internal/clock"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     aedomain.Repository
	dealRepo dealdomain.Repository
	clock    clock.Clock
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     aedomain.Repository
	DealRepo dealdomain.Repository
	Clock    clock.Clock
}

func New(p Params) aedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("aeprofile.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		dealRepo: p.DealRepo,
		clock:    p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req aedomain.CreateRequest) (*aedomain.AEProfile, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	fullName := strings.TrimSpace(req.FullName)
	if email == "" || fullName == "" {
		return nil, aedomain.ErrInvalidProfile
	}

	currency := strings.ToUpper(strings.TrimSpace(req.PayoutCurrency))
	if currency == "" {
		currency = "USD"
	}

	now := s.clock.Now(ctx)
	profile := &aedomain.AEProfile{
		ID:             s.genID.Generate(),
		FullName:       fullName,
		Email:          email,
		Status:         aedomain.StatusActive,
		AnnualTarget:   decimal.NewFromFloat(req.AnnualTarget),
		StartDate:      req.StartDate,
		PayoutCurrency: currency,
		JobRole:        req.JobRole,
		Segment:        req.Segment,
		Territory:      req.Territory,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.CommissionPlanID != nil {
		planID, err := parseID(*req.CommissionPlanID)
		if err != nil {
			return nil, aedomain.ErrInvalidProfile
		}
		profile.CommissionPlanID = &planID
	}

	if err := s.repo.Insert(ctx, s.db, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *Service) Get(ctx context.Context, id string) (*aedomain.AEProfile, error) {
	profileID, err := parseID(id)
	if err != nil {
		return nil, aedomain.ErrProfileNotFound
	}
	profile, err := s.repo.FindByID(ctx, s.db, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, aedomain.ErrProfileNotFound
	}
	return profile, nil
}

func (s *Service) ListActive(ctx context.Context) ([]aedomain.AEProfile, error) {
	return s.repo.ListActive(ctx, s.db)
}

func (s *Service) Update(ctx context.Context, id string, req aedomain.UpdateRequest) (*aedomain.AEProfile, error) {
	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		profile.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.AnnualTarget != nil {
		profile.AnnualTarget = decimal.NewFromFloat(*req.AnnualTarget)
	}
	if req.StartDate != nil {
		profile.StartDate = req.StartDate
	}
	if req.CommissionPlanID != nil {
		if strings.TrimSpace(*req.CommissionPlanID) == "" {
			profile.CommissionPlanID = nil
		} else {
			planID, err := parseID(*req.CommissionPlanID)
			if err != nil {
				return nil, aedomain.ErrInvalidProfile
			}
			profile.CommissionPlanID = &planID
		}
	}
	if req.PayoutCurrency != nil {
		profile.PayoutCurrency = strings.ToUpper(strings.TrimSpace(*req.PayoutCurrency))
	}
	if req.JobRole != nil {
		profile.JobRole = req.JobRole
	}
	if req.Segment != nil {
		profile.Segment = req.Segment
	}
	if req.Territory != nil {
		profile.Territory = req.Territory
	}
	if req.Status != nil {
		switch aedomain.ProfileStatus(strings.ToUpper(*req.Status)) {
		case aedomain.StatusActive:
			profile.Status = aedomain.StatusActive
		case aedomain.StatusInactive:
			profile.Status = aedomain.StatusInactive
		default:
			return nil, aedomain.ErrInvalidProfile
		}
	}
	profile.UpdatedAt = s.clock.Now(ctx)

	if err := s.repo.Update(ctx, s.db, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	profileID, err := parseID(id)
	if err != nil {
		return aedomain.ErrProfileNotFound
	}
	return s.repo.Delete(ctx, s.db, profileID)
}

func (s *Service) LinkMember(ctx context.Context, id string, memberID *string) (*aedomain.AEProfile, error) {
	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.LinkMember(ctx, s.db, profile.ID, memberID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, aedomain.ErrMemberAlreadyLinked
		}
		return nil, err
	}
	profile.AttioWorkspaceMemberID = memberID

	// Deals already synced under this member id would otherwise stay orphaned
	// until the next sync run.
	if memberID != nil {
		moved, err := s.dealRepo.ReassignOwner(ctx, s.db, *memberID, profile.ID)
		if err != nil {
			return nil, err
		}
		if moved > 0 {
			s.log.Info("reassigned deals after member link",
				zap.String("profile_id", profile.ID.String()),
				zap.String("member_id", *memberID),
				zap.Int64("deals", moved))
		}
	}
	return profile, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
