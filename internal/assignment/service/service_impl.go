package service

import (
	"context"
	"errors"
	"strings"

	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
	assigndomain "github.com/paylinelabs/payline/internal/assignment/domain"
	attiodomain "github.com/paylinelabs/payline/internal/attio/domain"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	profileRepo aedomain.Repository
	dealRepo    dealdomain.Repository
	memberRepo  attiodomain.Repository
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	ProfileRepo aedomain.Repository
	DealRepo    dealdomain.Repository
	MemberRepo  attiodomain.Repository
}

func New(p Params) assigndomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("assignment.service"),
		profileRepo: p.ProfileRepo,
		dealRepo:    p.DealRepo,
		memberRepo:  p.MemberRepo,
	}
}

func (s *Service) ReassignDeals(ctx context.Context) (int64, error) {
	profiles, err := s.profileRepo.ListActive(ctx, s.db)
	if err != nil {
		return 0, err
	}

	var moved int64
	for i := range profiles {
		profile := &profiles[i]
		if profile.AttioWorkspaceMemberID == nil || *profile.AttioWorkspaceMemberID == "" {
			continue
		}
		n, err := s.dealRepo.ReassignOwner(ctx, s.db, *profile.AttioWorkspaceMemberID, profile.ID)
		if err != nil {
			return moved, err
		}
		moved += n
	}
	if moved > 0 {
		s.log.Info("deals reassigned to owners", zap.Int64("moved", moved))
	}
	return moved, nil
}

func (s *Service) LinkProfilesByEmail(ctx context.Context) (*assigndomain.LinkResult, error) {
	profiles, err := s.profileRepo.ListActive(ctx, s.db)
	if err != nil {
		return nil, err
	}
	members, err := s.memberRepo.ListMembers(ctx, s.db)
	if err != nil {
		return nil, err
	}

	byEmail := make(map[string]string, len(members))
	for _, m := range members {
		if m.Email != "" {
			byEmail[strings.ToLower(m.Email)] = m.MemberID
		}
	}

	result := &assigndomain.LinkResult{}
	for i := range profiles {
		profile := &profiles[i]
		memberID, ok := byEmail[strings.ToLower(profile.Email)]
		if !ok {
			continue
		}
		if profile.AttioWorkspaceMemberID != nil && *profile.AttioWorkspaceMemberID == memberID {
			continue
		}
		if err := s.profileRepo.LinkMember(ctx, s.db, profile.ID, &memberID); err != nil {
			// Another profile already holds this member id. Count it and
			// keep going; a later identity repair may clear it.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result.Conflicts++
				s.log.Warn("member link conflict",
					zap.String("profile_id", profile.ID.String()),
					zap.String("member_id", memberID))
				continue
			}
			return result, err
		}
		result.Linked++
	}
	return result, nil
}
