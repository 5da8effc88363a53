package repository

import (
	"context"
	"errors"

	"github.com/groupcar/groupcar-server/internal/domain"
	"github.com/groupcar/groupcar-server/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrInviteNotFound     = errors.New("invite not found")
	ErrAlreadyMember      = errors.New("user is already a group member")
	ErrAlreadyInvited     = errors.New("user is already invited")
)

type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	FindByID(ctx context.Context, id uint) (*domain.Group, error)
	ListByUser(ctx context.Context, userID uint) ([]domain.Group, error)
	FindMembership(ctx context.Context, userID, groupID uint) (*domain.Membership, error)
	ListMembers(ctx context.Context, groupID uint) ([]domain.Membership, error)
	DeleteMembership(ctx context.Context, userID, groupID uint) error
	CreateInvite(ctx context.Context, invite *domain.Invite) error
	FindInvite(ctx context.Context, userID, groupID uint) (*domain.Invite, error)
	ListInvitesByUser(ctx context.Context, userID uint) ([]domain.Invite, error)
	// AcceptInvite promotes an invite to a membership atomically.
	AcceptInvite(ctx context.Context, userID, groupID uint) (*domain.Membership, error)
}

type GormGroupRepository struct{ db *gorm.DB }

func NewGroupRepository(db *gorm.DB) GroupRepository { return &GormGroupRepository{db: db} }

// Create inserts the group and the owner's admin membership in one
// transaction, so a group can never exist without its owner as member.
func (r *GormGroupRepository) Create(ctx context.Context, group *domain.Group) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		return tx.Create(&domain.Membership{
			UserID:  group.OwnerID,
			GroupID: group.ID,
			IsAdmin: true,
		}).Error
	})
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "group", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "group", "create", "success")
	return nil
}

func (r *GormGroupRepository) FindByID(ctx context.Context, id uint) (*domain.Group, error) {
	var g domain.Group
	err := r.db.WithContext(ctx).Preload("Owner").First(&g, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "group", "find_by_id", "not_found")
			return nil, ErrGroupNotFound
		}
		observability.RecordRepositoryOperation(ctx, "group", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "group", "find_by_id", "success")
	return &g, nil
}

func (r *GormGroupRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Group, error) {
	var groups []domain.Group
	err := r.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.group_id = groups.id").
		Where("memberships.user_id = ?", userID).
		Order("groups.created_at").
		Find(&groups).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "group", "list_by_user", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "group", "list_by_user", "success")
	return groups, nil
}

func (r *GormGroupRepository) FindMembership(ctx context.Context, userID, groupID uint) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "membership", "find", "not_found")
			return nil, ErrMembershipNotFound
		}
		observability.RecordRepositoryOperation(ctx, "membership", "find", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "membership", "find", "success")
	return &m, nil
}

func (r *GormGroupRepository) ListMembers(ctx context.Context, groupID uint) ([]domain.Membership, error) {
	var members []domain.Membership
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at").
		Find(&members).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "membership", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "membership", "list", "success")
	return members, nil
}

func (r *GormGroupRepository) DeleteMembership(ctx context.Context, userID, groupID uint) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Delete(&domain.Membership{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "membership", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "membership", "delete", "not_found")
		return ErrMembershipNotFound
	}
	observability.RecordRepositoryOperation(ctx, "membership", "delete", "success")
	return nil
}

func (r *GormGroupRepository) CreateInvite(ctx context.Context, invite *domain.Invite) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Membership{}).
			Where("user_id = ? AND group_id = ?", invite.UserID, invite.GroupID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyMember
		}
		if err := tx.Model(&domain.Invite{}).
			Where("user_id = ? AND group_id = ?", invite.UserID, invite.GroupID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyInvited
		}
		return tx.Create(invite).Error
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrAlreadyMember) || errors.Is(err, ErrAlreadyInvited) {
			outcome = "conflict"
		}
		observability.RecordRepositoryOperation(ctx, "invite", "create", outcome)
		return err
	}
	observability.RecordRepositoryOperation(ctx, "invite", "create", "success")
	return nil
}

func (r *GormGroupRepository) FindInvite(ctx context.Context, userID, groupID uint) (*domain.Invite, error) {
	var inv domain.Invite
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "invite", "find", "not_found")
			return nil, ErrInviteNotFound
		}
		observability.RecordRepositoryOperation(ctx, "invite", "find", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "invite", "find", "success")
	return &inv, nil
}

func (r *GormGroupRepository) ListInvitesByUser(ctx context.Context, userID uint) ([]domain.Invite, error) {
	var invites []domain.Invite
	err := r.db.WithContext(ctx).
		Preload("Group").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "invite", "list_by_user", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "invite", "list_by_user", "success")
	return invites, nil
}

func (r *GormGroupRepository) AcceptInvite(ctx context.Context, userID, groupID uint) (*domain.Membership, error) {
	var membership *domain.Membership
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND group_id = ?", userID, groupID).Delete(&domain.Invite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInviteNotFound
		}
		m := &domain.Membership{UserID: userID, GroupID: groupID, IsAdmin: false}
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		membership = m
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInviteNotFound) {
			observability.RecordRepositoryOperation(ctx, "invite", "accept", "not_found")
		} else {
			observability.RecordRepositoryOperation(ctx, "invite", "accept", "error")
		}
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "invite", "accept", "success")
	return membership, nil
}
