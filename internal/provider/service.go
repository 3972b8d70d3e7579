package provider

import (
	"context"
	"strings"
	"time"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/auth"
	"github.com/Kyz7/juna/internal/cache"
	"github.com/Kyz7/juna/internal/models"
	"github.com/Kyz7/juna/internal/storage"
	"github.com/Kyz7/juna/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	cache    cache.Cache
	cacheTTL time.Duration
	storage  storage.Presigner
	log      logrus.FieldLogger
}

// NewService wires the provider registry. A nil presigner disables
// document uploads.
func NewService(db *gorm.DB, c cache.Cache, cacheTTL time.Duration, presigner storage.Presigner, log logrus.FieldLogger) *Service {
	return &Service{db: db, cache: c, cacheTTL: cacheTTL, storage: presigner, log: log}
}

type RegisterInput struct {
	BusinessName    string `json:"businessName" validate:"required,min=2,max=150"`
	Description     string `json:"description" validate:"max=2000"`
	BusinessAddress string `json:"businessAddress" validate:"required,min=5,max=500"`
	DocumentURL     string `json:"documentUrl" validate:"omitempty,url,max=1000"`
}

func (s *Service) Register(ctx context.Context, userID uuid.UUID, in RegisterInput) (*models.Provider, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Provider{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, apperror.FromDB(err, "Provider")
	}
	if count > 0 {
		return nil, apperror.Conflict("PROVIDER_ALREADY_EXISTS", "You are already registered as a provider")
	}

	provider := models.Provider{
		UserID:          userID,
		BusinessName:    utils.SanitizeText(in.BusinessName),
		Description:     utils.SanitizeText(in.Description),
		BusinessAddress: utils.SanitizeText(in.BusinessAddress),
		DocumentURL:     in.DocumentURL,
		Status:          models.ProviderPending,
	}
	if err := db.Create(&provider).Error; err != nil {
		return nil, apperror.FromDB(err, "Provider")
	}

	s.log.WithFields(logrus.Fields{"provider_id": provider.ID, "user_id": userID}).Info("provider registered")
	return &provider, nil
}

func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Provider, error) {
	var provider models.Provider
	if err := s.db.WithContext(ctx).First(&provider, "user_id = ?", userID).Error; err != nil {
		return nil, apperror.FromDB(err, "Provider")
	}
	return &provider, nil
}

type UpdateInput struct {
	BusinessName    *string `json:"businessName" validate:"omitempty,min=2,max=150"`
	Description     *string `json:"description" validate:"omitempty,max=2000"`
	BusinessAddress *string `json:"businessAddress" validate:"omitempty,min=5,max=500"`
	DocumentURL     *string `json:"documentUrl" validate:"omitempty,url,max=1000"`
}

func (s *Service) UpdateMine(ctx context.Context, userID uuid.UUID, in UpdateInput) (*models.Provider, error) {
	provider, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if provider.Status != models.ProviderApproved {
		return nil, apperror.Forbidden("PROVIDER_NOT_APPROVED", "Only approved providers can update their profile")
	}

	updates := map[string]interface{}{}
	if in.BusinessName != nil {
		updates["business_name"] = utils.SanitizeText(*in.BusinessName)
	}
	if in.Description != nil {
		updates["description"] = utils.SanitizeText(*in.Description)
	}
	if in.BusinessAddress != nil {
		updates["business_address"] = utils.SanitizeText(*in.BusinessAddress)
	}
	if in.DocumentURL != nil {
		updates["document_url"] = *in.DocumentURL
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(provider).Updates(updates).Error; err != nil {
			return nil, apperror.FromDB(err, "Provider")
		}
		s.invalidate(ctx, provider.ID)
	}
	return s.GetByUser(ctx, userID)
}

type DocumentUploadInput struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required"`
}

// PresignDocument returns a presigned upload target for the caller's
// verification document.
func (s *Service) PresignDocument(ctx context.Context, userID uuid.UUID, in DocumentUploadInput) (*storage.Upload, error) {
	if s.storage == nil {
		return nil, apperror.Unavailable("Document storage is not configured", nil)
	}
	if !storage.IsAllowedDocumentType(in.ContentType) {
		return nil, apperror.Validation("", "Document must be a PDF, JPEG or PNG file")
	}

	provider, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	upload, err := s.storage.PresignDocumentUpload(ctx, provider.ID, in.ContentType)
	if err != nil {
		return nil, apperror.Unavailable("Failed to prepare document upload", err)
	}
	return upload, nil
}

// GetPublic returns an approved provider's profile.
func (s *Service) GetPublic(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	key := cache.ProviderKey(id)

	var provider models.Provider
	if hit, err := s.cache.Get(ctx, key, &provider); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache read failed")
	} else if hit {
		return &provider, nil
	}

	err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.ProviderApproved).
		First(&provider).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Provider")
	}

	if err := s.cache.Set(ctx, key, &provider, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return &provider, nil
}

type ListFilter struct {
	Status models.ProviderStatus
	Search string
	Page   int
	Limit  int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Provider, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Provider{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(business_name) LIKE ? OR LOWER(business_address) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperror.FromDB(err, "Provider")
	}

	var providers []models.Provider
	err := q.Preload("User").
		Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&providers).Error
	if err != nil {
		return nil, 0, apperror.FromDB(err, "Provider")
	}
	return providers, total, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	var provider models.Provider
	if err := s.db.WithContext(ctx).Preload("User").First(&provider, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(err, "Provider")
	}
	return &provider, nil
}

// Approve moves a PENDING provider to APPROVED and promotes its owner to
// the PROVIDER role.
func (s *Service) Approve(ctx context.Context, admin *auth.Identity, id uuid.UUID) (*models.Provider, error) {
	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		provider, err := s.transition(tx, id, []models.ProviderStatus{models.ProviderPending}, map[string]interface{}{
			"status":           models.ProviderApproved,
			"approved_at":      now,
			"approved_by":      admin.UserID,
			"rejection_reason": "",
		})
		if err != nil {
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ? AND role = ?", provider.UserID, models.RoleUser).
			Update("role", models.RoleProvider).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"provider_id": id, "admin_id": admin.UserID}).Info("provider approved")
	s.invalidate(ctx, id)
	return s.Get(ctx, id)
}

func (s *Service) Reject(ctx context.Context, admin *auth.Identity, id uuid.UUID, reason string) (*models.Provider, error) {
	_, err := s.transition(s.db.WithContext(ctx), id, []models.ProviderStatus{models.ProviderPending}, map[string]interface{}{
		"status":           models.ProviderRejected,
		"rejection_reason": utils.SanitizeText(reason),
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"provider_id": id, "admin_id": admin.UserID}).Info("provider rejected")
	s.invalidate(ctx, id)
	return s.Get(ctx, id)
}

func (s *Service) Suspend(ctx context.Context, admin *auth.Identity, id uuid.UUID, reason string) (*models.Provider, error) {
	from := []models.ProviderStatus{models.ProviderPending, models.ProviderApproved, models.ProviderRejected}
	updates := map[string]interface{}{
		"status":       models.ProviderSuspended,
		"suspended_at": time.Now(),
	}
	if reason != "" {
		updates["rejection_reason"] = utils.SanitizeText(reason)
	}
	if _, err := s.transition(s.db.WithContext(ctx), id, from, updates); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"provider_id": id, "admin_id": admin.UserID}).Warn("provider suspended")
	s.invalidate(ctx, id)
	return s.Get(ctx, id)
}

// transition applies updates only while the provider is in one of from.
func (s *Service) transition(db *gorm.DB, id uuid.UUID, from []models.ProviderStatus, updates map[string]interface{}) (*models.Provider, error) {
	result := db.Model(&models.Provider{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return nil, apperror.FromDB(result.Error, "Provider")
	}

	var provider models.Provider
	if err := db.First(&provider, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(err, "Provider")
	}
	if result.RowsAffected == 0 {
		return nil, apperror.Conflict("PROVIDER_ALREADY_PROCESSED", "Provider is already "+strings.ToLower(string(provider.Status)))
	}
	return &provider, nil
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, cache.ProviderKey(id)); err != nil {
		s.log.WithError(err).Warn("cache invalidation failed")
	}
	if err := s.cache.DeletePattern(ctx, cache.SubscriptionListPattern); err != nil {
		s.log.WithError(err).Warn("cache invalidation failed")
	}
}
