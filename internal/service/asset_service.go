package service

import (
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/assetlib"
	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
	"github.com/unclebandit/clippilot-backend/internal/metrics"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/repository"
	"github.com/unclebandit/clippilot-backend/internal/storage"
)

type AssetService struct {
	AssetRepo repository.AssetRepositoryInterface
	TeamRepo  repository.TeamRepositoryInterface
	Store     storage.ObjectStore
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

type Upload struct {
	Filename string
	MimeType string
	Size     int64
	Body     io.Reader
}

func (s *AssetService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AssetService) log() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *AssetService) requireMember(ctx context.Context, teamID, userID string) error {
	ok, err := s.TeamRepo.IsMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewForbidden(userID, "manage assets of team "+teamID)
	}
	return nil
}

// Upload stores the bytes, then records the asset row. When the insert fails
// the stored object stays behind.
func (s *AssetService) Upload(ctx context.Context, userID, teamID string, up Upload) (*model.Asset, error) {
	if teamID == "" {
		return nil, appErrors.NewValidation("team_id", "is required")
	}
	if strings.TrimSpace(up.Filename) == "" {
		return nil, appErrors.NewValidation("file", "is required")
	}
	if err := s.requireMember(ctx, teamID, userID); err != nil {
		return nil, err
	}
	if up.MimeType == "" {
		up.MimeType = "application/octet-stream"
	}

	now := s.now()
	key := storage.ObjectKey(teamID, now, up.Filename)
	url, err := s.Store.Put(ctx, key, up.MimeType, up.Size, up.Body)
	if err != nil {
		s.Metrics.AssetUpload("storage_error")
		return nil, err
	}

	asset := &model.Asset{
		TeamID: teamID,
		Type:   model.AssetTypeFromMIME(up.MimeType),
		URL:    url,
		Metadata: model.AssetMetadata{
			Filename:   up.Filename,
			Size:       up.Size,
			MimeType:   up.MimeType,
			UploadedAt: now,
		},
	}
	if err := s.AssetRepo.Create(ctx, asset); err != nil {
		s.Metrics.AssetUpload("db_error")
		s.log().Error("asset row insert failed, object left in storage", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	s.Metrics.AssetUpload("ok")
	s.log().Info("asset uploaded", zap.String("asset_id", asset.ID), zap.String("key", key), zap.Int64("size", up.Size))
	return asset, nil
}

func (s *AssetService) List(ctx context.Context, userID, teamID string, q assetlib.Query) (*assetlib.Result, error) {
	if teamID == "" {
		return nil, appErrors.NewValidation("team_id", "is required")
	}
	if q.Type != "" && !q.Type.Valid() {
		return nil, appErrors.NewValidation("type", "must be image, video, audio or document")
	}
	if err := s.requireMember(ctx, teamID, userID); err != nil {
		return nil, err
	}
	assets, err := s.AssetRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	result := assetlib.Apply(assets, q)
	return &result, nil
}

// Delete removes the asset row. The stored object is not deleted.
func (s *AssetService) Delete(ctx context.Context, userID, assetID string) error {
	asset, err := s.AssetRepo.GetByID(ctx, assetID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, asset.TeamID, userID); err != nil {
		return err
	}
	if err := s.AssetRepo.Delete(ctx, assetID); err != nil {
		return err
	}
	s.log().Info("asset deleted", zap.String("asset_id", assetID), zap.String("user_id", userID))
	return nil
}
