package service

import (
	"context"

	"mvp/internal/blobstore"
	"mvp/internal/gateway"
	"mvp/internal/models"
)

type ProfileService struct {
	rows     RowGateway
	uploader ImageUploader
}

func NewProfileService(rows RowGateway, uploader ImageUploader) *ProfileService {
	return &ProfileService{rows: rows, uploader: uploader}
}

// FetchProfile loads one profile. A missing row is a not-found error.
func (s *ProfileService) FetchProfile(ctx context.Context, userID string) (*models.Profile, error) {
	body, err := s.rows.SelectSingle(ctx, TableProfiles, gateway.Select("*").Where(gateway.Eq("id", userID)))
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			err = models.NewNotFoundError("Profile", userID)
		}
		return nil, observe(ctx, "ProfileService", "FetchProfile", nil, err)
	}
	profile, err := gateway.DecodeRow[models.Profile](body, "profile")
	if err != nil {
		return nil, observe(ctx, "ProfileService", "FetchProfile", nil, err)
	}
	_ = observe(ctx, "ProfileService", "FetchProfile", map[string]interface{}{"user_id": userID}, nil)
	return &profile, nil
}

// UpdateProfile writes name, username, image URL and interests.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) error {
	if update.Interests == nil {
		update.Interests = []string{}
	}
	err := s.rows.Update(ctx, TableProfiles, update, gateway.Eq("id", userID))
	return observe(ctx, "ProfileService", "UpdateProfile", map[string]interface{}{
		"user_id":   userID,
		"interests": len(update.Interests),
	}, err)
}

// UploadProfileImage stores a JPEG in the profile bucket.
func (s *ProfileService) UploadProfileImage(ctx context.Context, data []byte) (string, error) {
	url, err := s.uploader.UploadJPEG(ctx, blobstore.BucketProfileImages, data)
	return url, observe(ctx, "ProfileService", "UploadProfileImage", nil, err)
}
