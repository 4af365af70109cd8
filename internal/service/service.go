// Package service wraps backend calls for one entity family each: which
// table, which filters, which order.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mvp/internal/gateway"
	"mvp/internal/models"
	"mvp/internal/observability"
)

// Tables and views read by the services.
const (
	TableProfiles     = "profiles"
	TablePosts        = "posts"
	TableEvents       = "events"
	TableComments     = "comments"
	TableLikes        = "likes"
	TableCommentLikes = "comment_likes"
	ViewSocialPosts   = "social_posts"
)

// RowGateway is the row access used by the services. *gateway.Client
// implements it.
type RowGateway interface {
	Select(ctx context.Context, table string, q gateway.Query) (gateway.Rows, error)
	SelectSingle(ctx context.Context, table string, q gateway.Query) ([]byte, error)
	Insert(ctx context.Context, table string, record interface{}) (gateway.Representation, error)
	Update(ctx context.Context, table string, record interface{}, match ...gateway.Filter) error
	Count(ctx context.Context, table string, filters ...gateway.Filter) (int64, error)
}

// AuthGateway is the auth access used by AuthService.
type AuthGateway interface {
	SignIn(ctx context.Context, email, password string) (*gateway.Session, error)
	SignUp(ctx context.Context, email, password, redirectTo string) (gateway.SignUpResult, error)
	SignOut(ctx context.Context) error
}

// ImageUploader stores JPEG bytes and returns their public URL.
type ImageUploader interface {
	UploadJPEG(ctx context.Context, bucket string, data []byte) (string, error)
}

// identity assigns ids and creation times to records created on the client.
type identity struct {
	newID func() string
	now   func() time.Time
}

func defaultIdentity() identity {
	return identity{
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (i identity) fill(id *string, createdAt **models.Timestamp) {
	if *id == "" {
		*id = i.newID()
	}
	if *createdAt == nil {
		*createdAt = models.NewTimestamp(i.now())
	}
}

var serviceLog = observability.NewStructuredLogger()

// observe logs the outcome of a service call and returns err unchanged.
func observe(ctx context.Context, service, method string, fields map[string]interface{}, err error) error {
	if err != nil {
		serviceLog.LogServiceError(ctx, service, method, err)
		return err
	}
	serviceLog.LogServiceCall(ctx, service, method, fields)
	return nil
}
