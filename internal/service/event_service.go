package service

import (
	"context"

	"mvp/internal/blobstore"
	"mvp/internal/gateway"
	"mvp/internal/models"
)

type EventService struct {
	rows     RowGateway
	uploader ImageUploader
	ids      identity
}

// NewEvent is the input of CreateEvent. Empty optional fields are omitted.
type NewEvent struct {
	ID          string
	CreatorID   string
	Title       string
	Description string
	Location    string
	EventDate   *models.Timestamp
	Price       *float64
	TicketInfo  string
	ImageURL    string
	CreatedAt   *models.Timestamp
}

func NewEventService(rows RowGateway, uploader ImageUploader) *EventService {
	return &EventService{rows: rows, uploader: uploader, ids: defaultIdentity()}
}

// ListEvents returns all events. Callers sort and group them.
func (s *EventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	q := gateway.Select("*").OrderBy("created_at", gateway.Descending)
	rows, err := s.rows.Select(ctx, TableEvents, q)
	if err != nil {
		return nil, observe(ctx, "EventService", "ListEvents", nil, err)
	}
	events, err := gateway.DecodeRows[models.Event](rows, "events")
	if err != nil {
		return nil, observe(ctx, "EventService", "ListEvents", nil, err)
	}
	_ = observe(ctx, "EventService", "ListEvents", map[string]interface{}{"count": len(events)}, nil)
	return events, nil
}

func (s *EventService) CreateEvent(ctx context.Context, in NewEvent) (*models.Event, error) {
	event := models.Event{
		ID:          in.ID,
		CreatorID:   models.StringPtr(in.CreatorID),
		Title:       in.Title,
		Description: models.StringPtr(in.Description),
		Location:    models.StringPtr(in.Location),
		EventDate:   in.EventDate,
		Price:       in.Price,
		TicketInfo:  models.StringPtr(in.TicketInfo),
		EventImage:  models.StringPtr(in.ImageURL),
		CreatedAt:   in.CreatedAt,
	}
	s.ids.fill(&event.ID, &event.CreatedAt)

	rep, err := s.rows.Insert(ctx, TableEvents, event)
	if err != nil {
		return nil, observe(ctx, "EventService", "CreateEvent", nil, err)
	}
	created, err := gateway.DecodeFirst[models.Event](rep, "events")
	if err != nil {
		return nil, observe(ctx, "EventService", "CreateEvent", nil, err)
	}
	_ = observe(ctx, "EventService", "CreateEvent", map[string]interface{}{"event_id": created.ID}, nil)
	return &created, nil
}

// UploadEventImage stores a JPEG in the event bucket.
func (s *EventService) UploadEventImage(ctx context.Context, data []byte) (string, error) {
	url, err := s.uploader.UploadJPEG(ctx, blobstore.BucketEventImages, data)
	return url, observe(ctx, "EventService", "UploadEventImage", nil, err)
}
