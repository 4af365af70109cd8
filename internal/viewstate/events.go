package viewstate

import (
	"context"
	"slices"
	"time"

	"mvp/internal/media"
	"mvp/internal/models"
	"mvp/internal/service"
	"mvp/internal/session"
	"mvp/internal/validation"
)

// EventsState is the event timeline screen state.
type EventsState struct {
	Events   []models.Event
	Loading  bool
	Creating bool
	Error    string
}

// EventInput is the new-event screen input.
type EventInput struct {
	Title       string
	Description string
	Location    string
	Date        *time.Time
	Price       *float64
	TicketInfo  string
	Image       []byte
}

// TimelineEntry is one row of the event timeline.
type TimelineEntry struct {
	Event      models.Event
	MonthKey   string
	ShowHeader bool
}

type EventsController struct {
	observable[EventsState]

	events   EventAPI
	session  *session.Store
	dispatch Dispatcher
	loc      *time.Location
}

func NewEventsController(events EventAPI, sess *session.Store, d Dispatcher) *EventsController {
	return &EventsController{events: events, session: sess, dispatch: d}
}

// SetLocation sets the zone whose calendar months group the timeline. The
// default is time.Local.
func (c *EventsController) SetLocation(loc *time.Location) {
	c.loc = loc
}

func (c *EventsController) Load(ctx context.Context) {
	c.update(func(s *EventsState) {
		s.Loading = true
		s.Error = ""
	})
	c.dispatch.Async(func() {
		events, err := c.events.ListEvents(ctx)
		c.dispatch.Main(func() {
			c.update(func(s *EventsState) {
				s.Loading = false
				if err != nil {
					s.Error = message(err)
					return
				}
				s.Events = events
			})
		})
	})
}

// Create validates the input, uploads the optional image and appends the
// created event.
func (c *EventsController) Create(ctx context.Context, in EventInput) {
	form := validation.EventForm{Title: in.Title, Price: in.Price, Location: in.Location}
	if err := validation.Struct(form); err != nil {
		c.fail(err)
		return
	}
	userID := c.session.State().UserID
	if userID == "" {
		c.fail(ErrNotSignedIn)
		return
	}

	c.update(func(s *EventsState) {
		s.Creating = true
		s.Error = ""
	})
	c.dispatch.Async(func() {
		event, err := c.createEvent(ctx, userID, in)
		c.dispatch.Main(func() {
			c.update(func(s *EventsState) {
				s.Creating = false
				if err != nil {
					s.Error = message(err)
					return
				}
				s.Events = append(slices.Clip(s.Events), *event)
			})
			if err == nil {
				c.session.Dispatch(ctx, session.ShowCreateEvent{Visible: false})
			}
		})
	})
}

func (c *EventsController) createEvent(ctx context.Context, userID string, in EventInput) (*models.Event, error) {
	var imageURL string
	if len(in.Image) > 0 {
		jpeg, err := media.NormalizeJPEG(in.Image)
		if err != nil {
			return nil, err
		}
		if imageURL, err = c.events.UploadEventImage(ctx, jpeg); err != nil {
			return nil, err
		}
	}
	var date *models.Timestamp
	if in.Date != nil {
		date = models.NewTimestamp(*in.Date)
	}
	return c.events.CreateEvent(ctx, service.NewEvent{
		CreatorID:   userID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		EventDate:   date,
		Price:       in.Price,
		TicketInfo:  in.TicketInfo,
		ImageURL:    imageURL,
	})
}

// Timeline returns the events sorted by date with month header markers.
func (c *EventsController) Timeline() []TimelineEntry {
	return timeline(SortEventsByDate(c.Snapshot().Events), c.loc)
}

// Filter returns the timeline of events whose title matches query. Headers
// are computed on the visible items.
func (c *EventsController) Filter(query string) []TimelineEntry {
	return timeline(FilterEvents(SortEventsByDate(c.Snapshot().Events), query), c.loc)
}

// Select picks the event a new post will refer to and opens the post screen.
func (c *EventsController) Select(ctx context.Context, event models.Event) {
	c.session.Dispatch(ctx, session.SelectEvent{Event: &event})
	c.session.Dispatch(ctx, session.ShowCreatePost{Visible: true})
}

func (c *EventsController) fail(err error) {
	c.update(func(s *EventsState) { s.Error = message(err) })
}

func timeline(events []models.Event, loc *time.Location) []TimelineEntry {
	out := make([]TimelineEntry, len(events))
	for i, e := range events {
		out[i] = TimelineEntry{
			Event:      e,
			MonthKey:   MonthKey(e.EventDate, loc),
			ShowHeader: ShowsMonthHeader(events, i, loc),
		}
	}
	return out
}
