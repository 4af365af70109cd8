package models

// Event is a row of the events table.
type Event struct {
	ID          string     `json:"id"`
	CreatorID   *string    `json:"creator_id,omitempty"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	EventDate   *Timestamp `json:"event_date,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	TicketInfo  *string    `json:"ticket_info,omitempty"`
	EventImage  *string    `json:"event_image,omitempty"`
	CreatedAt   *Timestamp `json:"created_at,omitempty"`
}
