package calendar

import "time"

const (
	EventStatusConfirmed = "confirmed"
	EventStatusCancelled = "cancelled"
)

// EventTime carries either a full timestamp or a bare date. A bare date
// marks an all-day event.
type EventTime struct {
	DateTime *time.Time `json:"date_time,omitempty"`
	Date     string     `json:"date,omitempty"`
}

func (t EventTime) AllDay() bool {
	return t.DateTime == nil && t.Date != ""
}

// Resolve returns the concrete instant the entry stands for. Bare dates
// resolve to midnight UTC.
func (t EventTime) Resolve() (time.Time, error) {
	if t.DateTime != nil {
		return *t.DateTime, nil
	}
	return time.Parse("2006-01-02", t.Date)
}

func NewEventTime(ts time.Time, allDay bool) EventTime {
	if allDay {
		return EventTime{Date: ts.UTC().Format("2006-01-02")}
	}
	utc := ts.UTC()
	return EventTime{DateTime: &utc}
}

type Attendee struct {
	Email string `json:"email"`
}

type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Status      string     `json:"status"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	MeetingLink string     `json:"meeting_link,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func (e *Event) Cancelled() bool {
	return e != nil && e.Status == EventStatusCancelled
}

// ListEventsQuery selects either incremental mode (Cursor set, no time
// bounds) or windowed mode (time bounds plus ordering). The two are
// mutually exclusive; the client rejects mixed queries.
type ListEventsQuery struct {
	Cursor  string
	TimeMin *time.Time
	TimeMax *time.Time
	OrderBy string
}

type ListEventsResponse struct {
	Events     []Event `json:"events"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

type CreateEventRequest struct {
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Location           string     `json:"location,omitempty"`
	Start              EventTime  `json:"start"`
	End                EventTime  `json:"end"`
	Attendees          []Attendee `json:"attendees,omitempty"`
	RequestMeetingLink bool       `json:"request_meeting_link,omitempty"`
}
