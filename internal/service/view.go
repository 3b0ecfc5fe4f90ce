package service

import (
	"time"

	"github.com/eduinstitute/liveclass-server/internal/config"
	"github.com/eduinstitute/liveclass-server/internal/model"
	"github.com/eduinstitute/liveclass-server/internal/schedule"
	"github.com/eduinstitute/liveclass-server/internal/validate"
)

// LiveSessionView is a live session as clients see it: the stored record
// plus values derived at read time.
type LiveSessionView struct {
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	Date             string              `json:"date"`
	Time             string              `json:"time"`
	Link             string              `json:"link"`
	Price            float64             `json:"price"`
	Status           model.DisplayStatus `json:"status"`
	StoredStatus     model.StoredStatus  `json:"storedStatus"`
	MaxParticipants  int                 `json:"maxParticipants"`
	ImageURL         string              `json:"imageUrl"`
	Thumbnail        string              `json:"thumbnail,omitempty"`
	Instructor       string              `json:"instructor,omitempty"`
	Description      string              `json:"description,omitempty"`
	Category         string              `json:"category,omitempty"`
	EnrolledStudents []string            `json:"enrolledStudents"`
	EnrolledCount    int                 `json:"enrolledCount"`
	Duration         int                 `json:"duration"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// SessionSummary is the minimal session shape returned by enrollment calls.
type SessionSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	EnrolledCount   int    `json:"enrolledCount"`
	MaxParticipants int    `json:"maxParticipants"`
}

func summarize(s *model.LiveSession) SessionSummary {
	return SessionSummary{
		ID:              s.ID,
		Title:           s.Title,
		EnrolledCount:   s.EnrolledCount(),
		MaxParticipants: s.MaxParticipants,
	}
}

// ResolveImageURL picks imageUrl, then thumbnail, then the default image.
func ResolveImageURL(s *model.LiveSession) string {
	switch {
	case s.ImageURL != "":
		return s.ImageURL
	case s.Thumbnail != "":
		return s.Thumbnail
	default:
		return config.DefaultSessionImage
	}
}

// viewBuilder is shared by every read path so list and get always agree.
type viewBuilder struct {
	now func() time.Time
	loc *time.Location
}

func newViewBuilder(loc *time.Location) viewBuilder {
	if loc == nil {
		loc = time.UTC
	}
	return viewBuilder{now: time.Now, loc: loc}
}

func (b viewBuilder) build(s *model.LiveSession) LiveSessionView {
	return b.buildAt(s, b.now())
}

func (b viewBuilder) buildAt(s *model.LiveSession, now time.Time) LiveSessionView {
	derived := schedule.Derive(s.Status, s.Date, s.Time, now, b.loc)

	students := make([]string, len(s.EnrolledStudents))
	copy(students, s.EnrolledStudents)

	return LiveSessionView{
		ID:               s.ID,
		Title:            s.Title,
		Date:             s.Date.Format(validate.DateLayout),
		Time:             s.Time,
		Link:             s.Link,
		Price:            s.Price,
		Status:           derived.Status,
		StoredStatus:     s.Status,
		MaxParticipants:  s.MaxParticipants,
		ImageURL:         ResolveImageURL(s),
		Thumbnail:        s.Thumbnail,
		Instructor:       s.Instructor,
		Description:      s.Description,
		Category:         s.Category,
		EnrolledStudents: students,
		EnrolledCount:    s.EnrolledCount(),
		Duration:         derived.Duration,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// buildAll evaluates every session against one instant.
func (b viewBuilder) buildAll(sessions []model.LiveSession) []LiveSessionView {
	now := b.now()
	views := make([]LiveSessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, b.buildAt(&sessions[i], now))
	}
	return views
}
