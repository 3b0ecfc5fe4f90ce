package model

import (
	"slices"
	"time"

	"github.com/lib/pq"
)

// LiveSession is a scheduled live class with a capacity-limited roster.
// Time holds the daily window as "HH:MM - HH:MM" on Date.
type LiveSession struct {
	ID               string         `db:"id" bson:"_id" json:"id"`
	Title            string         `db:"title" bson:"title" json:"title"`
	Date             time.Time      `db:"session_date" bson:"date" json:"date"`
	Time             string         `db:"time_range" bson:"time" json:"time"`
	Link             string         `db:"link" bson:"link" json:"link"`
	Price            float64        `db:"price" bson:"price" json:"price"`
	Status           StoredStatus   `db:"status" bson:"status" json:"status"`
	MaxParticipants  int            `db:"max_participants" bson:"maxParticipants" json:"maxParticipants"`
	ImageURL         string         `db:"image_url" bson:"imageUrl" json:"imageUrl"`
	Thumbnail        string         `db:"thumbnail" bson:"thumbnail" json:"thumbnail"`
	Instructor       string         `db:"instructor" bson:"instructor" json:"instructor"`
	Description      string         `db:"description" bson:"description" json:"description"`
	Category         string         `db:"category" bson:"category" json:"category"`
	EnrolledStudents pq.StringArray `db:"enrolled_students" bson:"enrolledStudents" json:"enrolledStudents"`
	CreatedAt        time.Time      `db:"created_at" bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time      `db:"updated_at" bson:"updatedAt" json:"updatedAt"`
}

func (s *LiveSession) EnrolledCount() int {
	return len(s.EnrolledStudents)
}

func (s *LiveSession) IsEnrolled(learnerID string) bool {
	return slices.Contains(s.EnrolledStudents, learnerID)
}

func (s *LiveSession) IsFull() bool {
	return len(s.EnrolledStudents) >= s.MaxParticipants
}

type CreateLiveSessionParams struct {
	ID              string
	Title           string
	Date            time.Time
	Time            string
	Link            string
	Price           float64
	Status          StoredStatus
	MaxParticipants int
	ImageURL        string
	Thumbnail       string
	Instructor      string
	Description     string
	Category        string
}

// UpdateLiveSessionParams carries the editable columns of a live session.
// The roster is never written through this path.
type UpdateLiveSessionParams struct {
	Title           string
	Date            time.Time
	Time            string
	Link            string
	Price           float64
	Status          StoredStatus
	MaxParticipants int
	ImageURL        string
	Thumbnail       string
	Instructor      string
	Description     string
	Category        string
}
