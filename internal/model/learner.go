package model

import (
	"slices"
	"time"

	"github.com/lib/pq"
)

type Learner struct {
	ID                   string         `db:"id" bson:"_id" json:"id"`
	Name                 string         `db:"name" bson:"name" json:"name"`
	Email                string         `db:"email" bson:"email" json:"email"`
	EnrolledLiveSessions pq.StringArray `db:"enrolled_live_sessions" bson:"enrolledLiveSessions" json:"enrolledLiveSessions"`
	CreatedAt            time.Time      `db:"created_at" bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time      `db:"updated_at" bson:"updatedAt" json:"updatedAt"`
}

func (l *Learner) HasLiveSession(sessionID string) bool {
	return slices.Contains(l.EnrolledLiveSessions, sessionID)
}

type CreateLearnerParams struct {
	ID    string
	Name  string
	Email string
}
