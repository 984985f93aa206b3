// internal/model/approval.go
package model

import "time"

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Approval is an append-only audit record of a reviewer decision.
type Approval struct {
	ID                string    `db:"id" json:"id"`
	CampaignVersionID string    `db:"campaign_version_id" json:"campaign_version_id"`
	ReviewerID        string    `db:"reviewer_id" json:"reviewer_id"`
	Status            Decision  `db:"status" json:"status"`
	Comments          *string   `db:"comments" json:"comments,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
