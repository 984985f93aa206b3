// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
	StatusDraft           CampaignStatus = "draft"
	StatusPendingApproval CampaignStatus = "pending_approval"
	StatusApproved        CampaignStatus = "approved"
	StatusRejected        CampaignStatus = "rejected"
	StatusPublished       CampaignStatus = "published"
)

// Valid reports whether s is one of the known campaign statuses.
func (s CampaignStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected, StatusPublished:
		return true
	}
	return false
}

type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionDeploy  Action = "deploy"
)

// transitions maps each status to the actions allowed from it and the status
// each action leads to. Rejected and published are terminal.
var transitions = map[CampaignStatus]map[Action]CampaignStatus{
	StatusDraft:           {ActionSubmit: StatusPendingApproval},
	StatusPendingApproval: {ActionApprove: StatusApproved, ActionReject: StatusRejected},
	StatusApproved:        {ActionDeploy: StatusPublished},
}

var actionOrder = []Action{ActionSubmit, ActionApprove, ActionReject, ActionDeploy}

// AllowedActions returns the actions available from status, in a stable order.
func AllowedActions(status CampaignStatus) []Action {
	actions := []Action{}
	for _, a := range actionOrder {
		if _, ok := transitions[status][a]; ok {
			actions = append(actions, a)
		}
	}
	return actions
}

// Next returns the status reached by applying action to status.
func Next(status CampaignStatus, action Action) (CampaignStatus, bool) {
	next, ok := transitions[status][action]
	return next, ok
}

type Campaign struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	TeamID      string         `db:"team_id" json:"team_id"`
	CreatedBy   string         `db:"created_by" json:"created_by"`
	Status      CampaignStatus `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

type CampaignVersion struct {
	ID               string    `db:"id" json:"id"`
	CampaignID       string    `db:"campaign_id" json:"campaign_id"`
	VersionNumber    int       `db:"version_number" json:"version_number"`
	Content          *string   `db:"content" json:"content,omitempty"`
	PromptTemplateID *string   `db:"prompt_template_id" json:"prompt_template_id,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
