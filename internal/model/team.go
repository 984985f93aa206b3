// internal/model/team.go
package model

import "time"

type Team struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type TeamMember struct {
	TeamID    string    `db:"team_id" json:"team_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// User is the application-side view of an identity provider member.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type PromptTemplate struct {
	ID           string    `db:"id" json:"id"`
	TeamID       string    `db:"team_id" json:"team_id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	TemplateText string    `db:"template_text" json:"template_text"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
