// Package analytics folds campaign → version → post → KPI trees into the
// totals shown on the analytics dashboard. Everything here is pure.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/unclebandit/clippilot-backend/internal/model"
)

const (
	MetricViews    = "views"
	MetricLikes    = "likes"
	MetricShares   = "shares"
	MetricComments = "comments"
)

// RecentViewsLimit bounds the view series returned in a Report.
const RecentViewsLimit = 30

type PostTree struct {
	Post model.Post
	KPIs []model.KPI
}

type VersionTree struct {
	Version model.CampaignVersion
	Posts   []PostTree
}

type CampaignTree struct {
	Campaign model.Campaign
	TeamName string
	Versions []VersionTree
}

type Totals struct {
	Views    decimal.Decimal `json:"views"`
	Likes    decimal.Decimal `json:"likes"`
	Shares   decimal.Decimal `json:"shares"`
	Comments decimal.Decimal `json:"comments"`
}

// Add folds one KPI row into t. Unknown metric names are ignored.
func (t *Totals) Add(k model.KPI) {
	switch k.MetricName {
	case MetricViews:
		t.Views = t.Views.Add(k.MetricValue)
	case MetricLikes:
		t.Likes = t.Likes.Add(k.MetricValue)
	case MetricShares:
		t.Shares = t.Shares.Add(k.MetricValue)
	case MetricComments:
		t.Comments = t.Comments.Add(k.MetricValue)
	}
}

func (t Totals) Plus(o Totals) Totals {
	return Totals{
		Views:    t.Views.Add(o.Views),
		Likes:    t.Likes.Add(o.Likes),
		Shares:   t.Shares.Add(o.Shares),
		Comments: t.Comments.Add(o.Comments),
	}
}

// EngagementRate is (likes+shares+comments)/views*100, or 0 without views.
func (t Totals) EngagementRate() float64 {
	if !t.Views.IsPositive() {
		return 0
	}
	engaged := t.Likes.Add(t.Shares).Add(t.Comments)
	return engaged.Div(t.Views).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

func SumKPIs(kpis []model.KPI) Totals {
	var t Totals
	for _, k := range kpis {
		t.Add(k)
	}
	return t
}

type CampaignSummary struct {
	CampaignID     string   `json:"campaign_id"`
	Name           string   `json:"name"`
	TeamName       string   `json:"team_name"`
	Totals         Totals   `json:"totals"`
	Platforms      []string `json:"platforms"`
	EngagementRate float64  `json:"engagement_rate"`
	// ShareOfBest is this campaign's views relative to the best campaign, in percent.
	ShareOfBest float64 `json:"share_of_best"`
}

type SeriesPoint struct {
	ScrapedAt time.Time       `json:"scraped_at"`
	Value     decimal.Decimal `json:"value"`
}

type Report struct {
	Totals               Totals            `json:"totals"`
	EngagementRate       float64           `json:"engagement_rate"`
	PostCount            int               `json:"post_count"`
	PlatformDistribution map[string]int    `json:"platform_distribution"`
	Campaigns            []CampaignSummary `json:"campaigns"`
	RecentViews          []SeriesPoint     `json:"recent_views"`
}

func (c CampaignTree) kpis() []model.KPI {
	var out []model.KPI
	for _, v := range c.Versions {
		for _, p := range v.Posts {
			out = append(out, p.KPIs...)
		}
	}
	return out
}

// SummarizeCampaign computes a campaign's totals and platforms. ShareOfBest
// is left zero; Summarize fills it in.
func SummarizeCampaign(c CampaignTree) CampaignSummary {
	platforms := map[string]bool{}
	for _, v := range c.Versions {
		for _, p := range v.Posts {
			platforms[p.Post.Platform] = true
		}
	}
	names := make([]string, 0, len(platforms))
	for p := range platforms {
		names = append(names, p)
	}
	sort.Strings(names)

	totals := SumKPIs(c.kpis())
	return CampaignSummary{
		CampaignID:     c.Campaign.ID,
		Name:           c.Campaign.Name,
		TeamName:       c.TeamName,
		Totals:         totals,
		Platforms:      names,
		EngagementRate: totals.EngagementRate(),
	}
}

// Summarize builds the full dashboard report. Campaign order is preserved.
func Summarize(campaigns []CampaignTree) Report {
	report := Report{
		PlatformDistribution: map[string]int{},
		Campaigns:            make([]CampaignSummary, 0, len(campaigns)),
		RecentViews:          []SeriesPoint{},
	}

	var views []model.KPI
	maxViews := decimal.NewFromInt(1)
	for _, c := range campaigns {
		for _, v := range c.Versions {
			for _, p := range v.Posts {
				report.PostCount++
				report.PlatformDistribution[p.Post.Platform]++
				for _, k := range p.KPIs {
					report.Totals.Add(k)
					if k.MetricName == MetricViews {
						views = append(views, k)
					}
				}
			}
		}

		s := SummarizeCampaign(c)
		if s.Totals.Views.GreaterThan(maxViews) {
			maxViews = s.Totals.Views
		}
		report.Campaigns = append(report.Campaigns, s)
	}

	hundred := decimal.NewFromInt(100)
	for i := range report.Campaigns {
		report.Campaigns[i].ShareOfBest = report.Campaigns[i].Totals.Views.Div(maxViews).Mul(hundred).InexactFloat64()
	}
	report.EngagementRate = report.Totals.EngagementRate()

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].ScrapedAt.After(views[j].ScrapedAt)
	})
	if len(views) > RecentViewsLimit {
		views = views[:RecentViewsLimit]
	}
	for _, k := range views {
		report.RecentViews = append(report.RecentViews, SeriesPoint{ScrapedAt: k.ScrapedAt, Value: k.MetricValue})
	}
	return report
}
