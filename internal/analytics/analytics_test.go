package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/clippilot-backend/internal/model"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func kpi(name string, v int64, offset time.Duration) model.KPI {
	return model.KPI{MetricName: name, MetricValue: decimal.NewFromInt(v), ScrapedAt: t0.Add(offset)}
}

func post(platform string, kpis ...model.KPI) PostTree {
	return PostTree{Post: model.Post{Platform: platform}, KPIs: kpis}
}

func campaign(id string, posts ...PostTree) CampaignTree {
	return CampaignTree{
		Campaign: model.Campaign{ID: id, Name: "Campaign " + id},
		Versions: []VersionTree{{Posts: posts}},
	}
}

func fixture() []CampaignTree {
	return []CampaignTree{
		campaign("a",
			post("linkedin", kpi("views", 1000, 0), kpi("likes", 50, 0), kpi("shares", 10, 0)),
			post("youtube", kpi("views", 500, time.Hour), kpi("comments", 15, 0), kpi("saves", 99, 0)),
		),
		campaign("b",
			post("linkedin", kpi("views", 300, 2*time.Hour), kpi("likes", 3, 0)),
		),
		campaign("c"),
	}
}

func TestSummarize_Totals(t *testing.T) {
	r := Summarize(fixture())

	assert.True(t, r.Totals.Views.Equal(decimal.NewFromInt(1800)))
	assert.True(t, r.Totals.Likes.Equal(decimal.NewFromInt(53)))
	assert.True(t, r.Totals.Shares.Equal(decimal.NewFromInt(10)))
	assert.True(t, r.Totals.Comments.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, 3, r.PostCount)
	assert.Equal(t, map[string]int{"linkedin": 2, "youtube": 1}, r.PlatformDistribution)
}

func TestSummarize_PerCampaignAdditivity(t *testing.T) {
	trees := fixture()
	r := Summarize(trees)

	var sum Totals
	for _, c := range r.Campaigns {
		sum = sum.Plus(c.Totals)
	}

	var union []model.KPI
	for _, c := range trees {
		union = append(union, c.kpis()...)
	}
	direct := SumKPIs(union)

	assert.True(t, sum.Views.Equal(direct.Views))
	assert.True(t, sum.Likes.Equal(direct.Likes))
	assert.True(t, sum.Shares.Equal(direct.Shares))
	assert.True(t, sum.Comments.Equal(direct.Comments))
	assert.True(t, sum.Views.Equal(r.Totals.Views))
}

func TestSummarize_CampaignDetails(t *testing.T) {
	r := Summarize(fixture())
	require.Len(t, r.Campaigns, 3)

	a := r.Campaigns[0]
	assert.Equal(t, []string{"linkedin", "youtube"}, a.Platforms)
	assert.InDelta(t, 5.0, a.EngagementRate, 1e-9) // (50+10+15)/1500
	assert.InDelta(t, 100.0, a.ShareOfBest, 1e-9)

	b := r.Campaigns[1]
	assert.InDelta(t, 20.0, b.ShareOfBest, 1e-9)

	c := r.Campaigns[2]
	assert.Empty(t, c.Platforms)
	assert.Equal(t, 0.0, c.EngagementRate)
	assert.Equal(t, 0.0, c.ShareOfBest)
}

func TestEngagementRate_ZeroViews(t *testing.T) {
	tot := SumKPIs([]model.KPI{kpi("likes", 10, 0)})
	assert.Equal(t, 0.0, tot.EngagementRate())
}

func TestSummarize_RecentViewsNewestFirstAndBounded(t *testing.T) {
	var posts []PostTree
	for i := 0; i < RecentViewsLimit+5; i++ {
		posts = append(posts, post("tiktok", kpi("views", int64(i), time.Duration(i)*time.Minute)))
	}
	r := Summarize([]CampaignTree{campaign("x", posts...)})

	require.Len(t, r.RecentViews, RecentViewsLimit)
	assert.True(t, r.RecentViews[0].Value.Equal(decimal.NewFromInt(int64(RecentViewsLimit+4))))
	for i := 1; i < len(r.RecentViews); i++ {
		assert.True(t, r.RecentViews[i-1].ScrapedAt.After(r.RecentViews[i].ScrapedAt))
	}
}

func TestSummarize_Empty(t *testing.T) {
	r := Summarize(nil)
	assert.True(t, r.Totals.Views.IsZero())
	assert.Empty(t, r.Campaigns)
	assert.Empty(t, r.PlatformDistribution)
	assert.Equal(t, 0.0, r.EngagementRate)
}
