// Package assetlib filters and sorts an in-memory asset listing.
package assetlib

import (
	"sort"
	"strings"

	"github.com/unclebandit/clippilot-backend/internal/model"
)

type SortField string

const (
	SortByName SortField = "name"
	SortByType SortField = "type"
	SortBySize SortField = "size"
	SortByDate SortField = "date"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Query is the listing request. Zero values mean no filter and newest first.
type Query struct {
	Search string
	Type   model.AssetType
	Sort   SortField
	Order  Order
}

// Normalize fills defaults and drops unknown sort values.
func (q Query) Normalize() Query {
	switch q.Sort {
	case SortByName, SortByType, SortBySize, SortByDate:
	default:
		q.Sort = SortByDate
	}
	if q.Order != Asc {
		q.Order = Desc
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

type Result struct {
	Assets    []model.Asset `json:"assets"`
	TotalSize int64         `json:"total_size"`
}

// Filter keeps assets whose filename contains Search (case-insensitive) and
// whose type matches Type. The input slice is not modified.
func Filter(assets []model.Asset, q Query) []model.Asset {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]model.Asset, 0, len(assets))
	for _, a := range assets {
		if q.Type != "" && a.Type != q.Type {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(a.DisplayName()), needle) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Sort orders assets in place. Ties keep their input order.
func Sort(assets []model.Asset, field SortField, order Order) {
	less := func(a, b model.Asset) bool {
		switch field {
		case SortByName:
			return strings.ToLower(a.DisplayName()) < strings.ToLower(b.DisplayName())
		case SortByType:
			return a.Type < b.Type
		case SortBySize:
			return a.Metadata.Size < b.Metadata.Size
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(assets, func(i, j int) bool {
		if order == Asc {
			return less(assets[i], assets[j])
		}
		return less(assets[j], assets[i])
	})
}

func TotalSize(assets []model.Asset) int64 {
	var total int64
	for _, a := range assets {
		total += a.Metadata.Size
	}
	return total
}

// Apply runs Filter then Sort and sums the sizes of what is left.
func Apply(assets []model.Asset, q Query) Result {
	q = q.Normalize()
	filtered := Filter(assets, q)
	Sort(filtered, q.Sort, q.Order)
	return Result{Assets: filtered, TotalSize: TotalSize(filtered)}
}
