package phe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pku-kitchen/internal/pkg/common"

	"go.uber.org/zap"
)

// SearchPageSize 每頁搜尋筆數固定為 100
const SearchPageSize = 100

// Resolver 分頁搜尋候選食物，直到找到允許的資料來源
type Resolver struct {
	search    SearchService
	pageDelay time.Duration
	wait      func(ctx context.Context, d time.Duration) error
}

// NewResolver 創建搜尋解析器，pageDelay 為換頁之間的等待時間
func NewResolver(search SearchService, pageDelay time.Duration) *Resolver {
	return &Resolver{
		search:    search,
		pageDelay: pageDelay,
		wait:      sleepContext,
	}
}

// Resolve 從第 1 頁開始搜尋，回傳第一個有符合資料來源結果的頁面中的候選。
// 超過 maxPages 仍無結果時回傳空切片；上游錯誤直接回傳，不重試。
func (r *Resolver) Resolve(ctx context.Context, query string, allowed []SourceType, maxPages int) ([]FoodCandidate, error) {
	if len(allowed) == 0 {
		allowed = DefaultSourceTypes
	}

	for page := 1; page <= maxPages; page++ {
		if page > 1 && r.pageDelay > 0 {
			if err := r.wait(ctx, r.pageDelay); err != nil {
				return nil, err
			}
		}

		foods, err := r.search.SearchFoods(ctx, query, page, SearchPageSize)
		if err != nil {
			return nil, common.ErrUpstreamServiceFailure.Wrap(fmt.Errorf("search %q page %d: %w", query, page, err))
		}

		matches := filterBySource(foods, allowed)
		common.LogDebug("USDA search page",
			zap.String("query", query),
			zap.Int("page", page),
			zap.Int("returned", len(foods)),
			zap.Int("matches", len(matches)),
		)
		if len(matches) > 0 {
			return matches, nil
		}
	}

	common.LogInfo("No USDA matches found",
		zap.String("query", query),
		zap.Int("max_pages", maxPages),
	)
	return nil, nil
}

// filterBySource 保留資料來源（不分大小寫）在允許清單中的候選
func filterBySource(foods []FoodCandidate, allowed []SourceType) []FoodCandidate {
	var out []FoodCandidate
	for _, f := range foods {
		st := f.SourceType
		if st == "" || st == SourceOther {
			st = ParseSourceType(f.DataType)
		}
		for _, a := range allowed {
			if strings.EqualFold(string(st), string(a)) {
				f.SourceType = st
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
