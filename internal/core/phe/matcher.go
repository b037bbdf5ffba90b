package phe

import (
	"sort"
	"strings"
)

// 計分關鍵字
var (
	basicFormWords     = []string{"raw", "fresh", "plain"}
	processedFormWords = []string{"fried", "cooked", "prepared", "seasoned", "salted"}
)

// 計分權重
const (
	scoreQueryMatch  = 10
	scoreBasicForm   = 5
	scoreSRLegacy    = 3
	penaltyProcessed = 2
)

// ScoredCandidate 附帶分數與原始排序的候選
type ScoredCandidate struct {
	Candidate FoodCandidate `json:"candidate"`
	Score     int           `json:"score"`
	Rank      int           `json:"rank"`
}

// Score 計算候選食物與查詢字串的相符分數
func Score(candidate FoodCandidate, query string) int {
	desc := strings.ToLower(candidate.Description)
	q := strings.ToLower(strings.TrimSpace(query))

	score := 0
	if q != "" && strings.Contains(desc, q) {
		score += scoreQueryMatch
	}
	if containsAny(desc, basicFormWords) {
		score += scoreBasicForm
	}
	if candidate.SourceType == SourceSRLegacy {
		score += scoreSRLegacy
	}
	if containsAny(desc, processedFormWords) {
		score -= penaltyProcessed
	}
	return score
}

// RankCandidates 依分數由高到低排序，同分時保留原始搜尋順序
func RankCandidates(candidates []FoodCandidate, query string) []ScoredCandidate {
	ranked := make([]ScoredCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = ScoredCandidate{Candidate: c, Score: Score(c, query), Rank: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Rank < ranked[j].Rank
	})
	return ranked
}

// SelectBest 選出最佳候選；沒有候選時第二個回傳值為 false
func SelectBest(candidates []FoodCandidate, query string) (FoodCandidate, bool) {
	if len(candidates) == 0 {
		return FoodCandidate{}, false
	}
	return RankCandidates(candidates, query)[0].Candidate, true
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
