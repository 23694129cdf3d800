// Package feature turns raw post snapshots into per-food feature vectors:
// windowed aggregation, trend labeling, and fusion with text embeddings.
package feature

import (
	"sort"
	"strings"
	"time"

	"foodtrend/internal/model"
	"foodtrend/internal/util"
)

// GrowthRateCap is the finite stand-in reported when the prior sub-window
// had zero mentions but the recent one did not. The raw ratio would be
// unbounded; 10.0 (a 1000% jump) is already off any observed scale.
const GrowthRateCap = 10.0

// WindowParams describes one aggregation window ending at End.
type WindowParams struct {
	Days int
	End  time.Time
}

// Aggregate groups posts by mentioned food over the trailing window and
// computes one FoodWindowAggregate per food with at least one mention.
// Foods with zero mentions in the window are omitted, not an error. The
// computation is a pure function of the post snapshot: running it twice
// over the same posts and window yields identical values.
func Aggregate(posts []model.Post, p WindowParams) []model.FoodWindowAggregate {
	start := p.End.AddDate(0, 0, -p.Days)
	mid := p.End.Add(-time.Duration(p.Days) * 24 * time.Hour / 2)

	type group struct {
		count, recent, prior int
		weekend              int
		scoreSum, scoreMax   float64
		commentSum           float64
		engagementSum        float64
		upvoteSum            float64
		subreddits           map[string]struct{}
	}
	groups := make(map[string]*group)

	for _, post := range posts {
		if post.CreatedAt.Before(start) || post.CreatedAt.After(p.End) {
			continue
		}
		tf := model.ExtractTemporal(post.CreatedAt)
		eng := post.Engagement()
		for _, raw := range post.FoodMentions {
			food := model.NormalizeFoodName(raw)
			if food == "" {
				continue
			}
			g, ok := groups[food]
			if !ok {
				g = &group{subreddits: make(map[string]struct{})}
				groups[food] = g
			}
			g.count++
			if post.CreatedAt.After(mid) {
				g.recent++
			} else {
				g.prior++
			}
			if tf.IsWeekend {
				g.weekend++
			}
			g.scoreSum += float64(post.Score)
			if float64(post.Score) > g.scoreMax || g.count == 1 {
				g.scoreMax = float64(post.Score)
			}
			g.commentSum += float64(post.CommentCount)
			g.engagementSum += eng
			g.upvoteSum += post.UpvoteRatio
			g.subreddits[post.Subreddit] = struct{}{}
		}
	}

	out := make([]model.FoodWindowAggregate, 0, len(groups))
	for food, g := range groups {
		n := float64(g.count)
		out = append(out, model.FoodWindowAggregate{
			Food:             food,
			WindowDays:       p.Days,
			WindowEnd:        p.End,
			MentionCount:     g.count,
			AvgScore:         g.scoreSum / n,
			MaxScore:         g.scoreMax,
			AvgComments:      g.commentSum / n,
			AvgEngagement:    g.engagementSum / n,
			UniqueSubreddits: len(g.subreddits),
			WeekendRatio:     float64(g.weekend) / n,
			Velocity:         n / float64(p.Days),
			GrowthRate:       growthRate(g.recent, g.prior),
			AvgUpvoteRatio:   g.upvoteSum / n,
			TotalEngagement:  g.engagementSum,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Food < out[j].Food })
	return out
}

// growthRate compares the recent sub-window mention count against the prior
// one: recent/prior - 1, clamped to [0, GrowthRateCap]. Both halves empty
// means no signal, reported as 0; an empty prior half with recent mentions
// reports the cap rather than an infinite ratio.
func growthRate(recent, prior int) float64 {
	if prior == 0 {
		if recent == 0 {
			return 0
		}
		return GrowthRateCap
	}
	r := float64(recent)/float64(prior) - 1
	if r < 0 {
		return 0
	}
	if r > GrowthRateCap {
		return GrowthRateCap
	}
	return r
}

// CollectTexts concatenates title+body of every post mentioning each food
// within the window, in (CreatedAt, ID) order so the result is reproducible,
// head-truncated to maxChars runes per the embedder contract.
func CollectTexts(posts []model.Post, p WindowParams, maxChars int) map[string]string {
	start := p.End.AddDate(0, 0, -p.Days)
	sorted := make([]model.Post, 0, len(posts))
	for _, post := range posts {
		if post.CreatedAt.Before(start) || post.CreatedAt.After(p.End) {
			continue
		}
		sorted = append(sorted, post)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	parts := make(map[string][]string)
	for _, post := range sorted {
		text := util.NormalizeWhitespace(post.Title + " " + post.Body)
		for _, raw := range post.FoodMentions {
			food := model.NormalizeFoodName(raw)
			if food == "" {
				continue
			}
			parts[food] = append(parts[food], text)
		}
	}
	out := make(map[string]string, len(parts))
	for food, ps := range parts {
		out[food] = util.TruncateRunes(strings.Join(ps, " "), maxChars)
	}
	return out
}
