package model

import (
	"strings"
	"time"
)

// TemporalFeatures are calendar features derived from a post timestamp.
type TemporalFeatures struct {
	DayOfWeek int // 0=Monday .. 6=Sunday
	Hour      int
	IsWeekend bool
	Month     int // 1..12 seasonality bucket
}

// ExtractTemporal derives calendar features from a timestamp. Pure function.
func ExtractTemporal(t time.Time) TemporalFeatures {
	t = t.UTC()
	// time.Weekday counts from Sunday; shift so Monday=0, weekend is 5/6.
	dow := (int(t.Weekday()) + 6) % 7
	return TemporalFeatures{
		DayOfWeek: dow,
		Hour:      t.Hour(),
		IsWeekend: dow >= 5,
		Month:     int(t.Month()),
	}
}

// EngagementScore collapses a post's popularity signals into one scalar.
// Comments weigh double the raw score as the stronger trend signal, and the
// upvote ratio contributes as a quality term. Monotone in every input.
func EngagementScore(score, commentCount int, upvoteRatio float64) float64 {
	return float64(score) + float64(commentCount)*2.0 + upvoteRatio*100.0
}

// Engagement returns the engagement score of a post.
func (p Post) Engagement() float64 {
	return EngagementScore(p.Score, p.CommentCount, p.UpvoteRatio)
}

// NormalizeFoodName lowercases and trims a food name for consistent keys.
func NormalizeFoodName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
