// Package feed orders an already fetched list of posts for display.
package feed

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"edusocial/internal/models"
)

type Mode string

const (
	Latest   Mode = "latest"
	Trending Mode = "trending"
)

// Engagement weights.
const (
	likeWeight     = 1.0
	commentWeight  = 1.5
	bookmarkWeight = 2.0
	shareWeight    = 1.2
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Latest:
		return Latest, nil
	case Trending:
		return Trending, nil
	}
	return "", errors.Errorf("unknown feed mode %q", s)
}

// Score is the engagement score of p, decayed by age in days.
// Posts dated in the future count as brand new.
func Score(p models.Post, now time.Time, randomFactor float64) float64 {
	engagement := float64(p.LikesCount)*likeWeight +
		float64(p.CommentsCount)*commentWeight +
		float64(p.BookmarksCount)*bookmarkWeight +
		float64(p.SharesCount)*shareWeight

	ageDays := now.Sub(p.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return engagement * (1 / math.Log(ageDays+2)) * randomFactor
}

// RandomFactor draws uniformly from [0.9, 1.1].
func RandomFactor() float64 {
	return 0.9 + rand.Float64()*0.2
}

// Ranker sorts posts. Zero values fall back to the wall clock, the local
// time zone and RandomFactor.
type Ranker struct {
	Now      func() time.Time
	Rand     func() float64
	Location *time.Location
}

type scored struct {
	post  models.Post
	score float64
	day   time.Time
}

// Rank returns a sorted copy of posts. Each post gets one random factor
// per call.
func (r Ranker) Rank(posts []models.Post, mode Mode) []models.Post {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	factor := r.Rand
	if factor == nil {
		factor = RandomFactor
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}

	items := make([]scored, len(posts))
	for i, p := range posts {
		local := p.CreatedAt.In(loc)
		items[i] = scored{
			post:  p,
			score: Score(p, now, factor()),
			day:   time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if mode == Trending {
			return a.score > b.score
		}
		// Newer days first; within a day, engagement wins.
		if !a.day.Equal(b.day) {
			return a.day.After(b.day)
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.post.CreatedAt.After(b.post.CreatedAt)
	})

	out := make([]models.Post, len(items))
	for i := range items {
		out[i] = items[i].post
	}
	return out
}

// Filter keeps posts whose content, title or author name contains query,
// ignoring case.
func Filter(posts []models.Post, query string) []models.Post {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append([]models.Post(nil), posts...)
	}
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Content), q) ||
			strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.AuthorName), q) {
			out = append(out, p)
		}
	}
	return out
}
