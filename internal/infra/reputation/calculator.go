package reputation

import (
	"context"
	"math"
	"time"

	"github.com/originmark/originmarkd/internal/domain"
	"github.com/originmark/originmarkd/internal/usecase"
)

// Score is the reputation breakdown for one signer. Scores are on a
// 0-1000 scale; the overall score is the weighted component sum scaled
// by the age factor.
type Score struct {
	Overall     float64 `json:"overall_score"`
	Trust       float64 `json:"trust_score"`
	Activity    float64 `json:"activity_score"`
	Consistency float64 `json:"consistency_score"`
	AgeFactor   float64 `json:"age_factor"`
	Level       string  `json:"trust_level"`
	Signatures  int     `json:"total_signatures"`
}

const (
	weightActivity    = 0.25
	weightConsistency = 0.20
	weightTrust       = 0.15
	// Community and expert components carry the remaining weight; with
	// no voting system wired they contribute their neutral baselines.
	weightCommunity = 0.20
	weightExpert    = 0.20

	neutralCommunityScore = 100.0
	neutralExpertScore    = 100.0
)

var levels = []struct {
	name      string
	threshold float64
}{
	{"Authority", 950},
	{"Expert", 800},
	{"Trusted", 600},
	{"Reliable", 400},
	{"Basic", 200},
	{"Unverified", 0},
}

// Calculator derives reputation from a signer's signature history.
type Calculator struct {
	Signatures usecase.SignatureStore
	Now        func() time.Time
}

func NewCalculator(signatures usecase.SignatureStore) *Calculator {
	return &Calculator{Signatures: signatures, Now: time.Now}
}

func (c *Calculator) Calculate(ctx context.Context, userID string) (*Score, error) {
	records, err := c.Signatures.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := c.Now().UTC()

	activity := activityScore(records, now)
	consistency := consistencyScore(records)
	trust := trustScore(records)
	age := ageFactor(records, now)

	overall := (activity*weightActivity +
		neutralCommunityScore*weightCommunity +
		neutralExpertScore*weightExpert +
		consistency*weightConsistency +
		trust*weightTrust) * age
	if overall > 1000 {
		overall = 1000
	}

	return &Score{
		Overall:     round1(overall),
		Trust:       round1(trust),
		Activity:    round1(activity),
		Consistency: round1(consistency),
		AgeFactor:   math.Round(age*1000) / 1000,
		Level:       levelFor(overall),
		Signatures:  len(records),
	}, nil
}

func activityScore(records []domain.SignatureRecord, now time.Time) float64 {
	total := len(records)
	if total == 0 {
		return 0
	}
	cutoff := now.AddDate(0, 0, -30)
	recent := 0
	for _, rec := range records {
		if rec.Timestamp.After(cutoff) {
			recent++
		}
	}
	base := math.Min(math.Log10(float64(total)+1)*100, 300)
	multiplier := 1.0 + float64(recent)/float64(total)*0.5
	return math.Min(base*multiplier, 400)
}

func consistencyScore(records []domain.SignatureRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	withAuthor, withModel := 0, 0
	types := map[string]struct{}{}
	for _, rec := range records {
		if rec.Author != "" {
			withAuthor++
		}
		if rec.ModelUsed != "" {
			withModel++
		}
		if rec.ContentType != "" {
			types[rec.ContentType] = struct{}{}
		}
	}
	n := float64(len(records))
	metadata := (float64(withAuthor)/n + float64(withModel)/n) * 100
	typeConsistency := 1.0
	if len(types) > 3 {
		typeConsistency = 0.7
	}
	return math.Min(metadata+typeConsistency*100, 300)
}

func trustScore(records []domain.SignatureRecord) float64 {
	if len(records) == 0 {
		return 100
	}
	// Without a dispute system every recorded signature counts as clean.
	return 200
}

func ageFactor(records []domain.SignatureRecord, now time.Time) float64 {
	if len(records) == 0 {
		return 1.0
	}
	first := records[0].Timestamp
	for _, rec := range records[1:] {
		if rec.Timestamp.Before(first) {
			first = rec.Timestamp
		}
	}
	days := now.Sub(first).Hours() / 24
	return 1.0 + math.Min(days/365, 0.2)
}

func levelFor(overall float64) string {
	for _, level := range levels {
		if overall >= level.threshold {
			return level.name
		}
	}
	return "Unverified"
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
