package reputation

import (
	"context"
	"testing"
	"time"

	"github.com/originmark/originmarkd/internal/domain"
)

type staticSignatureStore struct {
	records []domain.SignatureRecord
}

func (s *staticSignatureStore) Create(context.Context, domain.SignatureRecord) error {
	return nil
}

func (s *staticSignatureStore) Get(context.Context, string) (*domain.SignatureRecord, error) {
	return nil, domain.ErrNotFound
}

func (s *staticSignatureStore) ListByUser(context.Context, string) ([]domain.SignatureRecord, error) {
	return s.records, nil
}

func TestCalculateNewSigner(t *testing.T) {
	calc := NewCalculator(&staticSignatureStore{})
	score, err := calc.Calculate(context.Background(), "newbie")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if score.Signatures != 0 {
		t.Fatalf("signatures = %d", score.Signatures)
	}
	if score.Activity != 0 {
		t.Fatalf("activity for empty history = %v", score.Activity)
	}
	if score.Level != "Unverified" {
		t.Fatalf("level = %s", score.Level)
	}
	if score.AgeFactor != 1.0 {
		t.Fatalf("age factor = %v", score.AgeFactor)
	}
}

func TestCalculateActiveSigner(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var records []domain.SignatureRecord
	for i := 0; i < 50; i++ {
		records = append(records, domain.SignatureRecord{
			Author:      "alice",
			ModelUsed:   "gpt-4",
			ContentType: "text",
			Timestamp:   now.AddDate(0, 0, -i*7),
		})
	}
	calc := NewCalculator(&staticSignatureStore{records: records})
	calc.Now = func() time.Time { return now }

	score, err := calc.Calculate(context.Background(), "alice")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if score.Signatures != 50 {
		t.Fatalf("signatures = %d", score.Signatures)
	}
	if score.Activity <= 0 || score.Activity > 400 {
		t.Fatalf("activity out of range: %v", score.Activity)
	}
	if score.Consistency != 300 {
		t.Fatalf("full metadata should max consistency, got %v", score.Consistency)
	}
	if score.AgeFactor <= 1.0 || score.AgeFactor > 1.2 {
		t.Fatalf("age factor out of range: %v", score.AgeFactor)
	}
	if score.Overall <= 0 || score.Overall > 1000 {
		t.Fatalf("overall out of range: %v", score.Overall)
	}
	if score.Level == "Unverified" {
		t.Fatal("active signer should rank above Unverified")
	}
}

func TestLevelThresholds(t *testing.T) {
	cases := map[float64]string{
		0:    "Unverified",
		199:  "Unverified",
		200:  "Basic",
		450:  "Reliable",
		700:  "Trusted",
		810:  "Expert",
		1000: "Authority",
	}
	for score, want := range cases {
		if got := levelFor(score); got != want {
			t.Errorf("levelFor(%v) = %s, want %s", score, got, want)
		}
	}
}
