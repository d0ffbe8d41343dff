package policyopa

import (
	"context"
	"testing"

	"github.com/originmark/originmarkd/internal/domain"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngineFromBundlePath(context.Background(), "testdata/bundle", "verify-v1")
	if err != nil {
		t.Fatalf("load bundle: %v", err)
	}
	return engine
}

func boolPtr(v bool) *bool { return &v }

func TestEvaluateAllowsValidVerification(t *testing.T) {
	engine := testEngine(t)
	eval, err := engine.Evaluate(context.Background(), domain.PolicyInput{
		ContentHash: "abc",
		PublicKey:   "cHVi",
		Verification: domain.PolicyVerification{
			SignatureValid: true,
			HashMatched:    boolPtr(true),
		},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !eval.Result.Allow {
		t.Fatalf("expected allow, got %+v", eval.Result)
	}
	if eval.BundleID != "verify-v1" || eval.BundleHash == "" {
		t.Fatalf("bundle identity missing: %+v", eval)
	}
}

func TestEvaluateDeniesInvalidSignature(t *testing.T) {
	engine := testEngine(t)
	eval, err := engine.Evaluate(context.Background(), domain.PolicyInput{
		Verification: domain.PolicyVerification{
			SignatureValid: false,
			HashMatched:    boolPtr(false),
		},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Result.Allow {
		t.Fatal("expected deny")
	}
	if len(eval.Result.Deny) != 2 {
		t.Fatalf("deny reasons = %d, want 2", len(eval.Result.Deny))
	}
	// Sorted by code.
	if eval.Result.Deny[0].Code != "hash_mismatch" || eval.Result.Deny[1].Code != "signature_invalid" {
		t.Fatalf("deny order wrong: %+v", eval.Result.Deny)
	}
}

func TestBundleHashIsStable(t *testing.T) {
	first, err := ComputeBundleHashFromPath("testdata/bundle")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := ComputeBundleHashFromPath("testdata/bundle")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == "" || first != second {
		t.Fatalf("bundle hash unstable: %q vs %q", first, second)
	}
}
