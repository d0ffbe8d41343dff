package c2pa

import (
	"time"

	"github.com/originmark/originmarkd/internal/domain"
)

const (
	contextURL     = "https://c2pa.org/specifications/1.4/context.json"
	specVersion    = "1.4"
	claimGenerator = "OriginMark/2.0.0"
	exportVersion  = "1.0"
)

// Assertion is one labeled C2PA assertion.
type Assertion struct {
	Label string         `json:"label"`
	Data  map[string]any `json:"data"`
}

// Claim carries the assertions under one claim generator.
type Claim struct {
	ClaimGenerator string      `json:"claim_generator"`
	Title          string      `json:"title"`
	Assertions     []Assertion `json:"assertions"`
	Alg            string      `json:"alg"`
}

// Manifest is a C2PA v1.4 manifest derived from a signature record.
type Manifest struct {
	Context            string           `json:"@context"`
	Format             string           `json:"format"`
	Version            string           `json:"version"`
	ClaimGenerator     string           `json:"claim_generator"`
	ClaimGeneratorInfo []map[string]any `json:"claim_generator_info"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Claim              Claim            `json:"claim"`
	ValidationStatus   []map[string]any `json:"validation_status"`
	SignatureInfo      map[string]any   `json:"signature_info"`
	Metadata           map[string]any   `json:"originmark_metadata"`
}

// Exporter converts signature records into C2PA manifests.
type Exporter struct {
	verifyBaseURL string
	now           func() time.Time
}

func NewExporter(verifyBaseURL string) *Exporter {
	if verifyBaseURL == "" {
		verifyBaseURL = "https://originmark.dev/verify"
	}
	return &Exporter{verifyBaseURL: verifyBaseURL, now: time.Now}
}

func (e *Exporter) Export(rec domain.SignatureRecord) Manifest {
	assertions := []Assertion{
		e.actionsAssertion(rec),
		hashAssertion(rec),
		signatureAssertion(rec),
	}

	shortID := rec.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	verifyURL := e.verifyBaseURL + "/" + rec.ID

	return Manifest{
		Context:        contextURL,
		Format:         "application/c2pa",
		Version:        specVersion,
		ClaimGenerator: claimGenerator,
		ClaimGeneratorInfo: []map[string]any{{
			"name":        "OriginMark",
			"version":     "2.0.0",
			"description": "Digital provenance and authenticity verification",
		}},
		Title:       "OriginMark Signature " + shortID,
		Description: "Content verified with OriginMark digital signatures for AI content authenticity",
		Claim: Claim{
			ClaimGenerator: "OriginMark/2.0",
			Title:          "OriginMark Signature " + rec.ID,
			Assertions:     assertions,
			Alg:            "es256",
		},
		ValidationStatus: []map[string]any{{
			"code":        "claimSignature.verified",
			"url":         verifyURL,
			"explanation": "OriginMark cryptographic signature verified",
		}},
		SignatureInfo: map[string]any{
			"algorithm": "Ed25519",
			"issuer":    "OriginMark Certificate Authority",
		},
		Metadata: map[string]any{
			"signature_id":           rec.ID,
			"export_version":         exportVersion,
			"export_timestamp":       e.now().UTC().Format(time.RFC3339),
			"verification_url":       verifyURL,
			"standard_compatibility": []string{"C2PA v1.4", "Adobe CAI"},
		},
	}
}

func (e *Exporter) actionsAssertion(rec domain.SignatureRecord) Assertion {
	when := rec.Timestamp.UTC().Format(time.RFC3339)
	sourceType := "other"
	if rec.ModelUsed != "" {
		sourceType = "algorithmicMedia"
	}
	actions := []map[string]any{{
		"action": "c2pa.created",
		"when":   when,
		"softwareAgent": map[string]any{
			"name":        "OriginMark",
			"version":     "2.0.0",
			"description": "Digital provenance and authenticity verification platform",
		},
		"digitalSourceType": sourceType,
	}}
	if rec.ModelUsed != "" {
		actions = append(actions, map[string]any{
			"action":            "c2pa.ai.generative",
			"when":              when,
			"digitalSourceType": "trainedAlgorithmicMedia",
			"softwareAgent": map[string]any{
				"name":        rec.ModelUsed,
				"version":     "unknown",
				"description": "AI model used for content generation",
			},
		})
	}
	return Assertion{Label: "c2pa.actions", Data: map[string]any{"actions": actions}}
}

func hashAssertion(rec domain.SignatureRecord) Assertion {
	return Assertion{
		Label: "c2pa.hash.data",
		Data: map[string]any{
			"exclusions": []any{},
			"alg":        "sha256",
			"hash":       rec.ContentHash,
			"name":       "jumbf manifest",
		},
	}
}

func signatureAssertion(rec domain.SignatureRecord) Assertion {
	return Assertion{
		Label: "org.originmark.signature",
		Data: map[string]any{
			"signature_id": rec.ID,
			"signature":    rec.Signature,
			"public_key":   rec.PublicKey,
			"author":       rec.Author,
			"model_used":   rec.ModelUsed,
			"content_type": rec.ContentType,
			"timestamp":    rec.Timestamp.UTC().Format(time.RFC3339),
		},
	}
}
