package domain

// PolicyVerification is the verification outcome handed to the policy
// engine as input.
type PolicyVerification struct {
	SignatureValid bool  `json:"signature_valid"`
	HashMatched    *bool `json:"hash_matched,omitempty"`
	KnownSignature bool  `json:"known_signature"`
}

type PolicyInput struct {
	ContentHash  string             `json:"content_hash"`
	PublicKey    string             `json:"public_key"`
	SignerUserID string             `json:"signer_user_id,omitempty"`
	Verification PolicyVerification `json:"verification"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
