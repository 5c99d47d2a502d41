package domain

// Verdict is a persisted classification.
// Corresponds to risk_verdicts table in PostgreSQL.
type Verdict struct {
	VerdictID        string     // deterministic hash, see idhash.ComputeVerdictID
	Mint             string     // token mint address (may be empty for raw-vector requests)
	VectorHash       string     // SHA256 of the feature vector
	ModelFingerprint *string    // artifact fingerprint, NULL in rule-based mode
	Mode             ScorerMode // neural | rule-based
	RiskScore        int
	RiskLevel        RiskLevel
	Confidence       int
	Flags            []RiskFlag
	ClassifiedAt     int64 // Unix ms
}

// FeatureSnapshot is the feature vector behind a verdict.
// Corresponds to feature_snapshots table in ClickHouse.
type FeatureSnapshot struct {
	VerdictID    string
	Mint         string
	Features     []float32 // 29 values
	RiskScore    int
	Mode         ScorerMode
	ClassifiedAt int64 // Unix ms
}
