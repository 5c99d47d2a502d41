package domain

// RiskLevel is the ordinal classification derived from a risk score.
type RiskLevel string

const (
	RiskLevelSafe       RiskLevel = "SAFE"
	RiskLevelSuspicious RiskLevel = "SUSPICIOUS"
	RiskLevelDangerous  RiskLevel = "DANGEROUS"
	RiskLevelScam       RiskLevel = "SCAM"
)

// RiskLevels lists all levels in model class order.
// Position i corresponds to output neuron i of a trained model.
var RiskLevels = []RiskLevel{
	RiskLevelSafe,
	RiskLevelSuspicious,
	RiskLevelDangerous,
	RiskLevelScam,
}

// Valid reports whether l is one of the four known levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLevelSafe, RiskLevelSuspicious, RiskLevelDangerous, RiskLevelScam:
		return true
	}
	return false
}

// Severity tags a risk flag.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities: LOW=1 .. CRITICAL=4, unknown=0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// AtLeastHigh reports whether s is HIGH or CRITICAL.
func (s Severity) AtLeastHigh() bool {
	return s.Rank() >= SeverityHigh.Rank()
}

// FlagType names a risk flag.
type FlagType string

const (
	FlagMintAuthorityActive   FlagType = "MINT_AUTHORITY_ACTIVE"
	FlagFreezeAuthorityActive FlagType = "FREEZE_AUTHORITY_ACTIVE"
	FlagCreatorRugHistory     FlagType = "CREATOR_RUG_HISTORY"
	FlagBundleDetected        FlagType = "BUNDLE_DETECTED"
	FlagWashTrading           FlagType = "WASH_TRADING"
	FlagWhaleDominance        FlagType = "WHALE_DOMINANCE"
	FlagConcentratedHoldings  FlagType = "CONCENTRATED_HOLDINGS"
	FlagLowHolderCount        FlagType = "LOW_HOLDER_COUNT"
	FlagNewToken              FlagType = "NEW_TOKEN"
	FlagLowLiquidity          FlagType = "LOW_LIQUIDITY"
	FlagSuspiciousVolume      FlagType = "SUSPICIOUS_VOLUME"
	FlagHighScamProbability   FlagType = "HIGH_SCAM_PROBABILITY"
)

// RiskFlag is a named, severity-tagged advisory signal.
type RiskFlag struct {
	Type        FlagType `json:"flagType"`
	Probability float64  `json:"probability"` // [0,1]
	Severity    Severity `json:"severity"`
}

// Category is one of the seven semantic feature groups.
type Category string

const (
	CategoryMarket   Category = "market"
	CategoryHolders  Category = "holders"
	CategorySecurity Category = "security"
	CategoryBundle   Category = "bundle"
	CategoryTrading  Category = "trading"
	CategoryTime     Category = "time"
	CategoryCreator  Category = "creator"
)

// Categories lists all categories in feature-vector order.
var Categories = []Category{
	CategoryMarket,
	CategoryHolders,
	CategorySecurity,
	CategoryBundle,
	CategoryTrading,
	CategoryTime,
	CategoryCreator,
}

// ScorerMode identifies which scorer produced an output.
type ScorerMode string

const (
	ScorerNeural    ScorerMode = "neural"
	ScorerRuleBased ScorerMode = "rule-based"
)

// ClassifierOutput is the unified verdict returned by every classification.
// Produced fresh on each call and never mutated afterwards.
type ClassifierOutput struct {
	RiskScore          int                  `json:"riskScore"`  // [0,100]
	RiskLevel          RiskLevel            `json:"riskLevel"`  // SAFE..SCAM
	Confidence         int                  `json:"confidence"` // [0,100]
	FeatureImportance  map[Category]float64 `json:"featureImportance"`
	Flags              []RiskFlag           `json:"flags"`
	Probabilities      []float64            `json:"probabilities,omitempty"` // neural path only
	Mode               ScorerMode           `json:"mode"`
	InferenceLatencyMs float64              `json:"inferenceLatencyMs"`
}

// HasFlag reports whether the output carries a flag of the given type.
func (o *ClassifierOutput) HasFlag(t FlagType) bool {
	for _, f := range o.Flags {
		if f.Type == t {
			return true
		}
	}
	return false
}

// CountSeverity returns the number of flags with exactly severity s.
func (o *ClassifierOutput) CountSeverity(s Severity) int {
	n := 0
	for _, f := range o.Flags {
		if f.Severity == s {
			n++
		}
	}
	return n
}
