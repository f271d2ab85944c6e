package servicebus

import "sync"

// Parameters is the proxy's read-mostly parameter bag (spec.md §4.6,
// §5 "the parameter bag is read-mostly and guarded by the same
// mutex"). Keys are command-specific; BaseQueryProxy seeds the three
// shared ones every query variant carries.
type Parameters struct {
	mu     sync.Mutex
	values map[string]string
}

// Shared BaseQueryProxy parameter keys (spec.md §4.6 variant 2).
const (
	ParamUniqueAssignmentFlag = "unique_assignment_flag"
	ParamAttentionUpdateFlag  = "attention_update_flag"
	ParamMaxBundleSize        = "max_bundle_size"
)

// PatternMatchingQueryProxy parameter keys (spec.md §4.6 variant 3).
const (
	ParamPositiveImportanceFlag = "positive_importance_flag"
	ParamCountFlag              = "count_flag"
	ParamUniqueValueFlag        = "unique_value_flag"
	ParamMaxAnswers             = "max_answers"
	ParamPopulateMettaMapping   = "populate_metta_mapping"
)

// QueryEvolutionProxy parameter keys (spec.md §4.6 variant 4).
const (
	ParamPopulationRate       = "population_rate"
	ParamElitismRate          = "elitism_rate"
	ParamSelectionRate        = "selection_rate"
	ParamAttentionTokenBudget = "attention_token_budget"
	ParamCorrelationQuery     = "correlation_query"
	ParamFitnessFunction      = "fitness_function"
)

// ContextBrokerProxy parameter keys (spec.md §4.6 variant 5).
const (
	ParamContextQuery      = "context_query"
	ParamDeterminerSchema  = "determiner_schema"
	ParamStimulusSchema    = "stimulus_schema"
	ParamCacheFlag         = "cache_flag"
	ParamAttentionRate     = "attention_rate"
)

// LinkCreationRequestProxy parameter keys (spec.md §4.6 variant 6).
const (
	ParamLinkCreationSchema = "link_creation_schema"
	ParamLinkCreationType   = "link_type"
)

// InferenceProxy parameter keys (spec.md §4.6 variant 6).
const (
	ParamInferenceQuery = "inference_query"
	ParamInferenceDepth = "inference_depth"
)

// AtomDBBrokerProxy parameter keys (spec.md §4.6 variant 6).
const (
	ParamAtomDBOperation = "atomdb_operation"
	ParamAtomDBHandle    = "atomdb_handle"
)

// DefaultMaxBundleSize is the default bundle-flush threshold (spec.md
// §4.6: "flushed when it reaches max_bundle_size (default 1000)").
const DefaultMaxBundleSize = 1000

// NewParameters builds an empty bag seeded with the BaseQueryProxy
// defaults.
func NewParameters() *Parameters {
	return &Parameters{values: map[string]string{
		ParamMaxBundleSize: uint32ToString(DefaultMaxBundleSize),
	}}
}

func (p *Parameters) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

func (p *Parameters) Get(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok
}

func (p *Parameters) GetOr(key, fallback string) string {
	if v, ok := p.Get(key); ok {
		return v
	}
	return fallback
}

func (p *Parameters) MaxBundleSize() int {
	v := p.GetOr(ParamMaxBundleSize, uint32ToString(DefaultMaxBundleSize))
	return int(stringToUint32(v))
}

func (p *Parameters) Flag(key string) bool {
	v, ok := p.Get(key)
	return ok && v == "true"
}
