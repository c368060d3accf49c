// Package log defines standard attribute keys for Bayesian tree-ensemble
// operations.
//
// Using these standard keys keeps log output consistent across the library and
// enables structured filtering (e.g. all "ml.operation"="update_posterior"
// records for one model instance). The keys follow a hierarchical naming
// convention ("model.name", "data.samples").

package log

// Model and Operation Context
// These attributes identify the model type, instance, and operation being performed.
const (
	// ModelNameKey identifies the type of model.
	// Examples: "GenModel", "LearnModel", "MetaTreeClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "update_posterior", "merge", "reweight"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "metatree", "leaf", "proposer"
	ComponentKey = "ml.component"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of observations in the batch.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (the model constant K).
	FeaturesKey = "data.features"
)

// Ensemble Context
// These attributes describe the candidate meta-tree ensemble being manipulated.
const (
	// CandidatesKey indicates the number of candidate meta-trees in the ensemble.
	CandidatesKey = "ensemble.candidates"

	// MergedKey indicates how many candidates were removed by structural merging.
	MergedKey = "ensemble.merged"

	// MaxWeightKey records the largest posterior weight in the ensemble after
	// renormalization.
	MaxWeightKey = "ensemble.max_weight"

	// MaxDepthKey records the configured depth budget.
	MaxDepthKey = "ensemble.max_depth"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"
)

// Standard attribute value constants for common operations.
const (
	OperationFit             = "fit"
	OperationPredict         = "predict"
	OperationUpdatePosterior = "update_posterior"
	OperationMerge           = "merge"
	OperationReweight        = "reweight"
	OperationEstimate        = "estimate_params"
)
