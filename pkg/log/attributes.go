// Standard attribute keys for loss computation logs.
//
// Keys follow a hierarchical naming convention ("loss.reduction",
// "data.samples") so records from different components can be filtered the
// same way.

package log

// Component and operation context.
const (
	// ComponentKey identifies which component or package emitted the record.
	// Examples: "losses", "cmd"
	ComponentKey = "ml.component"

	// OperationKey specifies the operation being performed.
	// Standard values: "construct", "compute", "gradient", "breakdown"
	OperationKey = "ml.operation"

	// LossNameKey identifies the loss type.
	// Examples: "RegressionLoss", "ClassificationLoss"
	LossNameKey = "loss.name"
)

// Loss configuration.
const (
	// ReductionKey records the reduction applied across per-target losses.
	ReductionKey = "loss.reduction"

	// BinaryTrickKey records whether the fused one-hot BCE strategy is active.
	BinaryTrickKey = "loss.binary_trick"

	// StrategyKey records the classification strategy name.
	StrategyKey = "loss.strategy"

	// RegressionTargetsKey is the number of regression targets.
	RegressionTargetsKey = "loss.targets.regression"

	// BinaryTargetsKey is the number of binary targets.
	BinaryTargetsKey = "loss.targets.binary"

	// MulticlassTargetsKey is the number of multiclass targets.
	MulticlassTargetsKey = "loss.targets.multiclass"

	// WeightedKey records whether per-target weights are configured.
	WeightedKey = "loss.weighted"

	// PredictionWidthKey is the number of prediction columns the layout expects.
	PredictionWidthKey = "loss.prediction_width"

	// TargetWidthKey is the number of target columns the layout expects.
	TargetWidthKey = "loss.target_width"
)

// Data shape.
const (
	// SamplesKey indicates the number of samples (rows) in the batch.
	SamplesKey = "data.samples"

	// ColumnsKey indicates the number of columns in a matrix.
	ColumnsKey = "data.columns"
)

// Results.
const (
	// LossKey records the loss value.
	LossKey = "metrics.loss"

	// GradNormKey records the Frobenius norm of the loss gradient.
	GradNormKey = "metrics.grad_norm"

	// EpochKey records the training epoch of a fit loop.
	EpochKey = "train.epoch"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Error context.
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorParamKey names the configuration parameter a ConfigurationError refers to.
	ErrorParamKey = "error.param"

	// SuggestionKey provides a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationConstruct = "construct"
	OperationCompute   = "compute"
	OperationGradient  = "gradient"
	OperationBreakdown = "breakdown"
	OperationFit       = "fit"

	ErrorInvalidConfig = "INVALID_CONFIG"
	ErrorShapeMismatch = "SHAPE_MISMATCH"
	ErrorInvalidLabel  = "INVALID_LABEL"
	ErrorNumerical     = "NUMERICAL_INSTABILITY"
)
