// Package domain defines the core entities, value types, and rule evaluation
// primitives of the meta-analysis dataset model. The structure is a Dataset
// holding an ordered list of Study records; each study maps outcome ID and
// follow-up index to a MetaAnalyticUnit, which in turn owns named treatment
// groups with raw data and pre-seeded effect-size slots. No UI concerns live
// here.
package domain

import (
	"strconv"
	"time"
)

// DataType classifies the raw data an outcome collects.
type DataType string

// Supported outcome data types. The data type governs raw-data arity and the
// effect measures pre-seeded on each analytic unit.
const (
	// Binary outcomes record event count and total per group.
	Binary DataType = "binary"
	// Continuous outcomes record sample size, mean, and standard deviation.
	Continuous DataType = "continuous"
	// Diagnostic outcomes are carried without pre-seeded effect measures.
	Diagnostic DataType = "diagnostic"
	// Other marks outcomes with no structured interpretation.
	Other DataType = "other"
)

// RawDataLength reports the number of raw-data cells a group of this data
// type carries: events/total for binary, size/mean/SD otherwise.
func (t DataType) RawDataLength() int {
	if t == Binary {
		return 2
	}
	return 3
}

// CovariateType distinguishes categorical from numeric study covariates.
type CovariateType string

// Covariate value kinds.
const (
	Factor              CovariateType = "factor"
	ContinuousCovariate CovariateType = "continuous"
)

// EffectMeasure names a comparative statistic computed over treatment groups.
type EffectMeasure string

// Effect measures seeded per outcome data type. Estimation itself is the
// statistics collaborator's job; the model only holds the slots.
const (
	OddsRatio         EffectMeasure = "OR"
	RiskRatio         EffectMeasure = "RR"
	RiskDifference    EffectMeasure = "RD"
	MeanDifference    EffectMeasure = "MD"
	StdMeanDifference EffectMeasure = "SMD"
)

// MeasuresFor returns the effect measures pre-seeded for a data type.
// Diagnostic and other outcomes start with no slots.
func MeasuresFor(t DataType) []EffectMeasure {
	switch t {
	case Binary:
		return []EffectMeasure{OddsRatio, RiskRatio, RiskDifference}
	case Continuous:
		return []EffectMeasure{MeanDifference, StdMeanDifference}
	default:
		return nil
	}
}

// EntityKind identifies the kind of record referenced by changes and errors.
type EntityKind string

// Entity kinds used in Change records, audit entries, and error values.
const (
	KindDataset   EntityKind = "dataset"
	KindStudy     EntityKind = "study"
	KindOutcome   EntityKind = "outcome"
	KindFollowUp  EntityKind = "follow_up"
	KindGroup     EntityKind = "treatment_group"
	KindCovariate EntityKind = "covariate"
	KindEffect    EntityKind = "effect"
)

// Base contains common fields for dataset aggregates managed by a store.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Outcome is a measured endpoint (e.g. mortality). Outcomes are immutable
// once created except for rename; the ID is the stable cross-reference used
// by studies so renames never rewrite unit keys.
type Outcome struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Type  DataType `json:"type"`
	Links []string `json:"links,omitempty"`
}

// Clone returns a deep copy of the outcome.
func (o Outcome) Clone() Outcome {
	cp := o
	cp.Links = append([]string(nil), o.Links...)
	return cp
}

// Covariate describes a study-level attribute usable for subgroup and
// sorting analysis.
type Covariate struct {
	Name string        `json:"name"`
	Type CovariateType `json:"type"`
}

// CovariateValue holds a single study's value for a covariate: factor text,
// a numeric value, or neither (empty).
type CovariateValue struct {
	Factor  *string  `json:"factor,omitempty"`
	Numeric *float64 `json:"numeric,omitempty"`
}

// FactorValue builds a factor-typed covariate value.
func FactorValue(v string) CovariateValue { return CovariateValue{Factor: &v} }

// NumericValue builds a continuous covariate value.
func NumericValue(v float64) CovariateValue { return CovariateValue{Numeric: &v} }

// IsEmpty reports whether the value carries no data. Empty values sort after
// populated ones regardless of sort direction.
func (v CovariateValue) IsEmpty() bool {
	return (v.Factor == nil || *v.Factor == "") && v.Numeric == nil
}

// Compare orders two covariate values: numeric comparison when both carry
// numbers, lexicographic otherwise. Emptiness is the caller's concern.
func (v CovariateValue) Compare(other CovariateValue) int {
	if v.Numeric != nil && other.Numeric != nil {
		switch {
		case *v.Numeric < *other.Numeric:
			return -1
		case *v.Numeric > *other.Numeric:
			return 1
		default:
			return 0
		}
	}
	a, b := v.text(), other.text()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (v CovariateValue) text() string {
	if v.Factor != nil {
		return *v.Factor
	}
	if v.Numeric != nil {
		// Numbers compared as text only when mixed with factor values.
		return formatFloat(*v.Numeric)
	}
	return ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityKind
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions captured for rules and audit.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityKind
	EntityID string
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn allows commit but flags the result.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
