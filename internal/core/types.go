package core

import "metacore/pkg/domain"

type (
	DataType           = domain.DataType
	CovariateType      = domain.CovariateType
	EffectMeasure      = domain.EffectMeasure
	EntityKind         = domain.EntityKind
	Severity           = domain.Severity
	Base               = domain.Base
	Dataset            = domain.Dataset
	Study              = domain.Study
	Outcome            = domain.Outcome
	Covariate          = domain.Covariate
	CovariateValue     = domain.CovariateValue
	MetaAnalyticUnit   = domain.MetaAnalyticUnit
	TreatmentGroup     = domain.TreatmentGroup
	RawData            = domain.RawData
	EffectEstimate     = domain.EffectEstimate
	FollowUpSchedule   = domain.FollowUpSchedule
	FollowUpPoint      = domain.FollowUpPoint
	Network            = domain.Network
	NetworkEdge        = domain.NetworkEdge
	SortKey            = domain.SortKey
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
)

const (
	Binary     = domain.Binary
	Continuous = domain.Continuous
	Diagnostic = domain.Diagnostic
	Other      = domain.Other
)

const (
	OddsRatio         = domain.OddsRatio
	RiskRatio         = domain.RiskRatio
	RiskDifference    = domain.RiskDifference
	MeanDifference    = domain.MeanDifference
	StdMeanDifference = domain.StdMeanDifference
)

const (
	KindDataset   = domain.KindDataset
	KindStudy     = domain.KindStudy
	KindOutcome   = domain.KindOutcome
	KindFollowUp  = domain.KindFollowUp
	KindGroup     = domain.KindGroup
	KindCovariate = domain.KindCovariate
	KindEffect    = domain.KindEffect
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
