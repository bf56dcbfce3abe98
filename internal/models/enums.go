package models

// OrgType is the kind of an Organization.
type OrgType string

const (
	OrgTypeBoard       OrgType = "board"
	OrgTypeHolding     OrgType = "holding"
	OrgTypeLegalEntity OrgType = "legal_entity"
	OrgTypeLocation    OrgType = "location"
)

// PositionAttribute is the rank label of a Position.
type PositionAttribute string

const (
	AttributeBoard       PositionAttribute = "Board"
	AttributeTopMgmt     PositionAttribute = "TopMgmt"
	AttributeDirector    PositionAttribute = "Director"
	AttributeDeptHead    PositionAttribute = "DeptHead"
	AttributeSectionHead PositionAttribute = "SectionHead"
	AttributeSpecialist  PositionAttribute = "Specialist"
)

type ValueFunctionType string

const (
	ValueFunctionStrategic   ValueFunctionType = "strategic"
	ValueFunctionOperational ValueFunctionType = "operational"
	ValueFunctionSupportive  ValueFunctionType = "supportive"
	ValueFunctionInnovative  ValueFunctionType = "innovative"
)

type ValueFunctionStatus string

const (
	StatusNotStarted ValueFunctionStatus = "not_started"
	StatusInProgress ValueFunctionStatus = "in_progress"
	StatusCompleted  ValueFunctionStatus = "completed"
	StatusBlocked    ValueFunctionStatus = "blocked"
	StatusDelayed    ValueFunctionStatus = "delayed"
)

// RelationType classifies a staff-to-staff FunctionalRelation.
type RelationType string

const (
	RelationFunctional     RelationType = "functional"
	RelationAdministrative RelationType = "administrative"
	RelationProject        RelationType = "project"
	RelationTerritorial    RelationType = "territorial"
	RelationMentoring      RelationType = "mentoring"
	RelationStrategic      RelationType = "strategic"
	RelationGovernance     RelationType = "governance"
	RelationAdvisory       RelationType = "advisory"
	RelationSupervisory    RelationType = "supervisory"
)

// ManagedType is the kind of unit a Position manages.
type ManagedType string

const (
	ManagedDivision ManagedType = "division"
	ManagedSection  ManagedType = "section"
)
