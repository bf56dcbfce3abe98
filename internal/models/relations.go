package models

// StaffPosition assigns a staff member to a position.
type StaffPosition struct {
	Base
	StaffID    int64  `db:"staff_id" json:"staff_id" validate:"required"`
	PositionID int64  `db:"position_id" json:"position_id" validate:"required"`
	DivisionID *int64 `db:"division_id" json:"division_id"`
	LocationID *int64 `db:"location_id" json:"location_id"`
	IsPrimary  bool   `db:"is_primary" json:"is_primary"`
	Period
}

// StaffFunction assigns a function to a staff member with a workload share.
type StaffFunction struct {
	Base
	StaffID           int64 `db:"staff_id" json:"staff_id" validate:"required"`
	FunctionID        int64 `db:"function_id" json:"function_id" validate:"required"`
	CommitmentPercent int   `db:"commitment_percent" json:"commitment_percent" validate:"gte=0,lte=100"`
	IsPrimary         bool  `db:"is_primary" json:"is_primary"`
	Period
}

// StaffLocation records where a staff member works.
type StaffLocation struct {
	Base
	StaffID    int64 `db:"staff_id" json:"staff_id" validate:"required"`
	LocationID int64 `db:"location_id" json:"location_id" validate:"required"`
	IsCurrent  bool  `db:"is_current" json:"is_current"`
	Period
}

// FunctionalAssignment attaches a function to a position.
type FunctionalAssignment struct {
	Base
	PositionID int64 `db:"position_id" json:"position_id" validate:"required"`
	FunctionID int64 `db:"function_id" json:"function_id" validate:"required"`
	Percentage int   `db:"percentage" json:"percentage" validate:"gte=0,lte=100"`
	IsPrimary  bool  `db:"is_primary" json:"is_primary"`
	Period
}

// FunctionalRelation is a staff-to-staff management link.
type FunctionalRelation struct {
	Base
	ManagerID     int64        `db:"manager_id" json:"manager_id" validate:"required"`
	SubordinateID int64        `db:"subordinate_id" json:"subordinate_id" validate:"required"`
	RelationType  RelationType `db:"relation_type" json:"relation_type" validate:"required,oneof=functional administrative project territorial mentoring strategic governance advisory supervisory"`
	Description   *string      `db:"description" json:"description"`
	Period
}

// HierarchyRelation is a superior->subordinate edge of the position graph.
type HierarchyRelation struct {
	Base
	SuperiorPositionID    int64   `db:"superior_position_id" json:"superior_position_id" validate:"required"`
	SubordinatePositionID int64   `db:"subordinate_position_id" json:"subordinate_position_id" validate:"required"`
	Priority              int     `db:"priority" json:"priority" validate:"gte=0"`
	Description           *string `db:"description" json:"description"`
	Period
}

// UnitManagement links a position to the division or section it manages.
type UnitManagement struct {
	Base
	PositionID  int64       `db:"position_id" json:"position_id" validate:"required"`
	ManagedType ManagedType `db:"managed_type" json:"managed_type" validate:"required,oneof=division section"`
	ManagedID   int64       `db:"managed_id" json:"managed_id" validate:"required"`
	Period
}

// PeriodCreate is the optional window part of a relation create payload.
// A missing start date defaults to the request day.
type PeriodCreate struct {
	IsActive  *bool `json:"is_active"`
	StartDate *Date `json:"start_date"`
	EndDate   *Date `json:"end_date"`
}

func (c PeriodCreate) Build(today Date) Period {
	start := today
	if c.StartDate != nil {
		start = *c.StartDate
	}
	return Period{IsActive: boolOr(c.IsActive, true), StartDate: start, EndDate: c.EndDate}
}

type PeriodUpdate struct {
	IsActive  Optional[bool]  `json:"is_active,omitzero"`
	StartDate Optional[Date]  `json:"start_date,omitzero"`
	EndDate   Optional[*Date] `json:"end_date,omitzero"`
}

func (u PeriodUpdate) Apply(p *Period) {
	u.IsActive.ApplyTo(&p.IsActive)
	u.StartDate.ApplyTo(&p.StartDate)
	u.EndDate.ApplyTo(&p.EndDate)
}

type StaffPositionCreate struct {
	StaffID    int64  `json:"staff_id"`
	PositionID int64  `json:"position_id"`
	DivisionID *int64 `json:"division_id"`
	LocationID *int64 `json:"location_id"`
	IsPrimary  bool   `json:"is_primary"`
	PeriodCreate
}

func (c StaffPositionCreate) Build(today Date) *StaffPosition {
	return &StaffPosition{
		StaffID: c.StaffID, PositionID: c.PositionID, DivisionID: c.DivisionID,
		LocationID: c.LocationID, IsPrimary: c.IsPrimary, Period: c.PeriodCreate.Build(today),
	}
}

type StaffPositionUpdate struct {
	PositionID Optional[int64]  `json:"position_id,omitzero"`
	DivisionID Optional[*int64] `json:"division_id,omitzero"`
	LocationID Optional[*int64] `json:"location_id,omitzero"`
	IsPrimary  Optional[bool]   `json:"is_primary,omitzero"`
	PeriodUpdate
}

func (u StaffPositionUpdate) Apply(r *StaffPosition) {
	u.PositionID.ApplyTo(&r.PositionID)
	u.DivisionID.ApplyTo(&r.DivisionID)
	u.LocationID.ApplyTo(&r.LocationID)
	u.IsPrimary.ApplyTo(&r.IsPrimary)
	u.PeriodUpdate.Apply(&r.Period)
}

type StaffFunctionCreate struct {
	StaffID           int64 `json:"staff_id"`
	FunctionID        int64 `json:"function_id"`
	CommitmentPercent *int  `json:"commitment_percent"`
	IsPrimary         bool  `json:"is_primary"`
	PeriodCreate
}

func (c StaffFunctionCreate) Build(today Date) *StaffFunction {
	return &StaffFunction{
		StaffID: c.StaffID, FunctionID: c.FunctionID, CommitmentPercent: intOr(c.CommitmentPercent, 100),
		IsPrimary: c.IsPrimary, Period: c.PeriodCreate.Build(today),
	}
}

type StaffFunctionUpdate struct {
	FunctionID        Optional[int64] `json:"function_id,omitzero"`
	CommitmentPercent Optional[int]   `json:"commitment_percent,omitzero"`
	IsPrimary         Optional[bool]  `json:"is_primary,omitzero"`
	PeriodUpdate
}

func (u StaffFunctionUpdate) Apply(r *StaffFunction) {
	u.FunctionID.ApplyTo(&r.FunctionID)
	u.CommitmentPercent.ApplyTo(&r.CommitmentPercent)
	u.IsPrimary.ApplyTo(&r.IsPrimary)
	u.PeriodUpdate.Apply(&r.Period)
}

type StaffLocationCreate struct {
	StaffID    int64 `json:"staff_id"`
	LocationID int64 `json:"location_id"`
	IsCurrent  bool  `json:"is_current"`
	PeriodCreate
}

func (c StaffLocationCreate) Build(today Date) *StaffLocation {
	return &StaffLocation{
		StaffID: c.StaffID, LocationID: c.LocationID, IsCurrent: c.IsCurrent, Period: c.PeriodCreate.Build(today),
	}
}

type StaffLocationUpdate struct {
	LocationID Optional[int64] `json:"location_id,omitzero"`
	IsCurrent  Optional[bool]  `json:"is_current,omitzero"`
	PeriodUpdate
}

func (u StaffLocationUpdate) Apply(r *StaffLocation) {
	u.LocationID.ApplyTo(&r.LocationID)
	u.IsCurrent.ApplyTo(&r.IsCurrent)
	u.PeriodUpdate.Apply(&r.Period)
}

type FunctionalAssignmentCreate struct {
	PositionID int64 `json:"position_id"`
	FunctionID int64 `json:"function_id"`
	Percentage *int  `json:"percentage"`
	IsPrimary  bool  `json:"is_primary"`
	PeriodCreate
}

func (c FunctionalAssignmentCreate) Build(today Date) *FunctionalAssignment {
	return &FunctionalAssignment{
		PositionID: c.PositionID, FunctionID: c.FunctionID, Percentage: intOr(c.Percentage, 100),
		IsPrimary: c.IsPrimary, Period: c.PeriodCreate.Build(today),
	}
}

type FunctionalAssignmentUpdate struct {
	FunctionID Optional[int64] `json:"function_id,omitzero"`
	Percentage Optional[int]   `json:"percentage,omitzero"`
	IsPrimary  Optional[bool]  `json:"is_primary,omitzero"`
	PeriodUpdate
}

func (u FunctionalAssignmentUpdate) Apply(r *FunctionalAssignment) {
	u.FunctionID.ApplyTo(&r.FunctionID)
	u.Percentage.ApplyTo(&r.Percentage)
	u.IsPrimary.ApplyTo(&r.IsPrimary)
	u.PeriodUpdate.Apply(&r.Period)
}

type FunctionalRelationCreate struct {
	ManagerID     int64        `json:"manager_id"`
	SubordinateID int64        `json:"subordinate_id"`
	RelationType  RelationType `json:"relation_type"`
	Description   *string      `json:"description"`
	PeriodCreate
}

func (c FunctionalRelationCreate) Build(today Date) *FunctionalRelation {
	rt := c.RelationType
	if rt == "" {
		rt = RelationFunctional
	}
	return &FunctionalRelation{
		ManagerID: c.ManagerID, SubordinateID: c.SubordinateID, RelationType: rt,
		Description: c.Description, Period: c.PeriodCreate.Build(today),
	}
}

type FunctionalRelationUpdate struct {
	ManagerID     Optional[int64]        `json:"manager_id,omitzero"`
	SubordinateID Optional[int64]        `json:"subordinate_id,omitzero"`
	RelationType  Optional[RelationType] `json:"relation_type,omitzero"`
	Description   Optional[*string]      `json:"description,omitzero"`
	PeriodUpdate
}

func (u FunctionalRelationUpdate) Apply(r *FunctionalRelation) {
	u.ManagerID.ApplyTo(&r.ManagerID)
	u.SubordinateID.ApplyTo(&r.SubordinateID)
	u.RelationType.ApplyTo(&r.RelationType)
	u.Description.ApplyTo(&r.Description)
	u.PeriodUpdate.Apply(&r.Period)
}

type HierarchyRelationCreate struct {
	SuperiorPositionID    int64   `json:"superior_position_id"`
	SubordinatePositionID int64   `json:"subordinate_position_id"`
	Priority              *int    `json:"priority"`
	Description           *string `json:"description"`
	PeriodCreate
}

func (c HierarchyRelationCreate) Build(today Date) *HierarchyRelation {
	return &HierarchyRelation{
		SuperiorPositionID: c.SuperiorPositionID, SubordinatePositionID: c.SubordinatePositionID,
		Priority: intOr(c.Priority, 1), Description: c.Description, Period: c.PeriodCreate.Build(today),
	}
}

type HierarchyRelationUpdate struct {
	SuperiorPositionID    Optional[int64]   `json:"superior_position_id,omitzero"`
	SubordinatePositionID Optional[int64]   `json:"subordinate_position_id,omitzero"`
	Priority              Optional[int]     `json:"priority,omitzero"`
	Description           Optional[*string] `json:"description,omitzero"`
	PeriodUpdate
}

func (u HierarchyRelationUpdate) Apply(r *HierarchyRelation) {
	u.SuperiorPositionID.ApplyTo(&r.SuperiorPositionID)
	u.SubordinatePositionID.ApplyTo(&r.SubordinatePositionID)
	u.Priority.ApplyTo(&r.Priority)
	u.Description.ApplyTo(&r.Description)
	u.PeriodUpdate.Apply(&r.Period)
}

type UnitManagementCreate struct {
	PositionID  int64       `json:"position_id"`
	ManagedType ManagedType `json:"managed_type"`
	ManagedID   int64       `json:"managed_id"`
	PeriodCreate
}

func (c UnitManagementCreate) Build(today Date) *UnitManagement {
	return &UnitManagement{
		PositionID: c.PositionID, ManagedType: c.ManagedType, ManagedID: c.ManagedID,
		Period: c.PeriodCreate.Build(today),
	}
}

type UnitManagementUpdate struct {
	PositionID  Optional[int64]       `json:"position_id,omitzero"`
	ManagedType Optional[ManagedType] `json:"managed_type,omitzero"`
	ManagedID   Optional[int64]       `json:"managed_id,omitzero"`
	PeriodUpdate
}

func (u UnitManagementUpdate) Apply(r *UnitManagement) {
	u.PositionID.ApplyTo(&r.PositionID)
	u.ManagedType.ApplyTo(&r.ManagedType)
	u.ManagedID.ApplyTo(&r.ManagedID)
	u.PeriodUpdate.Apply(&r.Period)
}
