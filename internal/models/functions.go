package models

// Function is a capability that positions and staff are assigned to.
type Function struct {
	Base
	Name        string  `db:"name" json:"name" validate:"required,max=255"`
	Code        string  `db:"code" json:"code" validate:"required,max=64"`
	Description *string `db:"description" json:"description"`
	SectionID   *int64  `db:"section_id" json:"section_id"`
	IsActive    bool    `db:"is_active" json:"is_active"`
}

type FunctionCreate struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description *string `json:"description"`
	SectionID   *int64  `json:"section_id"`
	IsActive    *bool   `json:"is_active"`
}

func (c FunctionCreate) Build() *Function {
	return &Function{
		Name:        c.Name,
		Code:        c.Code,
		Description: c.Description,
		SectionID:   c.SectionID,
		IsActive:    boolOr(c.IsActive, true),
	}
}

type FunctionUpdate struct {
	Name        Optional[string]  `json:"name,omitzero"`
	Code        Optional[string]  `json:"code,omitzero"`
	Description Optional[*string] `json:"description,omitzero"`
	SectionID   Optional[*int64]  `json:"section_id,omitzero"`
	IsActive    Optional[bool]    `json:"is_active,omitzero"`
}

func (u FunctionUpdate) Apply(f *Function) {
	u.Name.ApplyTo(&f.Name)
	u.Code.ApplyTo(&f.Code)
	u.Description.ApplyTo(&f.Description)
	u.SectionID.ApplyTo(&f.SectionID)
	u.IsActive.ApplyTo(&f.IsActive)
}

// ValueFunction is a tracked instance of a Function.
//
// Invariants:
//   - (Name, FunctionID) is unique
//   - TargetDate, when both are set, is not before StartDate
type ValueFunction struct {
	Base
	FunctionID   int64               `db:"function_id" json:"function_id" validate:"required"`
	Name         string              `db:"name" json:"name" validate:"required,max=255"`
	Description  *string             `db:"description" json:"description"`
	FunctionType ValueFunctionType   `db:"function_type" json:"function_type" validate:"required,oneof=strategic operational supportive innovative"`
	Status       ValueFunctionStatus `db:"status" json:"status" validate:"required,oneof=not_started in_progress completed blocked delayed"`
	Progress     int                 `db:"progress" json:"progress" validate:"gte=0,lte=100"`
	StartDate    *Date               `db:"start_date" json:"start_date"`
	TargetDate   *Date               `db:"target_date" json:"target_date"`
	Metrics      JSONMap             `db:"metrics" json:"metrics"`
	Priority     int                 `db:"priority" json:"priority" validate:"gte=0"`
	IsActive     bool                `db:"is_active" json:"is_active"`
}

type ValueFunctionCreate struct {
	FunctionID   int64               `json:"function_id"`
	Name         string              `json:"name"`
	Description  *string             `json:"description"`
	FunctionType ValueFunctionType   `json:"function_type"`
	Status       ValueFunctionStatus `json:"status"`
	Progress     *int                `json:"progress"`
	StartDate    *Date               `json:"start_date"`
	TargetDate   *Date               `json:"target_date"`
	Metrics      JSONMap             `json:"metrics"`
	Priority     *int                `json:"priority"`
	IsActive     *bool               `json:"is_active"`
}

func (c ValueFunctionCreate) Build() *ValueFunction {
	status := c.Status
	if status == "" {
		status = StatusNotStarted
	}
	fnType := c.FunctionType
	if fnType == "" {
		fnType = ValueFunctionOperational
	}
	return &ValueFunction{
		FunctionID:   c.FunctionID,
		Name:         c.Name,
		Description:  c.Description,
		FunctionType: fnType,
		Status:       status,
		Progress:     intOr(c.Progress, 0),
		StartDate:    c.StartDate,
		TargetDate:   c.TargetDate,
		Metrics:      c.Metrics,
		Priority:     intOr(c.Priority, 1),
		IsActive:     boolOr(c.IsActive, true),
	}
}

type ValueFunctionUpdate struct {
	FunctionID   Optional[int64]               `json:"function_id,omitzero"`
	Name         Optional[string]              `json:"name,omitzero"`
	Description  Optional[*string]             `json:"description,omitzero"`
	FunctionType Optional[ValueFunctionType]   `json:"function_type,omitzero"`
	Status       Optional[ValueFunctionStatus] `json:"status,omitzero"`
	Progress     Optional[int]                 `json:"progress,omitzero"`
	StartDate    Optional[*Date]               `json:"start_date,omitzero"`
	TargetDate   Optional[*Date]               `json:"target_date,omitzero"`
	Metrics      Optional[JSONMap]             `json:"metrics,omitzero"`
	Priority     Optional[int]                 `json:"priority,omitzero"`
	IsActive     Optional[bool]                `json:"is_active,omitzero"`
}

func (u ValueFunctionUpdate) Apply(v *ValueFunction) {
	u.FunctionID.ApplyTo(&v.FunctionID)
	u.Name.ApplyTo(&v.Name)
	u.Description.ApplyTo(&v.Description)
	u.FunctionType.ApplyTo(&v.FunctionType)
	u.Status.ApplyTo(&v.Status)
	u.Progress.ApplyTo(&v.Progress)
	u.StartDate.ApplyTo(&v.StartDate)
	u.TargetDate.ApplyTo(&v.TargetDate)
	u.Metrics.ApplyTo(&v.Metrics)
	u.Priority.ApplyTo(&v.Priority)
	u.IsActive.ApplyTo(&v.IsActive)
}
