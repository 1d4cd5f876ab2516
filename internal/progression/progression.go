// Package progression derives, for one employee, which catalog modules are assigned,
// which are locked, and what changes when a module is completed.
//
// Everything here is a pure function of its inputs. Lock and completion state are
// computed from the employee's completed set on every call; nothing is read from or
// written to the shared Module records.
package progression

import (
	"errors"
	"sort"
	"time"

	"onboarding/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrModuleNotVisible = errors.New("module is not assigned to this job position")
	ErrModuleLocked     = errors.New("module is locked until the previous module is completed")
)

// Progress is the per-employee input of the engine
type Progress struct {
	JobPosition    string
	Completed      map[string]struct{}
	CompletionDate *time.Time
}

// NewProgress builds a Progress, collapsing duplicate ids
func NewProgress(jobPosition string, completed []string, completionDate *time.Time) Progress {
	set := make(map[string]struct{}, len(completed))
	for _, id := range completed {
		set[id] = struct{}{}
	}
	return Progress{JobPosition: jobPosition, Completed: set, CompletionDate: completionDate}
}

// FromEmployee builds a Progress from a stored employee with its completions loaded
func FromEmployee(e *model.Employee) Progress {
	return NewProgress(e.JobPosition, e.CompletedModuleIDs(), e.CompletionDate)
}

func (p Progress) IsCompleted(moduleID string) bool {
	_, ok := p.Completed[moduleID]
	return ok
}

// CompletedIDs returns the completed set in sorted order
func (p Progress) CompletedIDs() []string {
	ids := make([]string, 0, len(p.Completed))
	for id := range p.Completed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p Progress) clone() Progress {
	set := make(map[string]struct{}, len(p.Completed)+1)
	for id := range p.Completed {
		set[id] = struct{}{}
	}
	var date *time.Time
	if p.CompletionDate != nil {
		d := *p.CompletionDate
		date = &d
	}
	return Progress{JobPosition: p.JobPosition, Completed: set, CompletionDate: date}
}

// ModuleView is a catalog module as seen by one employee
type ModuleView struct {
	Module      model.Module
	Position    int // 0-based index in the employee's filtered sequence
	IsLocked    bool
	IsCompleted bool
}

// VisibleModules filters the catalog to the modules assigned to the employee's job
// position, orders them, and derives lock/completion state for each one.
func VisibleModules(p Progress, catalog []model.Module) []ModuleView {
	assigned := make([]model.Module, 0, len(catalog))
	for _, m := range catalog {
		if m.TargetsPosition(p.JobPosition) {
			assigned = append(assigned, m)
		}
	}
	sort.SliceStable(assigned, func(i, j int) bool {
		if assigned[i].Order != assigned[j].Order {
			return assigned[i].Order < assigned[j].Order
		}
		return assigned[i].ID < assigned[j].ID
	})

	views := make([]ModuleView, 0, len(assigned))
	for i, m := range assigned {
		locked := false
		if i > 0 {
			locked = !p.IsCompleted(assigned[i-1].ID)
		}
		views = append(views, ModuleView{
			Module:      m,
			Position:    i,
			IsLocked:    locked,
			IsCompleted: p.IsCompleted(m.ID),
		})
	}
	return views
}

// Find returns the view of moduleID, if it is assigned
func Find(views []ModuleView, moduleID string) (ModuleView, bool) {
	for _, v := range views {
		if v.Module.ID == moduleID {
			return v, true
		}
	}
	return ModuleView{}, false
}

// CanStart reports whether moduleID is visible and unlocked
func CanStart(p Progress, catalog []model.Module, moduleID string) error {
	view, ok := Find(VisibleModules(p, catalog), moduleID)
	if !ok {
		return ErrModuleNotVisible
	}
	if view.IsLocked {
		return ErrModuleLocked
	}
	return nil
}

// Result describes the effects of CompleteModule
type Result struct {
	AlreadyCompleted bool
	// CompletionReached is true only on the call that set the completion date
	CompletionReached bool
	Unlocked          []string
	Modules           []ModuleView
}

// CompleteModule adds moduleID to the completed set. It is idempotent: completing an
// already completed module returns the input unchanged. The completion date is a
// one-way latch set the first time every assigned module is completed.
func CompleteModule(p Progress, moduleID string, catalog []model.Module, now time.Time) (Progress, Result, error) {
	before := VisibleModules(p, catalog)

	if p.IsCompleted(moduleID) {
		return p, Result{AlreadyCompleted: true, Modules: before}, nil
	}

	view, ok := Find(before, moduleID)
	if !ok {
		return p, Result{}, ErrModuleNotVisible
	}
	if view.IsLocked {
		return p, Result{}, ErrModuleLocked
	}

	next := p.clone()
	next.Completed[moduleID] = struct{}{}

	after := VisibleModules(next, catalog)
	res := Result{Modules: after}
	for i, v := range after {
		if !v.IsLocked && before[i].IsLocked {
			res.Unlocked = append(res.Unlocked, v.Module.ID)
		}
	}

	if next.CompletionDate == nil && coversAll(next, after) {
		t := now
		next.CompletionDate = &t
		res.CompletionReached = true
	}

	return next, res, nil
}

func coversAll(p Progress, views []ModuleView) bool {
	for _, v := range views {
		if !p.IsCompleted(v.Module.ID) {
			return false
		}
	}
	return true
}

// Summary aggregates an employee's progress over the assigned modules
type Summary struct {
	Assigned  int             `json:"assigned"`
	Completed int             `json:"completed"`
	Percent   decimal.Decimal `json:"percent"`
}

func Summarize(p Progress, catalog []model.Module) Summary {
	views := VisibleModules(p, catalog)
	s := Summary{Assigned: len(views), Percent: decimal.Zero}
	for _, v := range views {
		if v.IsCompleted {
			s.Completed++
		}
	}
	if s.Assigned > 0 {
		s.Percent = decimal.NewFromInt(int64(s.Completed)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(s.Assigned))).
			Round(1)
	}
	return s
}
