package model

import (
	"fmt"
	"strings"
)

// KeySep separates the components of variable and constraint keys, e.g.
// "N01|lithium|t2". Strategies rely on it for keyed deactivation.
const KeySep = "|"

// Key joins key components with KeySep.
func Key(parts ...string) string {
	return strings.Join(parts, KeySep)
}

// Sense is an objective direction.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

func (s Sense) String() string {
	if s == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Var is a decision variable with bounds, a current value and a fixed flag.
// The current value doubles as the warm-start point between staged solves:
// engines read it as the initial iterate and write the solution back.
type Var struct {
	name   string
	key    string
	lower  float64
	upper  float64
	value  float64
	fixedF bool
}

// Name returns the diagnostic name, "<set>[<key>]".
func (v *Var) Name() string { return v.name }

// Key returns the key the variable was added under.
func (v *Var) Key() string { return v.key }

// Value returns the current value.
func (v *Var) Value() float64 { return v.value }

// SetValue sets the current value.
func (v *Var) SetValue(x float64) { v.value = x }

// Bounds returns the lower and upper bound. Unbounded sides are +-Inf.
func (v *Var) Bounds() (lower, upper float64) { return v.lower, v.upper }

// Fix pins the variable at its current value. Fixed variables are excluded
// from the optimization and contribute their value as a constant.
func (v *Var) Fix() { v.fixedF = true }

// FixAt sets the value and pins the variable there.
func (v *Var) FixAt(x float64) {
	v.value = x
	v.fixedF = true
}

// Free makes the variable optimizable again, keeping its current value.
func (v *Var) Free() { v.fixedF = false }

// Fixed reports whether the variable is pinned.
func (v *Var) Fixed() bool { return v.fixedF }

// VarSet is a named family of variables addressed by key.
type VarSet struct {
	name  string
	vars  []*Var
	byKey map[string]*Var
}

// Name returns the set name.
func (s *VarSet) Name() string { return s.name }

// Add creates a variable with the given key, bounds and initial value.
func (s *VarSet) Add(key string, lower, upper, initial float64) (*Var, error) {
	if _, dup := s.byKey[key]; dup {
		return nil, fmt.Errorf("variable set %q: duplicate key %q", s.name, key)
	}
	if lower > upper {
		return nil, fmt.Errorf("variable %s[%s]: lower bound %v above upper %v", s.name, key, lower, upper)
	}
	v := &Var{
		name:  fmt.Sprintf("%s[%s]", s.name, key),
		key:   key,
		lower: lower,
		upper: upper,
		value: initial,
	}
	s.vars = append(s.vars, v)
	s.byKey[key] = v
	return v, nil
}

// Get returns the variable with the given key.
func (s *VarSet) Get(key string) (*Var, bool) {
	v, ok := s.byKey[key]
	return v, ok
}

// Each calls f for every variable in insertion order.
func (s *VarSet) Each(f func(*Var)) {
	for _, v := range s.vars {
		f(v)
	}
}

// Len returns the number of variables in the set.
func (s *VarSet) Len() int { return len(s.vars) }

// Fix pins every variable in the set at its current value.
func (s *VarSet) Fix() {
	for _, v := range s.vars {
		v.Fix()
	}
}

// Free unpins every variable in the set.
func (s *VarSet) Free() {
	for _, v := range s.vars {
		v.Free()
	}
}

// Constraint is a relational bound on an expression:
//
//	lower <= expr <= upper
//
// with lower == upper for equalities. Inactive constraints are invisible to
// solver engines.
type Constraint struct {
	key    string
	expr   *Expr
	lower  float64
	upper  float64
	active bool
}

// Key returns the constraint's key within its set.
func (c *Constraint) Key() string { return c.key }

// Expr returns the constraint body.
func (c *Constraint) Expr() *Expr { return c.expr }

// Bounds returns the relational bounds.
func (c *Constraint) Bounds() (lower, upper float64) { return c.lower, c.upper }

// Equality reports whether the constraint is an equality.
func (c *Constraint) Equality() bool { return c.lower == c.upper }

// Activate enables the constraint.
func (c *Constraint) Activate() { c.active = true }

// Deactivate disables the constraint.
func (c *Constraint) Deactivate() { c.active = false }

// Active reports whether the constraint is enabled.
func (c *Constraint) Active() bool { return c.active }

// ConstraintSet is a named family of constraints addressed by key, the unit
// of activation bookkeeping for the staged strategies.
type ConstraintSet struct {
	name  string
	cons  []*Constraint
	byKey map[string]*Constraint
}

// Name returns the set name.
func (s *ConstraintSet) Name() string { return s.name }

// Add creates an active constraint lower <= expr <= upper.
func (s *ConstraintSet) Add(key string, expr *Expr, lower, upper float64) (*Constraint, error) {
	if _, dup := s.byKey[key]; dup {
		return nil, fmt.Errorf("constraint set %q: duplicate key %q", s.name, key)
	}
	c := &Constraint{key: key, expr: expr, lower: lower, upper: upper, active: true}
	s.cons = append(s.cons, c)
	s.byKey[key] = c
	return c, nil
}

// AddEq creates expr == rhs.
func (s *ConstraintSet) AddEq(key string, expr *Expr, rhs float64) (*Constraint, error) {
	return s.Add(key, expr, rhs, rhs)
}

// Get returns the constraint with the given key.
func (s *ConstraintSet) Get(key string) (*Constraint, bool) {
	c, ok := s.byKey[key]
	return c, ok
}

// Each calls f for every constraint in insertion order.
func (s *ConstraintSet) Each(f func(*Constraint)) {
	for _, c := range s.cons {
		f(c)
	}
}

// Len returns the number of constraints in the set.
func (s *ConstraintSet) Len() int { return len(s.cons) }

// Activate enables every constraint in the set.
func (s *ConstraintSet) Activate() {
	for _, c := range s.cons {
		c.active = true
	}
}

// Deactivate disables every constraint in the set.
func (s *ConstraintSet) Deactivate() {
	for _, c := range s.cons {
		c.active = false
	}
}

// Objective is a named optimization target. A model may hold several, but
// exactly one may be active when a solve starts.
type Objective struct {
	name   string
	sense  Sense
	expr   *Expr
	active bool
}

// Name returns the objective name.
func (o *Objective) Name() string { return o.name }

// Sense returns the optimization direction.
func (o *Objective) Sense() Sense { return o.sense }

// Expr returns the objective expression.
func (o *Objective) Expr() *Expr { return o.expr }

// Activate enables the objective.
func (o *Objective) Activate() { o.active = true }

// Deactivate disables the objective.
func (o *Objective) Deactivate() { o.active = false }

// Active reports whether the objective is enabled.
func (o *Objective) Active() bool { return o.active }

// Model is an algebraic optimization model: variable sets, constraint sets,
// objectives and named reporting expressions. It carries no solver state;
// engines read the active structure and write solution values back into the
// variables, which is how staged solves warm-start each other.
type Model struct {
	name string

	varSets     map[string]*VarSet
	varSetOrder []string

	conSets     map[string]*ConstraintSet
	conSetOrder []string

	objectives map[string]*Objective
	objOrder   []string

	expressions map[string]*Expr
}

// New creates an empty model.
func New(name string) *Model {
	return &Model{
		name:        name,
		varSets:     make(map[string]*VarSet),
		conSets:     make(map[string]*ConstraintSet),
		objectives:  make(map[string]*Objective),
		expressions: make(map[string]*Expr),
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// AddVarSet creates a new variable set.
func (m *Model) AddVarSet(name string) (*VarSet, error) {
	if _, dup := m.varSets[name]; dup {
		return nil, fmt.Errorf("model %q: duplicate variable set %q", m.name, name)
	}
	s := &VarSet{name: name, byKey: make(map[string]*Var)}
	m.varSets[name] = s
	m.varSetOrder = append(m.varSetOrder, name)
	return s, nil
}

// VarSet returns the variable set with the given name.
func (m *Model) VarSet(name string) (*VarSet, error) {
	s, ok := m.varSets[name]
	if !ok {
		return nil, fmt.Errorf("model %q: unknown variable set %q", m.name, name)
	}
	return s, nil
}

// AddConstraintSet creates a new constraint set.
func (m *Model) AddConstraintSet(name string) (*ConstraintSet, error) {
	if _, dup := m.conSets[name]; dup {
		return nil, fmt.Errorf("model %q: duplicate constraint set %q", m.name, name)
	}
	s := &ConstraintSet{name: name, byKey: make(map[string]*Constraint)}
	m.conSets[name] = s
	m.conSetOrder = append(m.conSetOrder, name)
	return s, nil
}

// ConstraintSet returns the constraint set with the given name.
func (m *Model) ConstraintSet(name string) (*ConstraintSet, error) {
	s, ok := m.conSets[name]
	if !ok {
		return nil, fmt.Errorf("model %q: unknown constraint set %q", m.name, name)
	}
	return s, nil
}

// AddObjective registers an objective. New objectives start inactive; use
// Objective(...).Activate or SetActiveObjective to enable one.
func (m *Model) AddObjective(name string, sense Sense, expr *Expr) (*Objective, error) {
	if _, dup := m.objectives[name]; dup {
		return nil, fmt.Errorf("model %q: duplicate objective %q", m.name, name)
	}
	o := &Objective{name: name, sense: sense, expr: expr}
	m.objectives[name] = o
	m.objOrder = append(m.objOrder, name)
	return o, nil
}

// Objective returns the objective with the given name.
func (m *Model) Objective(name string) (*Objective, error) {
	o, ok := m.objectives[name]
	if !ok {
		return nil, fmt.Errorf("model %q: unknown objective %q", m.name, name)
	}
	return o, nil
}

// SetActiveObjective activates the named objective and deactivates all
// others.
func (m *Model) SetActiveObjective(name string) error {
	target, ok := m.objectives[name]
	if !ok {
		return fmt.Errorf("model %q: unknown objective %q", m.name, name)
	}
	for _, o := range m.objectives {
		o.active = false
	}
	target.active = true
	return nil
}

// ActiveObjective returns the single active objective, or an error if zero
// or more than one are active.
func (m *Model) ActiveObjective() (*Objective, error) {
	var active *Objective
	for _, name := range m.objOrder {
		o := m.objectives[name]
		if !o.active {
			continue
		}
		if active != nil {
			return nil, fmt.Errorf("model %q: objectives %q and %q both active", m.name, active.name, o.name)
		}
		active = o
	}
	if active == nil {
		return nil, fmt.Errorf("model %q: no active objective", m.name)
	}
	return active, nil
}

// AddExpression registers a named reporting expression.
func (m *Model) AddExpression(name string, expr *Expr) error {
	if _, dup := m.expressions[name]; dup {
		return fmt.Errorf("model %q: duplicate expression %q", m.name, name)
	}
	m.expressions[name] = expr
	return nil
}

// Expression returns the named reporting expression.
func (m *Model) Expression(name string) (*Expr, error) {
	e, ok := m.expressions[name]
	if !ok {
		return nil, fmt.Errorf("model %q: unknown expression %q", m.name, name)
	}
	return e, nil
}

// Vars returns all variables in set insertion order.
func (m *Model) Vars() []*Var {
	var vars []*Var
	for _, name := range m.varSetOrder {
		vars = append(vars, m.varSets[name].vars...)
	}
	return vars
}

// FreeVars returns all unfixed variables in set insertion order. This is
// the dimension of the problem an engine sees.
func (m *Model) FreeVars() []*Var {
	var free []*Var
	for _, name := range m.varSetOrder {
		for _, v := range m.varSets[name].vars {
			if !v.fixedF {
				free = append(free, v)
			}
		}
	}
	return free
}

// ActiveConstraints returns all active constraints in set insertion order.
func (m *Model) ActiveConstraints() []*Constraint {
	var active []*Constraint
	for _, name := range m.conSetOrder {
		for _, c := range m.conSets[name].cons {
			if c.active {
				active = append(active, c)
			}
		}
	}
	return active
}

// FixVarSet pins every variable in the named set at its current value.
func (m *Model) FixVarSet(name string) error {
	s, err := m.VarSet(name)
	if err != nil {
		return err
	}
	s.Fix()
	return nil
}

// FreeVarSet unpins every variable in the named set.
func (m *Model) FreeVarSet(name string) error {
	s, err := m.VarSet(name)
	if err != nil {
		return err
	}
	s.Free()
	return nil
}

// ActivateConstraintSets enables every constraint in the named sets.
func (m *Model) ActivateConstraintSets(names ...string) error {
	for _, name := range names {
		s, err := m.ConstraintSet(name)
		if err != nil {
			return err
		}
		s.Activate()
	}
	return nil
}

// DeactivateConstraintSets disables every constraint in the named sets.
func (m *Model) DeactivateConstraintSets(names ...string) error {
	for _, name := range names {
		s, err := m.ConstraintSet(name)
		if err != nil {
			return err
		}
		s.Deactivate()
	}
	return nil
}

// Stats summarizes the model size for log lines.
func (m *Model) Stats() string {
	vars := m.Vars()
	free := 0
	for _, v := range vars {
		if !v.Fixed() {
			free++
		}
	}
	return fmt.Sprintf("%d vars (%d free), %d active constraints", len(vars), free, len(m.ActiveConstraints()))
}
