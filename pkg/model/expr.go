package model

// LinTerm is a coefficient times a single variable.
type LinTerm struct {
	Coef float64
	Var  *Var
}

// BilinearTerm is a coefficient times a product of two variables.
// Bilinear terms are what make the treatment model a nonconvex NLP: flow
// times concentration.
type BilinearTerm struct {
	Coef float64
	X    *Var
	Y    *Var
}

// Expr is an affine-plus-bilinear expression over model variables:
//
//	constant + sum(coef*x) + sum(coef*x*y)
//
// Expressions evaluate against the variables' current values, so the same
// expression serves as constraint body, objective and reporting quantity.
type Expr struct {
	constant float64
	lin      []LinTerm
	bil      []BilinearTerm
}

// NewExpr returns an empty expression.
func NewExpr() *Expr {
	return &Expr{}
}

// AddConst adds a constant offset and returns the expression for chaining.
func (e *Expr) AddConst(c float64) *Expr {
	e.constant += c
	return e
}

// AddTerm adds coef*v.
func (e *Expr) AddTerm(coef float64, v *Var) *Expr {
	e.lin = append(e.lin, LinTerm{Coef: coef, Var: v})
	return e
}

// AddBilinear adds coef*x*y.
func (e *Expr) AddBilinear(coef float64, x, y *Var) *Expr {
	e.bil = append(e.bil, BilinearTerm{Coef: coef, X: x, Y: y})
	return e
}

// AddExpr adds scale*other term by term.
func (e *Expr) AddExpr(scale float64, other *Expr) *Expr {
	e.constant += scale * other.constant
	for _, t := range other.lin {
		e.lin = append(e.lin, LinTerm{Coef: scale * t.Coef, Var: t.Var})
	}
	for _, t := range other.bil {
		e.bil = append(e.bil, BilinearTerm{Coef: scale * t.Coef, X: t.X, Y: t.Y})
	}
	return e
}

// Constant returns the constant part.
func (e *Expr) Constant() float64 {
	return e.constant
}

// LinearTerms returns the linear terms. The slice is shared, not copied.
func (e *Expr) LinearTerms() []LinTerm {
	return e.lin
}

// BilinearTerms returns the bilinear terms. The slice is shared, not copied.
func (e *Expr) BilinearTerms() []BilinearTerm {
	return e.bil
}

// Value evaluates the expression at the variables' current values.
func (e *Expr) Value() float64 {
	v := e.constant
	for _, t := range e.lin {
		v += t.Coef * t.Var.Value()
	}
	for _, t := range e.bil {
		v += t.Coef * t.X.Value() * t.Y.Value()
	}
	return v
}

// Linear reports whether the expression has no bilinear terms at all.
func (e *Expr) Linear() bool {
	return len(e.bil) == 0
}

// LinearInFree reports whether the expression is linear once fixed variables
// are folded into constants: every bilinear term must have at least one
// fixed factor.
func (e *Expr) LinearInFree() bool {
	for _, t := range e.bil {
		if !t.X.Fixed() && !t.Y.Fixed() {
			return false
		}
	}
	return true
}
