package core

// Evaluator evaluates condition trees.  Leaves are delegated to the
// Registry.
type Evaluator struct {
	Registry *Registry
}

func NewEvaluator(r *Registry) *Evaluator {
	return &Evaluator{Registry: r}
}

// If reports whether the condition holds.  An absent condition holds.
//
// An op that no module provides results in an EvaluationError.
// Errors from leaf implementations are returned as is.
func (e *Evaluator) If(ac *ActionContext, c Condition) (bool, error) {
	switch vv := c.(type) {
	case nil:
		return true, nil
	case *And:
		for _, item := range vv.Items {
			ok, err := e.If(ac, item)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *Or:
		for _, item := range vv.Items {
			ok, err := e.If(ac, item)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case *Not:
		if vv.Item == nil {
			return true, nil
		}
		ok, err := e.If(ac, vv.Item)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case *Leaf:
		if e.Registry == nil {
			return false, NoRegistry
		}
		def, have := e.Registry.Condition(vv.Operation)
		if !have {
			return false, &EvaluationError{Op: vv.Operation, Valid: e.Registry.ConditionOps()}
		}
		params := vv.Params
		if params == nil {
			params = Params{}
		}
		return def.Eval(params, ac)
	default:
		var valid []string
		if e.Registry != nil {
			valid = e.Registry.ConditionOps()
		}
		return false, &EvaluationError{Op: c.Op(), Valid: valid}
	}
}
