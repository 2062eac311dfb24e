package core

// Result is the accumulated outcome of a dispatch.  NextContext
// reflects every folded op so far.
type Result struct {
	NextContext      *ActionContext
	ResultOps        []ResultOp
	ScheduledActions []*ScheduledAction
}

// InitialResult is the identity for ConcatResult.
func InitialResult(ac *ActionContext) *Result {
	return &Result{
		NextContext:      ac,
		ResultOps:        []ResultOp{},
		ScheduledActions: []*ScheduledAction{},
	}
}

// ResultForOps folds the ops into a copy of the evaluation context.
// Ops that aren't Projectors leave the context alone.
func ResultForOps(ops []ResultOp, ac *ActionContext) *Result {
	ec := ac.EvalContext
	for _, op := range ops {
		if p, is := op.(Projector); is {
			ec = p.Project(ec)
		}
	}
	if ops == nil {
		ops = []ResultOp{}
	}
	return &Result{
		NextContext:      ac.WithEvalContext(ec),
		ResultOps:        ops,
		ScheduledActions: []*ScheduledAction{},
	}
}

// ConcatResult combines two results: b's context wins, and ops and
// scheduled actions are appended in order.
func ConcatResult(a, b *Result) *Result {
	ops := make([]ResultOp, 0, len(a.ResultOps)+len(b.ResultOps))
	ops = append(append(ops, a.ResultOps...), b.ResultOps...)
	sas := make([]*ScheduledAction, 0, len(a.ScheduledActions)+len(b.ScheduledActions))
	sas = append(append(sas, a.ScheduledActions...), b.ScheduledActions...)
	return &Result{
		NextContext:      b.NextContext,
		ResultOps:        ops,
		ScheduledActions: sas,
	}
}
