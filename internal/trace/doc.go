// Package trace records the shape of a compilation: which unit, which
// function and which pass ran, for how long, and in what order.
//
// Tracers travel through the pipeline on a context.Context:
//
//	ctx = trace.WithTracer(ctx, tr)
//	sp := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "enter_ssa", 0)
//	defer sp.End("")
//
// A Level filters events by Scope. StreamTracer writes every accepted event
// immediately, RingTracer keeps the last N in memory, and MultiTracer fans out
// to several tracers. The zero-cost Nop tracer is returned whenever tracing
// is off.
package trace
