package runtime

// Mark-and-sweep over the series registry. Roots: the explicit root list,
// the manuals list (unreferenced manuals must survive until their owner
// frees them), exported API pairings, the data stack, lib and user, and
// every live frame. Collection happens only at safe points; the evaluator
// calls maybeGC between steps.

// GCStats reports one collection.
type GCStats struct {
	Swept     int
	Live      int
	BytesUsed int64
}

// Collect runs a full mark-and-sweep and rearms the ballast.
func (in *Interp) Collect() GCStats {
	if in.collecting {
		return GCStats{}
	}
	in.collecting = true
	defer func() { in.collecting = false }()

	before := in.mem.Used()

	// Mark.
	for _, s := range in.roots {
		in.markSeries(s)
	}
	for _, s := range in.manuals {
		in.markSeries(s)
	}
	for _, s := range in.apiPairs {
		in.markSeries(s)
	}
	for i := range in.dstack {
		in.markCell(&in.dstack[i])
	}
	in.markContext(in.lib)
	in.markContext(in.user)
	for f := in.top; f != nil; f = f.prior {
		in.markFrame(f)
	}

	// Sweep: free unmarked managed series, keep everything else.
	kept := in.allSeries[:0]
	swept := 0
	for _, s := range in.allSeries {
		if s.flags&serMarked != 0 {
			s.flags &^= serMarked
			kept = append(kept, s)
			continue
		}
		if !s.Accessible() {
			continue // tombstone: drop from the registry, identity persists
		}
		if !s.IsManaged() {
			kept = append(kept, s)
			continue
		}

		if s.flags&SerPairing != 0 {
			// Handle singulars get their cleaner called, but only when
			// the handle still names this pairing as its identity.
			val := s.PairingValue()
			if val.kind == KindHandle {
				if h := val.Handle(); h.singular == s && h.Cleanup != nil {
					h.Cleanup(h.Data)
				}
			}
		}
		in.decay(s)
		swept++
	}
	in.allSeries = kept

	in.mem.SetBallast(in.ballast)
	in.gcPending = false

	stats := GCStats{
		Swept:     swept,
		Live:      len(in.allSeries),
		BytesUsed: in.mem.Used(),
	}
	in.lastGC = stats
	in.log.Named("gc").Debug("collected",
		"swept", swept,
		"live", stats.Live,
		"bytes-before", before,
		"bytes-after", stats.BytesUsed)
	return stats
}

// LastGC returns the most recent collection's statistics.
func (in *Interp) LastGC() GCStats {
	return in.lastGC
}

func (in *Interp) markSeries(s *Series) {
	if s == nil || s.flags&serMarked != 0 || !s.Accessible() {
		return
	}
	s.flags |= serMarked

	if s.cells != nil {
		for i := 0; i <= s.used && s.bias+i < len(s.cells); i++ {
			in.markCell(&s.cells[s.bias+i])
		}
	}
	in.markLinkage(s.link)
	in.markLinkage(s.misc)
}

// markLinkage crosses the opaque link/misc slots, whose interpretation is
// per-flavor but whose reachable node types are closed.
func (in *Interp) markLinkage(v any) {
	switch t := v.(type) {
	case *Series:
		in.markSeries(t)
	case *Context:
		in.markContext(t)
	case *Action:
		in.markAction(t)
	}
}

func (in *Interp) markContext(ctx *Context) {
	if ctx == nil {
		return
	}
	in.markSeries(ctx.vars)
	in.markSeries(ctx.keys)
}

func (in *Interp) markAction(act *Action) {
	if act == nil {
		return
	}
	in.markSeries(act.paramlist)
	in.markSeries(act.details)
	in.markSeries(act.keys)
	in.markContext(act.exemplar)
	in.markContext(act.adjunct)
}

func (in *Interp) markCell(c *Cell) {
	if c == nil || c.kind == KindFree {
		return
	}
	in.markContext(c.binding)

	switch t := c.node.(type) {
	case *Series:
		in.markSeries(t)
	case *Context:
		in.markContext(t)
	case *Action:
		in.markAction(t)
	case *Handle:
		if t.singular != nil {
			in.markSeries(t.singular)
		}
	}
}

func (in *Interp) markFrame(f *Frame) {
	if f.out != nil {
		in.markCell(f.out)
	}
	in.markCell(&f.spare)
	in.markCell(&f.scratch)
	in.markContext(f.varlist)
	in.markContext(f.binding)
	in.markAction(f.phase)
	in.markAction(f.original)
	if f.feed != nil {
		in.markSeries(f.feed.arr)
		for sp := f.feed.sp; sp != nil; sp = sp.next {
			in.markContext(sp.ctx)
		}
	}
}
