package availability

// Selection holds the picker indices chosen so far; nil means unset.
type Selection struct {
	Start *int `json:"start,omitempty"`
	End   *int `json:"end,omitempty"`
}

// Refine narrows the opposite picker of every chosen field. Options outside
// the legal contiguous run are disabled, never removed. An unset field
// leaves the other picker at its full list.
func (o Options) Refine(sel Selection) Options {
	out := o
	out.Start = reset(o.Start)
	out.End = reset(o.End)

	if sel.Start != nil {
		lo, hi := *sel.Start, *sel.Start-1
		if o.inRange(*sel.Start) {
			hi = o.forwardRun(*sel.Start)
		}
		for k := range out.End {
			idx := out.End[k].Index
			out.End[k].Disabled = idx < lo || idx > hi
		}
	}
	if sel.End != nil {
		lo, hi := *sel.End+1, *sel.End
		if o.inRange(*sel.End) {
			lo = o.backwardRun(*sel.End)
		}
		for k := range out.Start {
			idx := out.Start[k].Index
			out.Start[k].Disabled = idx < lo || idx > hi
		}
	}
	return out
}

func reset(in []Option) []Option {
	out := make([]Option, len(in))
	for i, opt := range in {
		opt.Disabled = false
		out[i] = opt
	}
	return out
}

// EnabledEnd returns the end options not disabled.
func (o Options) EnabledEnd() []Option { return enabled(o.End) }

// EnabledStart returns the start options not disabled.
func (o Options) EnabledStart() []Option { return enabled(o.Start) }

func enabled(in []Option) []Option {
	var out []Option
	for _, opt := range in {
		if !opt.Disabled {
			out = append(out, opt)
		}
	}
	return out
}
