package rng

// TraceEntry records one logical draw. Raw is the last 64-bit output the
// draw consumed and Checksum is the generator state right after it.
type TraceEntry struct {
	Seq      uint64 `json:"seq"`
	Site     string `json:"site,omitempty"`
	Func     string `json:"func"`
	Arg      int64  `json:"arg"`
	Result   int64  `json:"result"`
	Raw      uint64 `json:"raw"`
	Checksum uint64 `json:"checksum,omitempty"`
}

// EnableTracing starts recording a TraceEntry for every draw.
func (g *Isaac64) EnableTracing() {
	g.tracing = true
}

// DisableTracing stops recording. Buffered entries are kept.
func (g *Isaac64) DisableTracing() {
	g.tracing = false
}

// Tracing reports whether draws are being recorded.
func (g *Isaac64) Tracing() bool { return g.tracing }

// SetSite tags subsequent draws with a call-site label.
func (g *Isaac64) SetSite(tag string) {
	g.site = tag
}

// Trace returns a copy of the buffered entries.
func (g *Isaac64) Trace() []TraceEntry {
	return append([]TraceEntry(nil), g.trace...)
}

// DrainTrace returns the buffered entries and clears the buffer.
func (g *Isaac64) DrainTrace() []TraceEntry {
	out := g.trace
	g.trace = nil
	return out
}

func (g *Isaac64) record(fn string, arg, result int64, raw uint64) {
	if !g.tracing {
		return
	}
	g.seq++
	g.trace = append(g.trace, TraceEntry{
		Seq:      g.seq,
		Site:     g.site,
		Func:     fn,
		Arg:      arg,
		Result:   result,
		Raw:      raw,
		Checksum: g.Checksum(),
	})
}
