package converge

// Observer is told about sweep progress. Calls for different fixtures may
// arrive from different goroutines.
type Observer interface {
	SweepStarted(id, label string, fixtures int)
	FixtureFinished(sweepID string, r FixtureResult)
	SweepFinished(r *Report)
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (obs Observers) SweepStarted(id, label string, fixtures int) {
	for _, o := range obs {
		o.SweepStarted(id, label, fixtures)
	}
}

func (obs Observers) FixtureFinished(sweepID string, r FixtureResult) {
	for _, o := range obs {
		o.FixtureFinished(sweepID, r)
	}
}

func (obs Observers) SweepFinished(r *Report) {
	for _, o := range obs {
		o.SweepFinished(r)
	}
}

type nopObserver struct{}

func (nopObserver) SweepStarted(string, string, int)      {}
func (nopObserver) FixtureFinished(string, FixtureResult) {}
func (nopObserver) SweepFinished(*Report)                 {}
