package converge

import "errors"

var (
	ErrNoFixtures = errors.New("no fixtures to run")
	ErrNoOracle   = errors.New("no oracle configured")
	ErrGateFailed = errors.New("gate failed")
)
