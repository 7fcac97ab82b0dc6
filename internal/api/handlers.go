package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/fixture"
	"github.com/MJE43/nh-parity-go/internal/oracle"
	"github.com/MJE43/nh-parity-go/internal/store"
)

// handleRunSweep runs the posted fixtures against the configured oracle,
// stores the report and answers with it. Progress is streamed on the hub
// while the sweep runs.
func (s *Server) handleRunSweep(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if err := ValidateSweepRequest(&req); err != nil {
		s.handleRequestError(w, r, err)
		return
	}
	if s.oracle == nil {
		s.errorHandler.HandleError(w, r, fmt.Errorf("no oracle configured: %w", oracle.ErrOracleUnavailable), http.StatusServiceUnavailable)
		return
	}

	threshold := s.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	runner := converge.Runner{
		Oracle:         s.oracle,
		Table:          s.table,
		Threshold:      threshold,
		Workers:        s.workers,
		FixtureTimeout: s.fixtureTimeout,
		Label:          req.Label,
		Observer:       converge.Observers{s.metrics, s.hub},
		Logger:         s.logger,
	}

	rep, err := runner.Run(r.Context(), req.Fixtures)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	if err := s.db.SaveReport(r.Context(), rep, EngineVersion); err != nil {
		s.errorHandler.HandleError(w, r, fmt.Errorf("save sweep %s: %w", rep.ID, err), http.StatusInternalServerError)
		return
	}

	resp := SweepResponse{Report: rep, EngineVersion: EngineVersion}
	if s.gate != nil {
		resp.Gate = "passed"
		if err := s.gate.Check(rep); err != nil {
			resp.Gate = err.Error()
		}
	}

	s.logger.Info("sweep_stored",
		"sweep_id", rep.ID,
		"label", rep.Label,
		"verdict", rep.Verdict,
		"parity_rate", rep.ParityRate.String(),
		"fixtures", len(rep.Fixtures))

	s.writeJSON(w, http.StatusCreated, resp)
}

// handleReplay replays one fixture on the kernel alone and returns the
// per-step transcript. The body is a fixture in JSON, or YAML when the
// content type says so.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", fmt.Sprintf("read body: %v", err))
		return
	}

	f, err := fixture.Parse(data, fixtureFormat(r.Header.Get("Content-Type")))
	if err != nil {
		if errors.Is(err, fixture.ErrInvalid) || errors.Is(err, fixture.ErrUnsupported) {
			s.errorHandler.HandleError(w, r, err, http.StatusBadRequest)
			return
		}
		s.errorHandler.HandleValidationError(w, r, "body", err.Error())
		return
	}

	t, err := converge.Replay(r.Context(), f)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, ReplayResponse{Transcript: t, EngineVersion: EngineVersion})
}

func (s *Server) handleSeverityTable(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, SeverityTableResponse{
		Default: s.table.Default(),
		Rules:   s.table.Rules(),
	})
}

// handleListSweeps pages stored sweeps, newest first.
func (s *Server) handleListSweeps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage, err := parsePage(q)
	if err != nil {
		s.handleRequestError(w, r, err)
		return
	}
	verdict, err := parseVerdict(q.Get("verdict"))
	if err != nil {
		s.handleRequestError(w, r, err)
		return
	}

	list, err := s.db.ListSweeps(r.Context(), store.SweepsQuery{
		Label:   q.Get("label"),
		Verdict: verdict,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSweep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sweep, err := s.db.GetSweep(r.Context(), id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	rows, err := s.db.GetFixtureResults(r.Context(), id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, SweepDetail{Sweep: sweep, Fixtures: rows})
}

// handleGetReport returns the full report exactly as the runner produced it.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.db.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleGetFixtures(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.GetFixtureResults(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// handleListRecords pages a sweep's diff records, worst first.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage, err := parsePage(q)
	if err != nil {
		s.handleRequestError(w, r, err)
		return
	}
	minSeverity, err := parseMinSeverity(q.Get("min_severity"))
	if err != nil {
		s.handleRequestError(w, r, err)
		return
	}

	records, err := s.db.ListRecords(r.Context(), store.RecordsQuery{
		SweepID:     chi.URLParam(r, "id"),
		Fixture:     q.Get("fixture"),
		MinSeverity: minSeverity,
		Page:        page,
		PerPage:     perPage,
	})
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDeleteSweep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.db.DeleteSweep(r.Context(), id); err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.logger.Info("sweep_deleted", "sweep_id", id)
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(http.StatusNoContent)
}

// handleRequestError reports field errors as validation failures and
// everything else through the error classifier.
func (s *Server) handleRequestError(w http.ResponseWriter, r *http.Request, err error) {
	if fe, ok := asFieldError(err); ok {
		s.errorHandler.HandleValidationError(w, r, fe.field, fe.message)
		return
	}
	s.errorHandler.HandleError(w, r, err, http.StatusBadRequest)
}
