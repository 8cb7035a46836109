package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/export"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/service"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

func filterFromRequest(r *http.Request) (types.LogFilter, error) {
	q := r.URL.Query()
	et, err := types.ParseEntryFilter(q.Get("type"))
	if err != nil {
		return types.LogFilter{}, err
	}
	return types.LogFilter{Search: q.Get("q"), EntryType: et}, nil
}

func (s *Server) queryLogs(w http.ResponseWriter, r *http.Request) ([]types.LogEntry, bool) {
	f, err := filterFromRequest(r)
	if err != nil {
		if errors.Is(err, types.ErrInvalidEntryType) {
			writeError(w, http.StatusBadRequest, "invalid_entry_type", err.Error())
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "bad_query", err.Error())
		return nil, false
	}
	entries, err := s.logs.Query(r.Context(), f)
	if err != nil {
		s.logger.Printf("logs query error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return nil, false
	}
	return entries, true
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	entries, ok := s.queryLogs(w, r)
	if !ok {
		return
	}
	if wantsProtobuf(r) {
		list, err := entriesToProto(entries)
		if err != nil {
			s.logger.Printf("logs proto error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, http.StatusOK, list)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleExportLogs(w http.ResponseWriter, r *http.Request) {
	entries, ok := s.queryLogs(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, entries); err != nil {
		s.logger.Printf("csv export error: %v", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	entries, err := s.logs.Query(r.Context(), types.LogFilter{})
	if err != nil {
		s.logger.Printf("stats query error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, service.ComputeStats(entries))
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.profiles.Profiles(r.Context())
	if err != nil {
		s.logger.Printf("profiles error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}
