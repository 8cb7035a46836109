package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/camera"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/inference"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/service"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

// readImage accepts a JSON {"image": ...} body, a raw image body, or a
// protobuf BytesValue.
func readImage(r *http.Request) ([]byte, error) {
	ct := mediaType(r.Header.Get("Content-Type"))
	switch {
	case isProtobuf(r):
		var msg wrapperspb.BytesValue
		if err := readProto(r, &msg, maxImageBody); err != nil {
			return nil, errBadBody
		}
		return msg.GetValue(), nil
	case strings.HasPrefix(ct, "image/"):
		body, err := io.ReadAll(io.LimitReader(r.Body, maxImageBody))
		if err != nil {
			return nil, errBadBody
		}
		return body, nil
	default:
		var req types.AnalyzeRequest
		dec := json.NewDecoder(io.LimitReader(r.Body, maxImageBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return nil, errBadBody
		}
		return service.DecodeImageInput(req.Image)
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(r)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	entry, err := s.pipeline.ProcessImage(r.Context(), img)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	if wantsProtobuf(r) {
		msg, err := entryToProto(entry)
		if err == nil {
			writeProto(w, http.StatusCreated, msg)
			return
		}
		s.logger.Printf("analyze proto error: %v", err)
	}
	writeJSON(w, http.StatusCreated, entry)
}

// writePipelineError maps capture, encoding and inference failures to
// HTTP statuses.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadBody):
		writeError(w, http.StatusBadRequest, "bad_body", "invalid request body")
	case errors.Is(err, service.ErrEncoding):
		writeError(w, http.StatusBadRequest, "bad_image", err.Error())
	case errors.Is(err, service.ErrStreamInactive):
		writeError(w, http.StatusConflict, "stream_inactive", err.Error())
	case errors.Is(err, service.ErrScanInProgress):
		writeError(w, http.StatusConflict, "scan_in_progress", err.Error())
	case errors.Is(err, camera.ErrCameraAccess):
		writeError(w, http.StatusServiceUnavailable, "camera_unavailable", service.MsgCameraAccess)
	case errors.Is(err, inference.ErrInference):
		s.logger.Printf("inference error: %v", err)
		writeError(w, http.StatusBadGateway, "inference_failed", service.MsgProcessing)
	default:
		s.logger.Printf("pipeline error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.session.Open(r.Context())
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToView(snap))
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sessionToView(s.session.Snapshot()))
}

// handleCloseSession releases the camera. An optional view_id query
// parameter also forgets that view's presence.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("view_id"); id != "" && s.presence != nil {
		if err := s.presence.Leave(r.Context(), id); err != nil {
			s.logger.Printf("presence leave error: %v", err)
		}
	}
	s.session.Close()
	writeJSON(w, http.StatusOK, sessionToView(s.session.Snapshot()))
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.Capture(r.Context()); err != nil {
		if errors.Is(err, service.ErrEncoding) {
			writeError(w, http.StatusUnprocessableEntity, "frame_unavailable", err.Error())
			return
		}
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToView(s.session.Snapshot()))
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.session.Reset()
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToView(snap))
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req types.ViewHeartbeat
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.presence.Record(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidViewID) {
			writeError(w, http.StatusBadRequest, "invalid_view_id", err.Error())
			return
		}
		s.logger.Printf("heartbeat error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := s.session.Preview(r.Context())
	switch {
	case errors.Is(err, service.ErrStreamInactive), errors.Is(err, camera.ErrTrackEnded):
		writeError(w, http.StatusConflict, "stream_inactive", err.Error())
		return
	case errors.Is(err, camera.ErrNoFrame):
		writeError(w, http.StatusServiceUnavailable, "no_frame", err.Error())
		return
	case err != nil:
		s.logger.Printf("preview error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(frame.Data))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame.Data)
}
