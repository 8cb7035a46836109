package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

var ErrInvalidViewID = errors.New("view_id is required")

// ScannerView is the view name that keeps the camera stream alive.
const ScannerView = "scanner"

// PresenceService records heartbeats from open views.
type PresenceService struct {
	presence store.PresenceStore
}

func NewPresenceService(ps store.PresenceStore) *PresenceService {
	return &PresenceService{presence: ps}
}

func (s *PresenceService) Record(ctx context.Context, req types.ViewHeartbeat) (types.ViewHeartbeatResponse, error) {
	viewID := strings.TrimSpace(req.ViewID)
	if viewID == "" {
		return types.ViewHeartbeatResponse{}, ErrInvalidViewID
	}
	req.ViewID = viewID
	if strings.TrimSpace(req.View) == "" {
		req.View = ScannerView
	}

	rec := store.PresenceRecord{
		ReceivedAt: time.Now().UTC(),
		Heartbeat:  req,
	}
	if err := s.presence.UpsertHeartbeat(ctx, viewID, rec); err != nil {
		return types.ViewHeartbeatResponse{}, err
	}

	return types.ViewHeartbeatResponse{
		OK:         true,
		ViewID:     viewID,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// Leave forgets a view that closed explicitly.
func (s *PresenceService) Leave(ctx context.Context, viewID string) error {
	viewID = strings.TrimSpace(viewID)
	if viewID == "" {
		return ErrInvalidViewID
	}
	return s.presence.Remove(ctx, viewID)
}
