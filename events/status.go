package events

// ============================================================================
// STATUS MANAGER
// ============================================================================

// StatusManager forwards model-emitted public status updates to the event
// manager. When public status is disabled every call is a no-op; no
// StatusUpdate event is ever emitted.
type StatusManager struct {
	manager *Manager
	enabled bool
}

// NewStatusManager creates a status manager. enabled mirrors the
// emit_public_status configuration knob.
func NewStatusManager(manager *Manager, enabled bool) *StatusManager {
	return &StatusManager{manager: manager, enabled: enabled}
}

// Enabled reports whether status updates are being forwarded.
func (s *StatusManager) Enabled() bool {
	return s.enabled
}

// Emit forwards a status update. Empty strings and out-of-range percentages
// pass through unchanged; consumers decide how to render them.
func (s *StatusManager) Emit(agentID string, turnIndex int, status StatusPayload) {
	if !s.enabled || s.manager == nil {
		return
	}
	s.manager.Emit(Event{
		Type:      TypeStatusUpdate,
		AgentID:   agentID,
		TurnIndex: turnIndex,
		Status:    &status,
	})
}
