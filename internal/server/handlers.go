package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/audit"
	"github.com/promptveil/veil/internal/masking"
	"github.com/promptveil/veil/internal/websocket"
)

const version = "0.1.0"

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Success          bool     `json:"success"`
	OriginalPrompt   string   `json:"original_prompt"`
	MaskedPrompt     string   `json:"masked_prompt"`
	LLMResponse      string   `json:"llm_response"`
	FinalResponse    string   `json:"final_response"`
	DetectedEntities []string `json:"detected_entities"`
	SessionID        string   `json:"session_id"`
}

type maskRequest struct {
	Text string `json:"text"`
}

type maskResponse struct {
	Success          bool              `json:"success"`
	OriginalText     string            `json:"original_text"`
	MaskedText       string            `json:"masked_text"`
	Mappings         map[string]string `json:"mappings"`
	DetectedEntities []string          `json:"detected_entities"`
}

type unmaskRequest struct {
	MaskedText string            `json:"masked_text"`
	Mappings   map[string]string `json:"mappings"`
}

type unmaskResponse struct {
	Success      bool   `json:"success"`
	MaskedText   string `json:"masked_text"`
	UnmaskedText string `json:"unmasked_text"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// handleChat masks the incoming message, hands the masked text to the LLM
// client, and unmasks the response with every mapping the session has
// accumulated so placeholders from earlier turns resolve too.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "no message provided")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	log := s.logger.WithRequestID(getRequestID(r.Context())).WithSession(sessionID)

	start := time.Now()
	result := s.getMasker().Mask(r.Context(), req.Message)
	maskDuration := time.Since(start)

	if len(result.Mappings) > 0 {
		if err := s.store.Merge(r.Context(), sessionID, result.Mappings); err != nil {
			log.Error("Failed to persist session mappings", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}
	s.recordDetections(r, sessionID, result, maskDuration)

	llmResponse, err := s.llm.Generate(r.Context(), result.MaskedText)
	if err != nil {
		log.Error("LLM generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Unmask with the union of all mappings seen in this session, not just
	// this request's, so a reply referencing [EMAIL_0] from a prior turn
	// still resolves.
	unionMappings, err := s.store.Get(r.Context(), sessionID)
	if err != nil {
		log.Error("Failed to load session mappings", zap.Error(err))
		unionMappings = result.Mappings
	}
	finalResponse := masking.Unmask(llmResponse, unionMappings)

	log.Info("Chat request processed",
		zap.Int("masked_count", len(result.Mappings)),
		zap.Duration("mask_duration", maskDuration),
		zap.String("llm_mode", s.llm.Name()),
	)

	writeJSON(w, http.StatusOK, chatResponse{
		Success:          true,
		OriginalPrompt:   result.OriginalText,
		MaskedPrompt:     result.MaskedText,
		LLMResponse:      llmResponse,
		FinalResponse:    finalResponse,
		DetectedEntities: result.DetectedEntities,
		SessionID:        sessionID,
	})
}

// handleMask masks the given text and returns the placeholder mappings.
func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	var req maskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "no text provided")
		return
	}

	start := time.Now()
	result := s.getMasker().Mask(r.Context(), req.Text)
	s.recordDetections(r, "", result, time.Since(start))

	writeJSON(w, http.StatusOK, maskResponse{
		Success:          true,
		OriginalText:     result.OriginalText,
		MaskedText:       result.MaskedText,
		Mappings:         result.Mappings,
		DetectedEntities: result.DetectedEntities,
	})
}

// handleUnmask restores original values using caller-supplied mappings.
func (s *Server) handleUnmask(w http.ResponseWriter, r *http.Request) {
	var req unmaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MaskedText == "" {
		writeError(w, http.StatusBadRequest, "no masked_text provided")
		return
	}

	writeJSON(w, http.StatusOK, unmaskResponse{
		Success:      true,
		MaskedText:   req.MaskedText,
		UnmaskedText: masking.Unmask(req.MaskedText, req.Mappings),
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":             "veil",
		"version":          version,
		"masking_enabled":  s.getConfig().Masking.Enabled,
		"categories":       s.getMasker().EnabledCategories(),
		"llm_mode":         s.llm.Name(),
		"session_store":    s.getConfig().Session.Store,
		"uptime":           time.Since(s.startTime).String(),
		"total_requests":   s.totalRequests.Load(),
		"total_detections": s.totalDetections.Load(),
	})
}

// recordDetections feeds the audit log and the dashboard hub. Only category
// tags and counts leave this function; original values stay in the result.
func (s *Server) recordDetections(r *http.Request, sessionID string, result masking.Result, duration time.Duration) {
	if len(result.Mappings) == 0 {
		return
	}

	s.totalDetections.Add(int64(len(result.Mappings)))
	counts := categoryCounts(result.Mappings)
	requestID := getRequestID(r.Context())

	if s.getConfig().Audit.Enabled {
		s.recorder.Write(audit.Record{
			RequestID:   requestID,
			SessionID:   sessionID,
			Path:        r.URL.Path,
			Categories:  counts,
			TotalMasked: len(result.Mappings),
			DurationMS:  float64(duration.Nanoseconds()) / 1e6,
		})
	}

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeDetection,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.DetectionEvent{
			RequestID:      requestID,
			SessionID:      sessionID,
			Path:           r.URL.Path,
			ClientIP:       clientIP(r),
			Categories:     counts,
			TotalMasked:    len(result.Mappings),
			ProcessingMS:   float64(duration.Nanoseconds()) / 1e6,
			MappingEntries: len(result.Mappings),
		},
	})
}

// categoryCounts tallies placeholders per category from mapping keys shaped
// like "[EMAIL_0]".
func categoryCounts(mappings map[string]string) map[string]int {
	counts := make(map[string]int)
	for placeholder := range mappings {
		tag := strings.Trim(placeholder, "[]")
		if i := strings.LastIndex(tag, "_"); i > 0 {
			tag = tag[:i]
		}
		counts[tag]++
	}
	return counts
}

// generateSessionID generates an ID for sessions that did not supply one
func generateSessionID() string {
	return fmt.Sprintf("session_%d", time.Now().UnixNano())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}
