package web

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"voice-relay/internal/application"
	"voice-relay/internal/domain"
)

type processAudioRequest struct {
	Audio string `json:"audio"`
}

type processAudioResponse struct {
	Success         bool   `json:"success"`
	TranscribedText string `json:"transcribed_text"`
	ResponseText    string `json:"response_text"`
	SpeechText      string `json:"speech_text"`
	Audio           string `json:"audio"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

type historyResponse struct {
	Turns []domain.Turn `json:"turns"`
}

func (s *Server) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	session := s.sessionID(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req processAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: "request body too large",
				Kind:  string(application.KindInvalidInput),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "invalid JSON body",
			Kind:  string(application.KindInvalidInput),
		})
		return
	}

	result, err := s.pipeline.Handle(r.Context(), application.Request{
		SessionID: session,
		Audio:     req.Audio,
	})
	if err != nil {
		kind := application.KindOf(err)
		status := http.StatusInternalServerError
		if kind.UserCorrectable() {
			status = http.StatusBadRequest
		}
		// Unexpected failures expose only their message; the cause is logged.
		message := "internal error"
		var pe *application.PipelineError
		if errors.As(err, &pe) {
			message = pe.Message
			if kind != application.KindUnexpected {
				message = pe.Error()
			}
		}
		writeJSON(w, status, errorResponse{Error: message, Kind: string(kind)})
		return
	}

	writeJSON(w, http.StatusOK, processAudioResponse{
		Success:         true,
		TranscribedText: result.TranscribedText,
		ResponseText:    result.ReplyText,
		SpeechText:      result.SpeechText,
		Audio: domain.EncodeDataURL(
			result.Speech.MIMEType(),
			base64.StdEncoding.EncodeToString(result.Speech.Data),
		),
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	session := s.sessionID(w, r)

	turns, err := s.history.Turns(r.Context(), session)
	if err != nil {
		s.logger.Error("reading history", "session", session, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "reading history failed"})
		return
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Turns: turns})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	session := s.sessionID(w, r)

	if err := s.history.Clear(r.Context(), session); err != nil {
		s.logger.Error("clearing history", "session", session, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "clearing history failed"})
		return
	}
	s.logger.Info("history cleared", "session", session)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
