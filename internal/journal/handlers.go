package journal

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/zombor/trip-journal/internal/ocr"
	"github.com/zombor/trip-journal/internal/scanning"
	"github.com/zombor/trip-journal/internal/weather"
)

// maxUploadSize caps multipart uploads. High-resolution phone photos can be
// surprisingly large.
const maxUploadSize = int64(50 << 20) // 50MB

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response body
func writeJSON(w http.ResponseWriter, code int, body any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// providerStatus maps provider-reported errors to 502 so the UI can show
// the provider's own message, and everything else to 500
func providerStatus(err error) int {
	var weatherErr *weather.ProviderError
	var ocrErr *ocr.ProviderError
	if errors.As(err, &weatherErr) || errors.As(err, &ocrErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// readUpload pulls the uploaded file out of a multipart form
func readUpload(w http.ResponseWriter, r *http.Request) (data []byte, filename, contentType string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		message := "Error parsing form"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			message = "File is too large. Maximum size is 50MB."
		}
		jsonError(w, message, http.StatusBadRequest)
		return nil, "", "", false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file provided", http.StatusBadRequest)
		return nil, "", "", false
	}
	defer f.Close()

	data, err = io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading uploaded file", "error", err)
		jsonError(w, "Error reading file", http.StatusInternalServerError)
		return nil, "", "", false
	}

	return data, header.Filename, uploadContentType(header), true
}

func uploadContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleCreateSession starts a new session
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Place string `json:"place"`
	}
	if r.Body != nil {
		// Body is optional; a session can start without a place
		json.NewDecoder(r.Body).Decode(&req)
	}

	session, err := s.service.CreateSession(req.Place)
	if err != nil {
		slog.Error("Error creating session", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// handleListSessions returns all stored sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions()
	if err != nil {
		slog.Error("Error listing sessions", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

// handleGetSession returns a session with its collections
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.PathValue("id"))
	if err != nil {
		corsError(w, "Session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// handleSetPlace updates the session's place
func (s *Server) handleSetPlace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Place string `json:"place"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := s.service.SetPlace(r.PathValue("id"), req.Place)
	if err != nil {
		corsError(w, "Session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// handleResetSession clears both collections
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.ResetSession(r.PathValue("id"))
	if err != nil {
		corsError(w, "Session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// handleDeleteSession deletes a session
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSession(r.PathValue("id")); err != nil {
		corsError(w, "Error deleting session", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleWeather returns the weather summary line for a place
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	place := r.URL.Query().Get("place")
	if place == "" {
		corsError(w, "place parameter is required", http.StatusBadRequest)
		return
	}

	summary, err := s.service.Weather(r.Context(), place)
	if err != nil {
		slog.Error("Weather lookup failed", "place", place, "error", err)
		jsonError(w, err.Error(), providerStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// handleBriefing returns the AI safety briefing for a place
func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	place := r.URL.Query().Get("place")
	if place == "" {
		corsError(w, "place parameter is required", http.StatusBadRequest)
		return
	}

	briefing, err := s.service.SafetyBriefing(r.Context(), place)
	if err != nil {
		slog.Error("Safety briefing failed", "place", place, "error", err)
		jsonError(w, err.Error(), providerStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, briefing)
}

// handleScanReceipt runs OCR and field extraction over an upload and returns
// suggested fields without storing anything
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.GetSession(r.PathValue("id")); err != nil {
		corsError(w, "Session not found", http.StatusNotFound)
		return
	}

	data, _, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	fields, err := s.service.ScanReceipt(r.Context(), data, contentType)
	if err != nil {
		if errors.Is(err, scanning.ErrExtractionIncomplete) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, err.Error(), providerStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, fields)
}

// handleAddReceipt stores a confirmed receipt
func (s *Server) handleAddReceipt(w http.ResponseWriter, r *http.Request) {
	data, filename, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	receipt, err := s.service.AddReceipt(r.PathValue("id"), ReceiptUpload{
		Filename:    filename,
		Data:        data,
		ContentType: contentType,
		Item:        r.FormValue("item"),
		Amount:      r.FormValue("amount"),
		Date:        r.FormValue("date"),
		Time:        r.FormValue("time"),
	})
	if err != nil {
		slog.Error("Error adding receipt", "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// handleDeleteReceipt deletes a receipt record
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id"), r.PathValue("rid")); err != nil {
		corsError(w, "Receipt not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleReceiptImage returns the stored image for a receipt
func (s *Server) handleReceiptImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.ReceiptImage(r.PathValue("id"), r.PathValue("rid"))
	if err != nil {
		corsError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleInspectPhoto reads EXIF metadata from an upload and resolves GPS
// coordinates into a place name
func (s *Server) handleInspectPhoto(w http.ResponseWriter, r *http.Request) {
	data, _, _, ok := readUpload(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, s.service.InspectPhoto(r.Context(), data))
}

// handleAddPhoto stores a photo
func (s *Server) handleAddPhoto(w http.ResponseWriter, r *http.Request) {
	data, filename, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	photo, err := s.service.AddPhoto(r.PathValue("id"), PhotoUpload{
		Filename:    filename,
		Data:        data,
		ContentType: contentType,
		Caption:     r.FormValue("caption"),
		TakenAt:     r.FormValue("taken_at"),
		Location:    r.FormValue("location"),
	})
	if err != nil {
		slog.Error("Error adding photo", "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, photo)
}

// handleDeletePhoto deletes a photo record
func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePhoto(r.PathValue("id"), r.PathValue("pid")); err != nil {
		corsError(w, "Photo not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handlePhotoImage returns the stored image for a photo
func (s *Server) handlePhotoImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.PhotoImage(r.PathValue("id"), r.PathValue("pid"))
	if err != nil {
		corsError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleNarrative generates the diary entry for a session
func (s *Server) handleNarrative(w http.ResponseWriter, r *http.Request) {
	narrative, err := s.service.ComposeNarrative(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrEmptySession) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Error composing narrative", "error", err)
		jsonError(w, err.Error(), providerStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, narrative)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
