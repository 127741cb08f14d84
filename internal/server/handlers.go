// Package server implements the collection receiver HTTP handlers and middleware.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/woozymasta/gpsmarker/internal/credential"
	"github.com/woozymasta/gpsmarker/internal/geo"
	"github.com/woozymasta/gpsmarker/internal/metrics"
	"github.com/woozymasta/gpsmarker/internal/store"
	"github.com/woozymasta/gpsmarker/internal/upload"

	"github.com/rs/zerolog/log"
)

const (
	etagCap          = 64
	collectionsRoute = "/api/collections"
	defaultType      = "collection"
)

// submission is an uploaded collection. Properties stay raw because
// UserInfo is an object.
type submission struct {
	Type       string                     `json:"type"`
	Features   []geo.Feature              `json:"features"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// StoredCollection describes a collection file kept by the receiver.
type StoredCollection struct {
	User     string    `json:"user"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// HandleCollections lists stored collections on GET and accepts new ones on POST.
func (s *ServerContext) HandleCollections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.HandleUpload(w, r)
	case http.MethodGet, http.MethodHead:
		s.HandleList(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleUpload validates a submitted collection and stores it under the
// uploader's directory.
func (s *ServerContext) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "collection too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var sub submission
	if err := json.Unmarshal(data, &sub); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fc := geo.FeatureCollection{Type: sub.Type, Features: sub.Features}
	if err := fc.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, ok := sub.Properties[upload.UserInfoKey]
	if !ok || string(raw) == "null" {
		writeError(w, http.StatusUnauthorized, "missing UserInfo")
		return
	}
	var user credential.Credential
	if err := json.Unmarshal(raw, &user); err != nil {
		writeError(w, http.StatusBadRequest, "malformed UserInfo: "+err.Error())
		return
	}
	if strings.TrimSpace(user.UserID) == "" {
		writeError(w, http.StatusUnauthorized, "missing UserInfo.UserID")
		return
	}
	if err := user.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userDir := safeName(user.UserID)
	if userDir == "" {
		writeError(w, http.StatusBadRequest, "UserInfo.UserID has no usable characters")
		return
	}

	collectionType := defaultType
	if raw, ok := sub.Properties[store.LabelKey]; ok {
		var t string
		if json.Unmarshal(raw, &t) == nil && safeName(t) != "" {
			collectionType = t
		}
	}

	dir := filepath.Join(s.StorageDir, userDir)
	name := safeName(collectionType) + "-" + strconv.FormatInt(time.Now().UnixNano(), 10) + ".json"
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("Failed to create user directory")
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		log.Error().Err(err).Str("dir", dir).Str("file", name).Msg("Failed to store collection")
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	metrics.ReceivedTotal.WithLabelValues(collectionType).Inc()
	metrics.ReceivedFeaturesTotal.Add(float64(len(fc.Features)))

	log.Info().
		Str("user", user.UserID).
		Str("id_type", string(user.IDType)).
		Str("type", collectionType).
		Int("features", len(fc.Features)).
		Str("file", name).
		Msg("Collection received")

	writeJSON(w, http.StatusCreated, map[string]int{"features": len(fc.Features)})
}

// HandleList serves the stored collection files as JSON.
func (s *ServerContext) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.listCollections()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list collections")
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCollectionFile serves one stored collection.
func (s *ServerContext) HandleCollectionFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Path: /api/collections/{user}/{file}
	rest := strings.TrimPrefix(r.URL.Path, collectionsRoute+"/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || !validSegment(parts[0]) || !validSegment(parts[1]) || !strings.HasSuffix(parts[1], ".json") {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.StorageDir, parts[0], parts[1])
	if !s.serveFile(w, r, path, upload.ContentType) {
		http.NotFound(w, r)
	}
}

// HandleHealth reports liveness.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleIndex serves the receiver overview page.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if match := r.Header.Get("If-None-Match"); match == s.IndexETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", s.IndexETag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

func (s *ServerContext) listCollections() ([]StoredCollection, error) {
	list := make([]StoredCollection, 0)

	users, err := os.ReadDir(s.StorageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return list, nil
		}
		return nil, err
	}

	for _, u := range users {
		if !u.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.StorageDir, u.Name()))
		if err != nil {
			log.Warn().Err(err).Str("user", u.Name()).Msg("Skipping unreadable user directory")
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			list = append(list, StoredCollection{
				User:     u.Name(),
				Name:     f.Name(),
				Size:     info.Size(),
				Modified: info.ModTime().UTC(),
			})
		}
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].User != list[j].User {
			return list[i].User < list[j].User
		}
		return list[i].Name < list[j].Name
	})

	return list, nil
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}

// safeName maps a user supplied value to a file name fragment.
func safeName(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if strings.Trim(out, "_") == "" {
		return ""
	}
	return out
}

func validSegment(seg string) bool {
	return seg != "" && safeName(seg) == seg
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
