// Package registrytest provides an in-process Confluent-compatible schema
// registry for tests, in the spirit of net/http/httptest.
//
//	srv := registrytest.NewServer()
//	defer srv.Close()
//
//	client, _ := schema_registry.NewClient(schema_registry.Config{URL: srv.URL})
//
// The server counts lookups per schema ID and registrations so tests can
// assert on cache behaviour, and can be told to reject schemas for a subject
// or to answer with 503.
package registrytest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
)

// Server is a fake schema registry.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	nextID        int
	schemas       map[int]string
	subjects      map[string][]int
	compatibility map[string]string
	rejected      map[string]bool
	fetches       map[int]int

	registrations atomic.Int64
	unavailable   atomic.Bool
}

// NewServer starts a fake registry. IDs are assigned from 1.
func NewServer() *Server {
	s := &Server{
		nextID:        1,
		schemas:       make(map[int]string),
		subjects:      make(map[string][]int),
		compatibility: make(map[string]string),
		rejected:      make(map[string]bool),
		fetches:       make(map[int]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /schemas/ids/{id}", s.getSchema)
	mux.HandleFunc("POST /subjects/{subject}/versions", s.register)
	mux.HandleFunc("GET /subjects/{subject}/versions/latest", s.latest)
	mux.HandleFunc("POST /compatibility/subjects/{subject}/versions/latest", s.checkCompatibility)
	mux.HandleFunc("GET /config/{subject}", s.getConfig)
	mux.HandleFunc("PUT /config/{subject}", s.putConfig)

	s.Server = httptest.NewServer(s.guard(mux))
	return s
}

// SetNextID makes the next newly registered schema receive id.
func (s *Server) SetNextID(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = id
}

// AddSchema registers schema under subject with a fixed id.
func (s *Server) AddSchema(subject string, id int, schema string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[id] = compact(schema)
	s.subjects[subject] = append(s.subjects[subject], id)
	if id >= s.nextID {
		s.nextID = id + 1
	}
}

// RejectSubject makes every new schema for subject fail compatibility once
// the subject has at least one version.
func (s *Server) RejectSubject(subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[subject] = true
}

// SetUnavailable makes every request answer 503 until called with false.
func (s *Server) SetUnavailable(v bool) {
	s.unavailable.Store(v)
}

// Fetches returns how many times id was looked up.
func (s *Server) Fetches(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[id]
}

// Registrations returns the number of registration requests received.
func (s *Server) Registrations() int {
	return int(s.registrations.Load())
}

// Compatibility returns the mode set for subject, empty if none was set.
func (s *Server) Compatibility(subject string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compatibility[subject]
}

func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.unavailable.Load() {
			writeError(w, http.StatusServiceUnavailable, 50003, "Error while forwarding the request to the leader")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, 40403, "Schema not found")
		return
	}

	s.mu.Lock()
	s.fetches[id]++
	schema, ok := s.schemas[id]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, 40403, fmt.Sprintf("Schema %d not found", id))
		return
	}
	writeJSON(w, map[string]interface{}{"schema": schema})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	s.registrations.Add(1)
	subject := r.PathValue("subject")

	var req struct {
		Schema string `json:"schema"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !json.Valid([]byte(req.Schema)) {
		writeError(w, http.StatusUnprocessableEntity, 42201, "Invalid schema")
		return
	}
	schema := compact(req.Schema)

	s.mu.Lock()
	defer s.mu.Unlock()

	id, known := s.idOf(schema)
	if known && contains(s.subjects[subject], id) {
		writeJSON(w, map[string]interface{}{"id": id})
		return
	}
	if s.rejected[subject] && len(s.subjects[subject]) > 0 {
		writeError(w, http.StatusConflict, 409, "Schema being registered is incompatible with an earlier schema for subject \""+subject+"\"")
		return
	}
	if !known {
		id = s.nextID
		s.nextID++
		s.schemas[id] = schema
	}
	s.subjects[subject] = append(s.subjects[subject], id)
	writeJSON(w, map[string]interface{}{"id": id})
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")

	s.mu.Lock()
	versions := s.subjects[subject]
	var id int
	var schema string
	if len(versions) > 0 {
		id = versions[len(versions)-1]
		schema = s.schemas[id]
	}
	s.mu.Unlock()

	if len(versions) == 0 {
		writeError(w, http.StatusNotFound, 40401, fmt.Sprintf("Subject '%s' not found.", subject))
		return
	}
	writeJSON(w, map[string]interface{}{
		"subject": subject,
		"id":      id,
		"version": len(versions),
		"schema":  schema,
	})
}

func (s *Server) checkCompatibility(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")

	s.mu.Lock()
	versions := len(s.subjects[subject])
	rejected := s.rejected[subject]
	s.mu.Unlock()

	if versions == 0 {
		writeError(w, http.StatusNotFound, 40401, fmt.Sprintf("Subject '%s' not found.", subject))
		return
	}
	if rejected {
		writeJSON(w, map[string]interface{}{
			"is_compatible": false,
			"messages":      []string{"reader field 'department' has no default value"},
		})
		return
	}
	writeJSON(w, map[string]interface{}{"is_compatible": true})
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	mode := s.Compatibility(r.PathValue("subject"))
	if mode == "" {
		mode = "BACKWARD"
	}
	writeJSON(w, map[string]interface{}{"compatibilityLevel": mode})
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Compatibility string `json:"compatibility"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Compatibility == "" {
		writeError(w, http.StatusUnprocessableEntity, 42203, "Invalid compatibility level")
		return
	}

	s.mu.Lock()
	s.compatibility[r.PathValue("subject")] = req.Compatibility
	s.mu.Unlock()

	writeJSON(w, map[string]interface{}{"compatibility": req.Compatibility})
}

// idOf must be called with s.mu held.
func (s *Server) idOf(schema string) (int, bool) {
	for id, existing := range s.schemas {
		if existing == schema {
			return id, true
		}
	}
	return 0, false
}

func contains(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func compact(schema string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(schema)); err != nil {
		return schema
	}
	return buf.String()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error_code": code,
		"message":    message,
	})
}
