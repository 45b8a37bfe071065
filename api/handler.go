package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/jdziat/simple-durable-cron/pkg/core"
	"github.com/jdziat/simple-durable-cron/pkg/logging"
	"github.com/jdziat/simple-durable-cron/pkg/registry"
	"github.com/jdziat/simple-durable-cron/pkg/security"
	"github.com/jdziat/simple-durable-cron/pkg/storage"
)

// HashHeader carries the pre-shared security hash.
const HashHeader = "X-Cron-Security-Hash"

// HashParam is the query parameter alternative to HashHeader.
const HashParam = "hash"

// MaxLimit caps the page size of GET /instances.
const MaxLimit = 500

// Store is the read side the API needs. *storage.GormStorage implements it.
type Store interface {
	SearchInstances(ctx context.Context, filter storage.InstanceFilter) ([]*core.JobInstance, int64, error)
	GetInstance(ctx context.Context, id string) (*core.JobInstance, error)
	StatusCounts(ctx context.Context) (map[core.Status]int64, error)
}

// InstanceList is the body of GET /instances.
type InstanceList struct {
	Instances []*core.JobInstance `json:"instances"`
	Total     int64               `json:"total"`
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
}

// StatusReport is the body of GET /status.
type StatusReport struct {
	Counts map[core.Status]int64 `json:"counts"`
	Jobs   int                   `json:"jobs"`
}

type errorBody struct {
	Error string `json:"error"`
}

type server struct {
	store Store
	reg   *registry.Registry
	hash  string
	log   *zap.SugaredLogger
}

// Handler creates the status API handler. Every request must present hash
// in the X-Cron-Security-Hash header or the hash query parameter; an empty
// hash rejects every request.
//
// Usage:
//
//	mux.Handle("/cron/", http.StripPrefix("/cron", api.Handler(store, reg, hash)))
func Handler(store Store, reg *registry.Registry, hash string, opts ...Option) http.Handler {
	cfg := &config{log: logging.Nop()}
	for _, opt := range opts {
		opt.apply(cfg)
	}

	s := &server{store: store, reg: reg, hash: hash, log: cfg.log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /instances", s.listInstances)
	mux.HandleFunc("GET /instances/{id}", s.getInstance)
	mux.HandleFunc("GET /status", s.status)

	var h http.Handler = s.authorize(mux)
	h = readOnly(h)

	// HTTP/2 over cleartext lets clients multiplex polling requests.
	h = h2c.NewHandler(h, &http2.Server{})

	if cfg.middleware != nil {
		return cfg.middleware(h)
	}
	return h
}

func readOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(HashHeader)
		if presented == "" {
			presented = r.URL.Query().Get(HashParam)
		}
		if !security.VerifyToken(s.hash, presented) {
			writeError(w, http.StatusUnauthorized, "invalid security hash")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) listInstances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.InstanceFilter{
		Status: core.Status(q.Get("status")),
		Code:   q.Get("code"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(string(filter.Status)))
		return
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit"), storage.DefaultSearchLimit); err != nil || filter.Limit < 1 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset, err = intParam(q.Get("offset"), 0); err != nil || filter.Offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	list, total, err := s.store.SearchInstances(r.Context(), filter)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if list == nil {
		list = []*core.JobInstance{}
	}

	writeJSON(w, http.StatusOK, InstanceList{
		Instances: list,
		Total:     total,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	})
}

func (s *server) getInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := s.store.GetInstance(r.Context(), r.PathValue("id"))
	if errors.Is(err, core.ErrInstanceNotFound) {
		writeError(w, http.StatusNotFound, "instance not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.StatusCounts(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}

	report := StatusReport{Counts: counts}
	if s.reg != nil {
		report.Jobs = s.reg.Count()
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) internalError(w http.ResponseWriter, err error) {
	s.log.Errorw("status api query failed", logging.FieldError, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}
