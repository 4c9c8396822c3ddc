package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/emiliopalmerini/mtranscript/internal/adapters/logging"
	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/interleave"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
	"github.com/emiliopalmerini/mtranscript/internal/replay"
	"github.com/emiliopalmerini/mtranscript/internal/stats"
	"github.com/emiliopalmerini/mtranscript/internal/turns"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
	// blockWorkers bounds the per-turn interleaving fan-out of Get.
	blockWorkers = 4
)

var errNotFound = errors.New("session not found")

// ConfigResolver supplies the agent config lookup for one request.
type ConfigResolver interface {
	Requester(ctx context.Context) turns.RequestAgentConfig
}

type Handler struct {
	events  ports.EventRepository
	configs ConfigResolver
	cache   *stats.Cache
	limits  *domain.SessionLimits
	logger  ports.Logger
}

// Option configures a Handler.
type Option func(*Handler)

func WithConfigResolver(c ConfigResolver) Option { return func(h *Handler) { h.configs = c } }
func WithCache(c *stats.Cache) Option { return func(h *Handler) { h.cache = c } }
func WithLimits(l *domain.SessionLimits) Option { return func(h *Handler) { h.limits = l } }
func WithLogger(l ports.Logger) Option { return func(h *Handler) { h.logger = l } }

func NewHandler(events ports.EventRepository, opts ...Option) *Handler {
	h := &Handler{events: events, logger: logging.NoOp{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	sessions, err := h.events.ListSessions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionsData{Sessions: sessions, Limit: limit})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, ok := h.reconstruct(w, r)
	if !ok {
		return
	}

	detail := SessionDetail{View: view, Blocks: make(map[string]interleave.Result, len(view.Turns))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(r.Context())
	g.SetLimit(blockWorkers)
	for _, t := range view.Turns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := interleave.Blocks(t)
			mu.Lock()
			detail.Blocks[t.ID] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	view, ok := h.reconstruct(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.Stats)
}

func (h *Handler) Turns(w http.ResponseWriter, r *http.Request) {
	view, ok := h.reconstruct(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.Turns)
}

func (h *Handler) Blocks(w http.ResponseWriter, r *http.Request) {
	view, ok := h.reconstruct(w, r)
	if !ok {
		return
	}

	var opts []interleave.Option
	if r.URL.Query().Get("hideDelegates") == "true" {
		opts = append(opts, interleave.WithToolFilter(func(c domain.ToolCall) bool { return !c.IsDelegate() }))
	}

	res, found := view.Blocks(chi.URLParam(r, "turnID"), opts...)
	if !found {
		writeError(w, http.StatusNotFound, errors.New("turn not found"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Delegations(w http.ResponseWriter, r *http.Request) {
	view, ok := h.reconstruct(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.Delegations)
}

// reconstruct loads the session named in the route and rebuilds its view.
// On failure it writes the response and returns false.
func (h *Handler) reconstruct(w http.ResponseWriter, r *http.Request) (replay.View, bool) {
	ctx := r.Context()

	timing, err := stats.ParseTiming(r.URL.Query().Get("timing"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return replay.View{}, false
	}

	id := chi.URLParam(r, "id")
	events, err := h.events.ListBySession(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return replay.View{}, false
	}
	if len(events) == 0 {
		writeError(w, http.StatusNotFound, errNotFound)
		return replay.View{}, false
	}

	opts := replay.Options{Limits: h.limits, Timing: timing, Logger: h.logger, Cache: h.cache}
	if h.configs != nil {
		opts.RequestAgentConfig = h.configs.Requester(ctx)
	}
	view := replay.Reconstruct(events, opts)
	if view.SessionID == "" {
		view.SessionID = id
	}
	return view, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
