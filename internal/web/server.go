// Package web serves the todo list as an HTML page. Every request runs its
// own controller against a fresh viewstate, so the page is rendered from
// exactly the view calls the controller made.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
	"github.com/Makepad-fr/tada/internal/template"
	"github.com/Makepad-fr/tada/internal/viewstate"
)

type Server struct {
	store   *sqlitestore.Store
	history *controller.History
	log     *slog.Logger
	hub     *hub
	router  *mux.Router

	// mu serializes every use of the store and the console state below.
	mu       sync.Mutex
	traces   []controller.Trace
	sqlInput string
}

// NewServer wires routes and subscribes the websocket hub to the store.
func NewServer(store *sqlitestore.Store, history *controller.History, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		store:   store,
		history: history,
		log:     log,
		hub:     newHub(log),
	}
	store.AddEventListener(sqlitestore.EventCommit, func(ev sqlitestore.Event) { s.hub.broadcast(ev.Type) })
	store.AddEventListener(sqlitestore.EventUpdateAllData, func(ev sqlitestore.Event) { s.hub.broadcast(ev.Type) })

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.Methods(http.MethodGet).Path("/").HandlerFunc(s.page)
	r.Methods(http.MethodGet).Path("/{route:active|completed}").HandlerFunc(s.page)
	r.Methods(http.MethodGet).Path("/api/todos").HandlerFunc(s.apiTodos)
	r.Methods(http.MethodGet).Path("/events").HandlerFunc(s.events)

	r.Methods(http.MethodPost).Path("/todos").HandlerFunc(s.addItem)
	r.Methods(http.MethodPost).Path("/todos/toggle-all").HandlerFunc(s.toggleAll)
	r.Methods(http.MethodPost).Path("/todos/clear-completed").HandlerFunc(s.clearCompleted)
	r.Methods(http.MethodPost).Path("/todos/{id:[0-9]+}/toggle").HandlerFunc(s.toggleItem)
	r.Methods(http.MethodPost).Path("/todos/{id:[0-9]+}/title").HandlerFunc(s.editItem)
	r.Methods(http.MethodPost).Path("/todos/{id:[0-9]+}/delete").HandlerFunc(s.removeItem)
	r.Methods(http.MethodPost).Path("/sql").HandlerFunc(s.evalSQL)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.log.Info("handled", "method", r.Method, "url", r.URL.String(), "duration", m.Duration, "status", m.Code)
	})
}

// withController runs fn with a controller showing route, under the
// server lock, and returns the resulting projection.
func (s *Server) withController(ctx context.Context, route model.Route, fn func(*controller.Controller, *viewstate.State) error) (*viewstate.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := viewstate.New()
	st.Traces = s.traces
	ctrl := controller.New(s.store, st, s.history, s.log)
	defer ctrl.Close()

	if err := ctrl.SetView(ctx, route.Hash()); err != nil {
		return nil, err
	}
	var err error
	if fn != nil {
		err = fn(ctrl, st)
	}
	s.traces = st.Traces
	return st, err
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	route := model.ParseRoute(mux.Vars(r)["route"])
	editID, _ := strconv.ParseInt(r.URL.Query().Get("edit"), 10, 64)

	st, err := s.withController(r.Context(), route, func(_ *controller.Controller, st *viewstate.State) error {
		if editID > 0 {
			st.BeginEdit(editID)
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	s.mu.Lock()
	sqlInput := s.sqlInput
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = template.RenderPage(w, template.Page{
		Items:              st.Items,
		EditingID:          st.EditingID,
		Route:              st.Route,
		ItemsLeft:          st.ItemsLeft,
		AllCompleted:       st.AllCompleted,
		ShowMain:           st.ShowMain,
		ShowClearCompleted: st.ShowClearCompleted,
		SQLInput:           sqlInput,
		Traces:             st.Traces,
	})
	if err != nil {
		s.log.Error("render page", "err", err)
	}
}

type apiResponse struct {
	Route  model.Route  `json:"route"`
	Items  []model.Item `json:"items"`
	Counts model.Counts `json:"counts"`
}

func (s *Server) apiTodos(w http.ResponseWriter, r *http.Request) {
	route := model.ParseRoute(r.URL.Query().Get("route"))
	s.mu.Lock()
	items, err := s.store.Items(r.Context(), route)
	var counts model.Counts
	if err == nil {
		counts, err = s.store.ItemCounts(r.Context())
	}
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(apiResponse{Route: route, Items: items, Counts: counts}); err != nil {
		s.log.Error("encode todos", "err", err)
	}
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("failed to upgrade", "err", err)
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	log := s.log.With("session", c.id)
	log.Debug("page subscribed")
	s.hub.add(c)
	go c.writePump(log)
	c.readPump()
	s.hub.remove(c)
	log.Debug("page unsubscribed")
}

// mutate runs fn through a controller and redirects back to the page the
// form came from.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(context.Context, *controller.Controller) error) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	back := backRoute(r)
	if _, err := s.withController(r.Context(), back, func(c *controller.Controller, _ *viewstate.State) error {
		return fn(r.Context(), c)
	}); err != nil {
		s.fail(w, err)
		return
	}
	http.Redirect(w, r, back.Path(), http.StatusSeeOther)
}

// backRoute is the page a form was posted from: the explicit back field,
// else the referring path.
func backRoute(r *http.Request) model.Route {
	if b := r.PostFormValue("back"); b != "" {
		return model.ParseRoute(b)
	}
	if ref, err := url.Parse(r.Referer()); err == nil {
		return model.ParseRoute(ref.Path)
	}
	return model.RouteAll
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func formBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.PostFormValue(name))
	return b
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, c *controller.Controller) error {
		title := r.PostFormValue("title")
		if strings.TrimSpace(title) == "" {
			return nil
		}
		_, err := c.AddItem(ctx, title)
		return err
	})
}

func (s *Server) toggleAll(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, c *controller.Controller) error {
		return c.ToggleAll(ctx, formBool(r, "completed"))
	})
}

func (s *Server) clearCompleted(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, c *controller.Controller) error {
		return c.RemoveCompletedItems(ctx)
	})
}

func (s *Server) toggleItem(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, c *controller.Controller) error {
		return c.ToggleCompleted(ctx, pathID(r), formBool(r, "completed"))
	})
}

func (s *Server) editItem(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, c *controller.Controller) error {
		return c.EditItemSave(ctx, pathID(r), r.PostFormValue("title"))
	})
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, c *controller.Controller) error {
		return c.RemoveItem(ctx, pathID(r))
	})
}

// evalSQL never fails the request: errors are shown in the console trace.
func (s *Server) evalSQL(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, c *controller.Controller) error {
		sql := r.PostFormValue("sql")
		input := ""
		if err := c.EvalSQL(ctx, sql); err != nil {
			input = sql
		}
		s.sqlInput = input
		return nil
	})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case controller.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, sqlitestore.ErrEmptyTitle):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// Watch relays commits made by other processes to open pages. It blocks
// until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) error {
	return s.store.Watch(ctx, interval, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.store.Invalidate()
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
