package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	formcards "github.com/goliatone/go-formcards"
	"github.com/goliatone/go-formcards/components/enumoptions"
	"github.com/goliatone/go-formcards/pkg/compose"
	"github.com/goliatone/go-formcards/pkg/enums"
	"github.com/goliatone/go-formcards/pkg/transport"
)

const sessionCookie = "fc_session"

type server struct {
	engine    *formcards.Engine
	catalogID string
	seed      map[string]any
	fixtures  *enumoptions.Component

	mu       sync.Mutex
	sessions map[string]map[string]any
}

func newServer(engine *formcards.Engine, catalogID string, seed map[string]any, fixtures *enumoptions.Component) *server {
	return &server{
		engine:    engine,
		catalogID: catalogID,
		seed:      seed,
		fixtures:  fixtures,
		sessions:  make(map[string]map[string]any),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if s.fixtures != nil {
		if _, err := s.fixtures.RegisterRoutes(r, "/"); err != nil {
			log.Printf("preview: mount enum fixtures: %v", err)
		}
	}

	r.Get("/", s.handleCatalog)
	r.Post("/refresh", s.handleRefresh)
	r.Route("/cards/{cardID}", func(r chi.Router) {
		r.Get("/", s.handleCard)
		r.Post("/", s.handleSubmit)
		r.Get("/values", s.handleValues)
	})
	return r
}

// session returns the values bound to the caller, creating a session from
// the seed on first use.
func (s *server) session(w http.ResponseWriter, r *http.Request) (string, map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if root, ok := s.sessions[cookie.Value]; ok {
			return cookie.Value, root
		}
	}
	// Values are never mutated in place, so sessions can share the seed.
	id := uuid.NewString()
	root := s.seed
	s.sessions[id] = root
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	return id, root
}

func (s *server) store(id string, root map[string]any) {
	s.mu.Lock()
	s.sessions[id] = root
	s.mu.Unlock()
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	_, root := s.session(w, r)
	page, err := s.engine.RenderHTML(r.Context(), s.catalogID, formcards.Request{
		CatalogID: s.catalogID,
		Values:    root,
		Settle:    true,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeHTML(w, page)
}

func (s *server) handleCard(w http.ResponseWriter, r *http.Request) {
	_, root := s.session(w, r)
	cardID := chi.URLParam(r, "cardID")
	mode := formcards.ModeReadOnly
	if r.URL.Query().Get("mode") == "edit" {
		mode = formcards.ModeEdit
	}

	cards, err := s.engine.Compose(r.Context(), formcards.Request{
		CatalogID: s.catalogID,
		CardID:    cardID,
		Values:    root,
		Mode:      mode,
		Collapse:  collapseFromQuery(cardID, r.URL.Query()["open"]),
		Settle:    true,
		OnChange:  func(string, any) {},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	renderer := s.engine.HTML()
	var page []byte
	if mode == formcards.ModeEdit {
		page, err = renderer.RenderForm(r.Context(), cards[0].Title, "/cards/"+cardID+"?mode=edit", cards)
	} else {
		page, err = renderer.RenderPage(r.Context(), cards[0].Title, cards)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeHTML(w, page)
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, root := s.session(w, r)
	cardID := chi.URLParam(r, "cardID")
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	card, err := s.engine.Card(r.Context(), s.catalogID, cardID)
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := applyForm(r.Context(), s.engine.Composer(), card, root, r.PostForm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.store(id, updated)

	target := "/cards/" + cardID
	if strings.HasPrefix(r.PostForm.Get("_action"), "add:") || strings.HasPrefix(r.PostForm.Get("_action"), "remove:") {
		target += "?mode=edit"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *server) handleValues(w http.ResponseWriter, r *http.Request) {
	_, root := s.session(w, r)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(root)
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.engine.Refresh(r.Context(), s.catalogID); err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func collapseFromQuery(cardID string, open []string) compose.CollapseState {
	if len(open) == 0 {
		return nil
	}
	state := compose.CollapseMap{}
	for _, sectionID := range open {
		state[cardID+"/"+sectionID] = true
	}
	return state
}

func writeHTML(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var fetchErr *transport.SchemaFetchError
	switch {
	case errors.Is(err, formcards.ErrCardNotFound), transport.IsNotFound(err):
		status = http.StatusNotFound
	case errors.As(err, &fetchErr) && fetchErr.Status >= 400:
		status = http.StatusBadGateway
	}
	http.Error(w, err.Error(), status)
}

// selfEnumFetcher points enum requests at this server's fixture routes.
func selfEnumFetcher(addr string) enums.Fetcher {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return enums.NewHTTPFetcher(fmt.Sprintf("http://%s", host))
}
