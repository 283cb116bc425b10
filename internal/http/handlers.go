package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"sakelog/internal/core"
	"sakelog/internal/metrics"
	"sakelog/internal/storage"
)

// mapError translates domain and storage errors into HTTP statuses:
// validation failures are 422, missing rows 404, delete guards 409.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrNoBeverages),
		errors.Is(err, core.ErrNoAmount),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidAlcoholContent):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, storage.ErrCategoryNotFound),
		errors.Is(err, storage.ErrBeverageNotFound),
		errors.Is(err, storage.ErrPostNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, storage.ErrCategoryInUse),
		errors.Is(err, storage.ErrBeverageInUse):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
	}
	writeError(w, status, msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type createdResponse struct {
	ID int64 `json:"id"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req core.CreateCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.store.CreateCategory(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.DeleteCategory(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListBeverages(w http.ResponseWriter, r *http.Request) {
	var (
		bevs []core.Beverage
		err  error
	)

	if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
		categoryID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		bevs, err = s.store.ListBeveragesByCategory(r.Context(), categoryID)
	} else {
		bevs, err = s.store.ListBeverages(r.Context())
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if bevs == nil {
		bevs = []core.Beverage{}
	}
	writeJSON(w, http.StatusOK, bevs)
}

// handleGroupedBeverages returns the full catalog grouped by category in
// display order, the shape the post editor renders directly.
func (s *Server) handleGroupedBeverages(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	bevs, err := s.store.ListBeverages(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	groups := core.GroupBeverages(cats, bevs)
	if groups == nil {
		groups = []core.BeverageGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleCreateBeverage(w http.ResponseWriter, r *http.Request) {
	var req core.CreateBeverageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.store.CreateBeverage(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleUpdateBeverage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req core.CreateBeverageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.UpdateBeverage(r.Context(), id, req); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteBeverage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.DeleteBeverage(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	if posts, found := s.postsCache.Get("all"); found {
		metrics.CacheHitsTotal.WithLabelValues("posts").Inc()
		writeJSON(w, http.StatusOK, posts)
		return
	}
	metrics.CacheMissesTotal.WithLabelValues("posts").Inc()

	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if posts == nil {
		posts = []core.PostWithBeverages{}
	}

	s.postsCache.Set("all", posts)
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req core.CreatePostRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.posts.CreatePost(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.invalidatePosts()
	metrics.RecordPostWrite("create")
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req core.CreatePostRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.posts.UpdatePost(r.Context(), id, req); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.invalidatePosts()
	metrics.RecordPostWrite("update")
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.posts.DeletePost(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.invalidatePosts()
	metrics.RecordPostWrite("delete")
	writeJSON(w, http.StatusNoContent, nil)
}

type monthlyIntakeResponse struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	core.MonthlyAlcoholIntake
}

func (s *Server) handleMonthlyIntake(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	key := s.intakeKey(year, month)
	if intake, found := s.intakeCache.Get(key); found {
		metrics.CacheHitsTotal.WithLabelValues("intake").Inc()
		writeJSON(w, http.StatusOK, monthlyIntakeResponse{Year: year, Month: month, MonthlyAlcoholIntake: intake})
		return
	}
	metrics.CacheMissesTotal.WithLabelValues("intake").Inc()

	intake, err := s.store.MonthlyAlcoholIntake(r.Context(), year, month)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.intakeCache.Set(key, intake)
	writeJSON(w, http.StatusOK, monthlyIntakeResponse{Year: year, Month: month, MonthlyAlcoholIntake: intake})
}
