package templates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/harshssd/HyperFit-sub001/internal/auth"
	"github.com/harshssd/HyperFit-sub001/internal/telemetry/metrics"
	"github.com/harshssd/HyperFit-sub001/internal/telemetry/tracing"
	"github.com/harshssd/HyperFit-sub001/pkg"
)

type usernameResolver interface {
	Get(ctx context.Context, id string) (*auth.User, error)
}

type Handler struct {
	catalog   *Catalog
	usersRepo usernameResolver
	metrics   *metrics.Manager
}

func NewHandler(catalog *Catalog, usersRepo usernameResolver, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		catalog:   catalog,
		usersRepo: usersRepo,
		metrics:   metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.handleList).Methods("GET", "OPTIONS").Name("list-templates")
	router.HandleFunc("", handler.handleSave).Methods("POST", "OPTIONS").Name("save-template")
	router.HandleFunc("/folders", handler.handleListFolders).Methods("GET", "OPTIONS").Name("list-folders")
	router.HandleFunc("/folders", handler.handleCreateFolder).Methods("POST", "OPTIONS").Name("create-folder")
	router.HandleFunc("/folders/{id}", handler.handleDeleteFolder).Methods("DELETE", "OPTIONS").Name("delete-folder")
	router.HandleFunc("/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("delete-template")
	router.HandleFunc("/{id}/favorite", handler.handleToggleFavorite).Methods("POST", "OPTIONS").Name("toggle-favorite")
	router.HandleFunc("/{id}/duplicate", handler.handleDuplicate).Methods("POST", "OPTIONS").Name("duplicate-template")
}

func ownerID(r *http.Request) (string, bool) {
	return auth.UserIDFromContext(r.Context())
}

func writeJson(w http.ResponseWriter, payload any, statusCode int) {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal templates response: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, payloadJson, statusCode)
}

type listResponse struct {
	Templates []Template      `json:"templates"`
	Folders   []Folder        `json:"folders"`
	Favorites map[string]bool `json:"favorites"`
}

// handleList refreshes the catalog from the store and applies the query
// filters. A store outage still yields a usable list (built-ins plus
// cached customs), never an error.
func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "templatesHandler.list")
	defer span.End()

	owner, ok := ownerID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	handler.catalog.FetchTemplates(ctx, owner)
	folders := handler.catalog.FetchFolders(ctx, owner)
	favorites := handler.catalog.FetchFavorites(ctx, owner)

	query := r.URL.Query()
	params := FilterParams{
		Query:         query.Get("q"),
		FavoritesOnly: query.Get("favorites") == "true",
	}
	if folderID := query.Get("folder"); folderID != "" {
		params.FolderID = &folderID
	}
	if tags := query.Get("tags"); tags != "" {
		params.Tags = strings.Split(tags, ",")
	}

	writeJson(w, listResponse{
		Templates: handler.catalog.Filter(owner, params),
		Folders:   folders,
		Favorites: favorites,
	}, http.StatusOK)
}

type saveTemplateRequest struct {
	Name      string   `json:"name"`
	Exercises []string `json:"exercises"`
	FolderID  *string  `json:"folder_id"`
	Tags      []string `json:"tags"`
}

func (handler *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "templatesHandler.save")
	defer span.End()

	owner, ok := ownerID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req saveTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("save template, unmarshal json params: %s", err)
		http.Error(w, "save template failed", http.StatusBadRequest)
		return
	}

	username := ""
	if user, err := handler.usersRepo.Get(ctx, owner); err == nil {
		username = user.DisplayName()
	}

	template, err := handler.catalog.SaveAsTemplate(ctx, owner, username, req.Name, req.Exercises, req.FolderID, req.Tags)
	if err != nil {
		if errors.Is(err, ErrBlankTemplateName) || errors.Is(err, ErrNoTemplateExercises) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// remote write failed but a local-only copy survives; hand it
		// back with 202 so the client knows it is not synced yet
		if template != nil {
			log.Errorf("save template for %s stored local-only: %s", owner, err)
			writeJson(w, template, http.StatusAccepted)
			return
		}
		log.Errorf("save template for %s: %s", owner, err)
		http.Error(w, "save template failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterTemplatesSaved.Inc()
	writeJson(w, template, http.StatusCreated)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "templatesHandler.delete")
	defer span.End()

	owner, ok := ownerID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if err := handler.catalog.DeleteTemplate(ctx, owner, mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		// local caches are pruned regardless; report the remote failure
		http.Error(w, "delete template failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "deleted")
}

func (handler *Handler) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "templatesHandler.toggleFavorite")
	defer span.End()

	owner, ok := ownerID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	nowFavorite := handler.catalog.ToggleFavorite(ctx, owner, mux.Vars(r)["id"])
	writeJson(w, map[string]bool{"favorite": nowFavorite}, http.StatusOK)
}

func (handler *Handler) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "templatesHandler.duplicate")
	defer span.End()

	owner, ok := ownerID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	template, err := handler.catalog.Get(ctx, owner, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		log.Errorf("duplicate template for %s: %s", owner, err)
		http.Error(w, "duplicate template failed", http.StatusInternalServerError)
		return
	}

	copied := handler.catalog.DuplicateTemplate(owner, *template)
	writeJson(w, copied, http.StatusCreated)
}

func (handler *Handler) handleListFolders(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "templatesHandler.listFolders")
	defer span.End()

	owner, ok := ownerID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	writeJson(w, handler.catalog.FetchFolders(ctx, owner), http.StatusOK)
}

type createFolderRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (handler *Handler) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "templatesHandler.createFolder")
	defer span.End()

	owner, ok := ownerID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("create folder, unmarshal json params: %s", err)
		http.Error(w, "create folder failed", http.StatusBadRequest)
		return
	}

	folder, err := handler.catalog.CreateFolder(ctx, owner, req.Name, req.Color, req.Icon)
	if err != nil {
		if errors.Is(err, ErrBlankFolderName) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("create folder for %s: %s", owner, err)
		http.Error(w, "create folder failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, folder, http.StatusCreated)
}

func (handler *Handler) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "templatesHandler.deleteFolder")
	defer span.End()

	owner, ok := ownerID(r)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if err := handler.catalog.DeleteFolder(ctx, owner, mux.Vars(r)["id"]); err != nil {
		log.Errorf("delete folder for %s: %s", owner, err)
		http.Error(w, "delete folder failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "deleted")
}
