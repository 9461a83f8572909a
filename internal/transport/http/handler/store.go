package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/flash"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/middleware"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/view"
	"github.com/ErlanBelekov/store-finder/internal/upload"
	"github.com/ErlanBelekov/store-finder/internal/usecase"
	"github.com/gin-gonic/gin"
)

type storeUsecaser interface {
	CreateStore(ctx context.Context, input usecase.CreateStoreInput) (*domain.Store, error)
	GetForEdit(ctx context.Context, storeID, actorID string) (*domain.Store, error)
	UpdateStore(ctx context.Context, input usecase.UpdateStoreInput) (*domain.Store, error)
	ListStores(ctx context.Context, page int) (*usecase.StorePage, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Store, error)
	GetByTag(ctx context.Context, tag string) (*usecase.TagResult, error)
	Search(ctx context.Context, query string) ([]*domain.Store, error)
	Near(ctx context.Context, lng, lat float64) ([]*domain.Store, error)
	ToggleHeart(ctx context.Context, userID, storeID string) (*domain.User, error)
	Hearted(ctx context.Context, userID string) ([]*domain.Store, error)
	Top(ctx context.Context) ([]*domain.RankedStore, error)
}

type photoProcessor interface {
	Process(ctx context.Context, f *upload.File) (string, error)
	Discard(ctx context.Context, name string)
}

type StoreHandler struct {
	storeUsecase storeUsecaser
	photos       photoProcessor
	views        view.Renderer
	logger       *slog.Logger
}

func NewStoreHandler(storeUsecase storeUsecaser, photos photoProcessor, views view.Renderer, logger *slog.Logger) *StoreHandler {
	return &StoreHandler{
		storeUsecase: storeUsecase,
		photos:       photos,
		views:        views,
		logger:       logger.With("component", "store_handler"),
	}
}

// GET /, /stores, /stores/page/:page
func (h *StoreHandler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		page = 1
	}

	res, err := h.storeUsecase.ListStores(c.Request.Context(), page)
	if err != nil {
		var perr *domain.PageOutOfRangeError
		if errors.As(err, &perr) {
			flash.Add(c, flash.Info, fmt.Sprintf(msgPageOutOfRange, perr.Requested, perr.Last))
			redirect(c, fmt.Sprintf("/stores/page/%d", perr.Last))
			return
		}
		internalError(c, h.views, h.logger, "list stores", err)
		return
	}

	h.views.Render(c, http.StatusOK, "stores", gin.H{
		"title":  "Stores",
		"stores": res.Stores,
		"page":   res.Page,
		"count":  res.Count,
		"pages":  res.Pages,
	})
}

// GET /add
func (h *StoreHandler) AddForm(c *gin.Context) {
	h.views.Render(c, http.StatusOK, "editStore", gin.H{"title": "Add Store"})
}

// POST /add
func (h *StoreHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	photo, ok := h.processPhoto(c)
	if !ok {
		return
	}

	s, err := h.storeUsecase.CreateStore(c.Request.Context(), usecase.CreateStoreInput{
		AuthorID:   user.ID,
		StoreInput: storeForm(c, photo),
	})
	if err != nil {
		h.discardPhoto(c, photo)
		if flashValidation(c, err) {
			return
		}
		internalError(c, h.views, h.logger, "create store", err)
		return
	}

	flash.Add(c, flash.Success, fmt.Sprintf(msgStoreCreated, s.Name))
	redirect(c, "/store/"+s.Slug)
}

// GET /stores/:id/edit
func (h *StoreHandler) EditForm(c *gin.Context) {
	user := middleware.CurrentUser(c)

	s, err := h.storeUsecase.GetForEdit(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		h.storeError(c, "edit store", err)
		return
	}

	h.views.Render(c, http.StatusOK, "editStore", gin.H{"title": "Edit " + s.Name, "store": s})
}

// POST /add/:id
func (h *StoreHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := c.Param("id")

	// Reject non-owners before anything is written to photo storage.
	if _, err := h.storeUsecase.GetForEdit(c.Request.Context(), id, user.ID); err != nil {
		h.storeError(c, "update store", err)
		return
	}

	photo, ok := h.processPhoto(c)
	if !ok {
		return
	}

	s, err := h.storeUsecase.UpdateStore(c.Request.Context(), usecase.UpdateStoreInput{
		ID:         id,
		ActorID:    user.ID,
		StoreInput: storeForm(c, photo),
	})
	if err != nil {
		h.discardPhoto(c, photo)
		if flashValidation(c, err) {
			return
		}
		h.storeError(c, "update store", err)
		return
	}

	flash.Add(c, flash.Success, fmt.Sprintf(msgStoreUpdated, s.Name))
	redirect(c, "/stores/"+s.ID+"/edit")
}

// GET /store/:slug
func (h *StoreHandler) Show(c *gin.Context) {
	s, err := h.storeUsecase.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.storeError(c, "get store", err)
		return
	}
	h.views.Render(c, http.StatusOK, "store", gin.H{"title": s.Name, "store": s})
}

// GET /tags, /tags/:tag
func (h *StoreHandler) Tags(c *gin.Context) {
	res, err := h.storeUsecase.GetByTag(c.Request.Context(), c.Param("tag"))
	if err != nil {
		internalError(c, h.views, h.logger, "stores by tag", err)
		return
	}
	h.views.Render(c, http.StatusOK, "tag", gin.H{
		"title":  "Tags",
		"tag":    res.Tag,
		"tags":   res.Tags,
		"stores": res.Stores,
	})
}

// GET /top
func (h *StoreHandler) Top(c *gin.Context) {
	ranked, err := h.storeUsecase.Top(c.Request.Context())
	if err != nil {
		internalError(c, h.views, h.logger, "top stores", err)
		return
	}
	h.views.Render(c, http.StatusOK, "topStores", gin.H{"title": "★ Top Stores!", "stores": ranked})
}

// GET /map
func (h *StoreHandler) Map(c *gin.Context) {
	h.views.Render(c, http.StatusOK, "map", gin.H{"title": "Map"})
}

// GET /hearts
func (h *StoreHandler) Hearts(c *gin.Context) {
	user := middleware.CurrentUser(c)

	stores, err := h.storeUsecase.Hearted(c.Request.Context(), user.ID)
	if err != nil {
		internalError(c, h.views, h.logger, "hearted stores", err)
		return
	}
	h.views.Render(c, http.StatusOK, "stores", gin.H{"title": "Hearted Stores", "stores": stores})
}

// ---- JSON API ----

type mapStoreResponse struct {
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Location    domain.Location `json:"location"`
	Photo       *string         `json:"photo"`
}

// GET /api/search?q=
func (h *StoreHandler) Search(c *gin.Context) {
	stores, err := h.storeUsecase.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "search stores", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, stores)
}

// GET /api/stores/near?lng=&lat=
func (h *StoreHandler) Near(c *gin.Context) {
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	if errLng != nil || errLat != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCoords})
		return
	}

	stores, err := h.storeUsecase.Near(c.Request.Context(), lng, lat)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "near stores", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	out := make([]mapStoreResponse, len(stores))
	for i, s := range stores {
		out[i] = mapStoreResponse{
			Slug:        s.Slug,
			Name:        s.Name,
			Description: s.Description,
			Location:    s.Location,
			Photo:       s.Photo,
		}
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/stores/:id/heart
func (h *StoreHandler) Heart(c *gin.Context) {
	user := middleware.CurrentUser(c)

	updated, err := h.storeUsecase.ToggleHeart(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errStoreNotFound})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "toggle heart", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ---- helpers ----

// processPhoto runs the optional "photo" upload. On a rejected file it flashes the
// reason, redirects back and reports false.
func (h *StoreHandler) processPhoto(c *gin.Context) (*string, bool) {
	fh, err := c.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, true
		}
		flash.Add(c, flash.Error, msgPhotoUnreadable)
		middleware.RedirectBack(c)
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		internalError(c, h.views, h.logger, "open upload", err)
		return nil, false
	}
	defer f.Close()

	name, err := h.photos.Process(c.Request.Context(), &upload.File{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	switch {
	case errors.Is(err, upload.ErrUnsupportedType):
		flash.Add(c, flash.Error, msgFiletypeRejected)
		middleware.RedirectBack(c)
		return nil, false
	case errors.Is(err, upload.ErrUnreadableImage):
		flash.Add(c, flash.Error, msgPhotoUnreadable)
		middleware.RedirectBack(c)
		return nil, false
	case err != nil:
		internalError(c, h.views, h.logger, "process photo", err)
		return nil, false
	}

	if name == "" {
		return nil, true
	}
	return &name, true
}

// discardPhoto drops a photo stored for a record that was not saved.
func (h *StoreHandler) discardPhoto(c *gin.Context, photo *string) {
	if photo != nil {
		h.photos.Discard(c.Request.Context(), *photo)
	}
}

// storeForm reads the store fields posted by the edit form.
func storeForm(c *gin.Context, photo *string) usecase.StoreInput {
	in := usecase.StoreInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Tags:        c.PostFormArray("tags"),
		Address:     c.PostForm("location[address]"),
		Photo:       photo,
	}
	in.Lng = parseCoord(c.PostForm("location[coordinates][0]"))
	in.Lat = parseCoord(c.PostForm("location[coordinates][1]"))
	return in
}

func parseCoord(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}

func (h *StoreHandler) storeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotOwner):
		renderError(c, h.views, http.StatusForbidden, errForbidden)
	case errors.Is(err, domain.ErrStoreNotFound):
		NotFound(h.views)(c)
	default:
		internalError(c, h.views, h.logger, op, err)
	}
}
