package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fieldops/internal/storage"
)

// ObjectStore is the storage surface the file endpoints use.
type ObjectStore interface {
	GenerateUploadHandle(ctx context.Context) (storage.Handle, error)
	Upload(ctx context.Context, handle string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, ref string) ([]byte, storage.Object, error)
}

// FileHandler exposes the two-step upload flow: get a handle, then post
// the file against it.  The returned reference id is what project
// documents store.
type FileHandler struct {
	Store    ObjectStore
	MaxBytes int64
}

func NewFileHandler(store ObjectStore, maxBytes int64) *FileHandler {
	return &FileHandler{Store: store, MaxBytes: maxBytes}
}

func (h *FileHandler) NewHandle(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	hd, err := h.Store.GenerateUploadHandle(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, hd)
}

// Upload reads the multipart field "file" and stores it under :handle.
func (h *FileHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	if h.MaxBytes > 0 && fh.Size > h.MaxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": storage.ErrTooLarge.Error()})
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "cannot read file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return badRequest(c, "cannot read file")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	ref, err := h.Store.Upload(ctx, c.Param("handle"), data, fh.Header.Get(echo.HeaderContentType))
	if err != nil {
		return storageFail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reference_id": ref})
}

// Open serves the stored bytes with their recorded content type.
func (h *FileHandler) Open(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	data, obj, err := h.Store.Open(ctx, c.Param("ref"))
	if err != nil {
		return storageFail(c, err)
	}
	return c.Blob(http.StatusOK, obj.ContentType, data)
}

func storageFail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrHandleInvalid), errors.Is(err, storage.ErrEmpty):
		return badRequest(c, err.Error())
	case errors.Is(err, storage.ErrTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": err.Error()})
	case errors.Is(err, storage.ErrTypeNotAllowed):
		return c.JSON(http.StatusUnsupportedMediaType, echo.Map{"error": err.Error()})
	case errors.Is(err, storage.ErrObjectNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}
	return fail(c, err)
}
