package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/fleetbook/fleetbook/internal/platform/httpx"
	"github.com/fleetbook/fleetbook/internal/shared"
)

// maxUploadBytes bounds bundle and workbook uploads.
const maxUploadBytes = 64 << 20

// Handler serves backup downloads and restores.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Export(r.Context())
	if err != nil {
		httpx.Fail(w, h.logger, "backup export failed", err)
		return
	}
	attachment(w, fmt.Sprintf("fleetbook-backup-%s.json", b.ExportedAt.Format("20060102-150405")))
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Export(r.Context())
	if err != nil {
		httpx.Fail(w, h.logger, "backup export failed", err)
		return
	}
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, b); err != nil {
		httpx.Fail(w, h.logger, "render backup workbook failed", err)
		return
	}
	w.Header().Set("Content-Type", workbookType())
	attachment(w, fmt.Sprintf("fleetbook-backup-%s.xlsx", b.ExportedAt.Format("20060102-150405")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	if err := confirmed(r); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var b Bundle
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err := dec.Decode(&b); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed backup: %v", shared.ErrValidation, err))
		return
	}
	h.restore(w, r, b)
}

func (h *Handler) ImportWorkbook(w http.ResponseWriter, r *http.Request) {
	if err := confirmed(r); err != nil {
		httpx.RespondError(w, err)
		return
	}
	body, err := upload(w, r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer func() { _ = body.Close() }()
	b, err := ReadWorkbook(body)
	if err != nil {
		httpx.Fail(w, h.logger, "read backup workbook failed", err)
		return
	}
	h.restore(w, r, b)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request, b Bundle) {
	st, err := h.service.Import(r.Context(), b)
	if err != nil {
		httpx.Fail(w, h.logger, "backup import failed", err)
		return
	}
	h.logger.Info("backup imported", slog.Int("invoices", st.Invoices), slog.Int("payments", st.Payments),
		slog.Int64("actor", shared.ActorID(r.Context())))
	httpx.JSON(w, http.StatusOK, map[string]any{"imported": st})
}

func confirmed(r *http.Request) error {
	if r.URL.Query().Get("confirm") != "true" {
		return fmt.Errorf("%w: import replaces all data; repeat with confirm=true", shared.ErrValidation)
	}
	return nil
}

// upload returns the "file" part of a multipart form or the raw body.
func upload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, nil
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: multipart field file: %v", shared.ErrValidation, err)
	}
	return file, nil
}

func attachment(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
}

func workbookType() string {
	if t := mime.TypeByExtension(".xlsx"); t != "" {
		return t
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
