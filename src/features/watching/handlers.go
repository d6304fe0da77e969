package watching

import (
	"errors"
	"io"
	"log/slog"
	"strconv"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/features/jobs"
	"github.com/gofiber/fiber/v2"
)

// Handler is the HTTP handler for the watching feature.
type Handler struct {
	service *Service
	jobs    jobs.JobService
	history exchange.FileLogHistory
}

// NewHandler creates a new handler for the watching feature. history may be nil.
func NewHandler(service *Service, jobService jobs.JobService, history exchange.FileLogHistory) *Handler {
	return &Handler{service: service, jobs: jobService, history: history}
}

type startRequest struct {
	Config  exchange.WatcherConfig `json:"config"`
	Context exchange.StoreContext  `json:"context"`
}

type manualImportRequest struct {
	StoreID  string                 `json:"storeId"`
	Path     string                 `json:"path"`
	TypeHint string                 `json:"typeHint"`
	Context  *exchange.StoreContext `json:"context"`
}

// errorStatus maps error codes to HTTP status codes.
func errorStatus(err error) int {
	switch exchange.CodeOf(err) {
	case exchange.CodeWatcherNotFound, exchange.CodeFileNotFound:
		return fiber.StatusNotFound
	case exchange.CodeWatcherAlreadyRunning, exchange.CodeDuplicateFile:
		return fiber.StatusConflict
	case exchange.CodeInvalidPath, exchange.CodePathTraversal:
		return fiber.StatusBadRequest
	case exchange.CodePermissionDenied:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func sendError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("Handler: request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"code": exchange.CodeOf(err), "error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"code": exchange.CodeInvalidPath, "error": msg})
}

// ListWatchers returns the status of every known watcher.
func (h *Handler) ListWatchers(c *fiber.Ctx) error {
	return c.JSON(h.service.GetAllStatuses())
}

// GetWatcher returns the status of one watcher.
func (h *Handler) GetWatcher(c *fiber.Ctx) error {
	status, ok := h.service.GetStatus(c.Params("store"))
	if !ok {
		return sendError(c, exchange.ErrWatcherNotFound)
	}
	return c.JSON(status)
}

// StartWatcher registers and starts a watcher.
func (h *Handler) StartWatcher(c *fiber.Ctx) error {
	var req startRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body: "+err.Error())
	}
	if req.Context.StoreID == "" {
		req.Context.StoreID = req.Config.StoreID
	}
	if err := h.service.StartWatching(c.UserContext(), req.Config, req.Context); err != nil {
		return sendError(c, err)
	}
	status, _ := h.service.GetStatus(req.Config.StoreID)
	return c.Status(fiber.StatusCreated).JSON(status)
}

// StopWatcher stops a running watcher.
func (h *Handler) StopWatcher(c *fiber.Ctx) error {
	storeID := c.Params("store")
	if err := h.service.StopWatching(storeID); err != nil {
		return sendError(c, err)
	}
	status, _ := h.service.GetStatus(storeID)
	return c.JSON(status)
}

// StopAll stops every running watcher.
func (h *Handler) StopAll(c *fiber.Ctx) error {
	h.service.StopAll()
	return c.JSON(h.service.GetAllStatuses())
}

// RestartWatcher restarts a watcher with its stored config and context.
func (h *Handler) RestartWatcher(c *fiber.Ctx) error {
	storeID := c.Params("store")
	if err := h.service.RestartWatcher(c.UserContext(), storeID); err != nil {
		return sendError(c, err)
	}
	status, _ := h.service.GetStatus(storeID)
	return c.JSON(status)
}

// UpdateConfig stores a config for the next restart.
func (h *Handler) UpdateConfig(c *fiber.Ctx) error {
	var cfg exchange.WatcherConfig
	if err := c.BodyParser(&cfg); err != nil {
		return badRequest(c, "invalid body: "+err.Error())
	}
	cfg.StoreID = c.Params("store")
	if err := h.service.UpdateConfig(cfg); err != nil {
		return sendError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetContext stores the context of a store.
func (h *Handler) SetContext(c *fiber.Ctx) error {
	var sc exchange.StoreContext
	if err := c.BodyParser(&sc); err != nil {
		return badRequest(c, "invalid body: "+err.Error())
	}
	sc.StoreID = c.Params("store")
	if err := h.service.SetContext(sc); err != nil {
		return sendError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// History returns the latest file log rows of a store.
func (h *Handler) History(c *fiber.Ctx) error {
	if h.history == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "history is not available"})
	}
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 {
		return badRequest(c, "limit must be a positive integer")
	}
	entries, err := h.history.RecentEntries(c.UserContext(), c.Params("store"), limit)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(entries)
}

// ManualImport queues a manual import job.
func (h *Handler) ManualImport(c *fiber.Ctx) error {
	var req manualImportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body: "+err.Error())
	}
	if req.StoreID == "" || req.Path == "" {
		return badRequest(c, "storeId and path are required")
	}
	var typeHint exchange.DocumentType
	if req.TypeHint != "" {
		dt, ok := exchange.ParseDocumentType(req.TypeHint)
		if !ok {
			return badRequest(c, "unknown typeHint "+req.TypeHint)
		}
		typeHint = dt
	}
	jobID, err := h.service.StartManualImport(h.jobs, req.StoreID, req.Path, typeHint, req.Context)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": jobID})
}

// ImportContent imports a multipart "file" or the raw body named by the "name" query parameter.
func (h *Handler) ImportContent(c *fiber.Ctx) error {
	storeID := c.Params("store")
	content, name, err := readContent(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	sc := exchange.FallbackContext(storeID)
	if _, _, registered, ok := h.service.registered(storeID); ok {
		sc = registered
	}
	if v := c.Query("company_id"); v != "" {
		sc.CompanyID = v
	}
	if v := c.Query("pos_integration_id"); v != "" {
		sc.POSIntegrationID = v
	}
	if v := c.Query("user_id"); v != "" {
		sc.UserID = v
	}

	result, err := h.service.ProcessContent(c.UserContext(), content, name, sc)
	if err != nil {
		return sendError(c, err)
	}
	status := fiber.StatusOK
	if result.Status == exchange.StatusFailed {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(result)
}

func readContent(c *fiber.Ctx) ([]byte, string, error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			return nil, "", err
		}
		return content, fh.Filename, nil
	}
	name := c.Query("name")
	if name == "" {
		return nil, "", errors.New("name query parameter is required for raw uploads")
	}
	body := c.Body()
	content := make([]byte, len(body))
	copy(content, body)
	return content, name, nil
}
