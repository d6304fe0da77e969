package jobs

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

// JobResponse is a wrapper for the Job struct to include API links
type JobResponse struct {
	*Job
	Links map[string]string `json:"_links"`
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func links(baseURL string, job *Job) map[string]string {
	return map[string]string{
		"self": fmt.Sprintf("%s/jobs/%s", baseURL, job.ID),
		"logs": fmt.Sprintf("%s/jobs/%s/logs", baseURL, job.ID),
	}
}

func (h *Handler) HandleJobStatus(c *fiber.Ctx) error {
	job, exists := h.service.GetJob(c.Params("id"))
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrJobNotFound.Error()})
	}
	return c.JSON(&JobResponse{Job: job, Links: links(c.BaseURL(), job)})
}

func (h *Handler) HandleJobLogs(c *fiber.Ctx) error {
	job, exists := h.service.GetJob(c.Params("id"))
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrJobNotFound.Error()})
	}

	if job.LogPath == "" {
		return c.SendString("No logs for this job.")
	}

	logContent, err := os.ReadFile(job.LogPath)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to read log file.")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(logContent)
}

func (h *Handler) HandleJobList(c *fiber.Ctx) error {
	jobs := h.service.GetJobs()
	status := JobStatus(c.Query("status"))
	baseURL := c.BaseURL()
	responses := make([]*JobResponse, 0, len(jobs))
	for _, job := range jobs {
		if status != "" && job.Status != status {
			continue
		}
		responses = append(responses, &JobResponse{Job: job, Links: links(baseURL, job)})
	}
	return c.JSON(responses)
}

func (h *Handler) HandleCancelJob(c *fiber.Ctx) error {
	jobID := c.Params("id")

	if err := h.service.CancelJob(jobID); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	job, _ := h.service.GetJob(jobID)
	return c.JSON(&JobResponse{Job: job, Links: links(c.BaseURL(), job)})
}

func (h *Handler) HandleCleanupJobs(c *fiber.Ctx) error {
	maxAge := 24 * time.Hour
	if raw := c.Query("max_age"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid max_age: " + err.Error()})
		}
		maxAge = d
	}
	removed := h.service.CleanupOldJobs(maxAge)
	return c.JSON(fiber.Map{"status": "cleanup completed", "removed": removed})
}
