package importer

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// Handler exposes the pipeline to the operator UI. Everything heavy runs on
// the job manager's background goroutine; these endpoints only trigger and
// poll.
type Handler struct {
	service    *Service
	jobs       *JobManager
	uploadsDir string
}

func NewHandler(service *Service, jobs *JobManager, uploadsDir string) *Handler {
	return &Handler{service: service, jobs: jobs, uploadsDir: uploadsDir}
}

// --------------------------------------------------
// Trigger an import (multipart sheet upload)
// --------------------------------------------------
func (h *Handler) TriggerImport(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'file' upload"})
		return
	}

	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare uploads dir"})
		return
	}

	dest := filepath.Join(h.uploadsDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, dest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded file"})
		return
	}

	job, err := h.jobs.StartImport(h.service, dest)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// --------------------------------------------------
// Poll a job
// --------------------------------------------------
func (h *Handler) JobStatus(c *gin.Context) {
	job, ok := h.jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
		return
	}

	lines, err := h.jobs.Tail(job.ID, 50)
	if err != nil {
		lines = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"job": job,
		"log": lines,
	})
}

// --------------------------------------------------
// List snapshots
// --------------------------------------------------
func (h *Handler) ListSnapshots(c *gin.Context) {
	snapshots, err := h.service.ListSnapshots()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list snapshots"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}

// --------------------------------------------------
// Trigger a restore
// --------------------------------------------------
func (h *Handler) TriggerRestore(c *gin.Context) {
	var req struct {
		SnapshotDir  string `json:"snapshot_dir"`
		SafetyBackup *bool  `json:"safety_backup"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SnapshotDir == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "snapshot_dir is required"})
		return
	}

	safety := true
	if req.SafetyBackup != nil {
		safety = *req.SafetyBackup
	}

	job, err := h.jobs.StartRestore(h.service, req.SnapshotDir, safety)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, job)
}
