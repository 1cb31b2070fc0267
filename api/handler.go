package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"videosumapi/config"
	"videosumapi/task"
)

type Handler struct {
	taskManager *task.Manager
	cfg         *config.Config
}

func NewHandler(tm *task.Manager, cfg *config.Config) *Handler {
	return &Handler{
		taskManager: tm,
		cfg:         cfg,
	}
}

type ProcessRequest struct {
	VideoPath   string `json:"video_path"`
	FolderPath  string `json:"folder_path"`
	CallbackURL string `json:"callback_url"`
}

func (h *Handler) submitResponse(c *gin.Context, t *task.Task, message string) {
	c.JSON(http.StatusAccepted, gin.H{
		"task_id":   t.ID,
		"status":    t.Status,
		"message":   message,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleProcessVideo schedules processing of a single video.
func (h *Handler) handleProcessVideo(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.VideoPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video_path is required"})
		return
	}

	t, err := h.taskManager.Submit(task.KindVideo, req.VideoPath, req.CallbackURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task", "details": err.Error()})
		return
	}

	h.submitResponse(c, t, "Processing started")
}

// handleProcessFolder schedules processing of every video in a folder.
// The folder defaults to the configured input folder.
func (h *Handler) handleProcessFolder(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	folderPath := req.FolderPath
	if folderPath == "" {
		folderPath = h.cfg.InputFolder
	}

	t, err := h.taskManager.Submit(task.KindFolder, folderPath, req.CallbackURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task", "details": err.Error()})
		return
	}

	h.submitResponse(c, t, "Folder processing started")
}

// handleWebhookProcess is the form-encoded submission variant.
func (h *Handler) handleWebhookProcess(c *gin.Context) {
	videoPath := c.PostForm("video_path")
	folderPath := c.PostForm("folder_path")
	callbackURL := c.PostForm("callback_url")

	var (
		t   *task.Task
		err error
	)
	switch {
	case videoPath != "":
		t, err = h.taskManager.Submit(task.KindVideo, videoPath, callbackURL)
	case folderPath != "":
		t, err = h.taskManager.Submit(task.KindFolder, folderPath, callbackURL)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "video_path or folder_path is required"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task", "details": err.Error()})
		return
	}

	h.submitResponse(c, t, "Processing started via webhook")
}

// handleGetTaskStatus retrieves the status of a single task.
func (h *Handler) handleGetTaskStatus(c *gin.Context) {
	taskID := c.Param("taskId")
	t, found := h.taskManager.Get(taskID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	c.JSON(http.StatusOK, t.Snapshot())
}

// handleListTasks lists all tasks.
func (h *Handler) handleListTasks(c *gin.Context) {
	snapshots := h.taskManager.List()
	c.JSON(http.StatusOK, gin.H{
		"tasks": snapshots,
		"total": len(snapshots),
	})
}

// handleListFiles lists the generated summary files.
func (h *Handler) handleListFiles(c *gin.Context) {
	files := []gin.H{}
	entries, err := os.ReadDir(h.cfg.OutputFolder)
	if err != nil && !os.IsNotExist(err) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, gin.H{
			"filename":    entry.Name(),
			"size_bytes":  fi.Size(),
			"modified_at": fi.ModTime().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"total": len(files),
	})
}

// handleGetFile serves one summary file.
func (h *Handler) handleGetFile(c *gin.Context) {
	filename := c.Param("filename")

	// Security: Prevent path traversal
	if filepath.Base(filename) != filename {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
		return
	}

	filePath := filepath.Join(h.cfg.OutputFolder, filename)
	if _, err := os.Stat(filePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.File(filePath)
}

func (h *Handler) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":              "Video Summarization API",
		"version":              "1.0.0",
		"status":               "running",
		"ai_provider":          h.cfg.AIProvider,
		"transcription_method": h.cfg.TranscriptionMethod,
	})
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"config": gin.H{
			"ai_provider":          h.cfg.AIProvider,
			"transcription_method": h.cfg.TranscriptionMethod,
			"input_folder":         h.cfg.InputFolder,
			"output_folder":        h.cfg.OutputFolder,
			"supported_formats":    h.cfg.SupportedFormats,
			"max_video_size_mb":    h.cfg.MaxVideoSizeMB(),
		},
	})
}
