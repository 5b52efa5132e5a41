package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"resumematch/scanner-web/internal/models"
	"resumematch/scanner-web/internal/services"
)

type ScanHandler struct {
	uploads services.UploadStore
}

func NewScanHandler(uploads services.UploadStore) *ScanHandler {
	return &ScanHandler{
		uploads: uploads,
	}
}

// HandleScanView handles GET /scan. ?history=<id> prefills the form from a
// saved scan.
func (h *ScanHandler) HandleScanView(c *fiber.Ctx) error {
	tab := currentTab(c)

	view := fiber.Map{
		"view": "scan",
		"user": tab.Auth.Snapshot().User,
	}

	if id := c.Query("history"); id != "" {
		entry, err := tab.History.Find(c.UserContext(), id)
		if err != nil {
			return respondError(c, err, "Failed to load scan")
		}
		view["prefill"] = services.LoadInScanner(*entry)
	}

	return c.JSON(view)
}

// HandleScan handles POST /api/scan. Text scans arrive as JSON; file scans as
// multipart with file, jd_text and mode.
func (h *ScanHandler) HandleScan(c *fiber.Ctx) error {
	var in services.ScanInput

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		input, cleanup, err := h.stageUpload(c)
		if err != nil {
			return respondError(c, err, "Failed to read upload")
		}
		defer cleanup()
		in = *input
	} else {
		var req models.ScanRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request payload",
				"code":  fiber.StatusBadRequest,
			})
		}
		in = services.ScanInput{
			Mode:       req.Mode,
			ResumeText: req.ResumeText,
			JDText:     req.JDText,
		}
	}

	outcome, err := currentTab(c).Scans.Scan(c.UserContext(), in)
	if err != nil {
		return respondError(c, err, "Scan failed")
	}

	return c.JSON(fiber.Map{
		"mode":        outcome.Mode,
		"result":      outcome.Result,
		"document":    outcome.Document,
		"resume_text": outcome.ResumeText,
	})
}

func (h *ScanHandler) stageUpload(c *fiber.Ctx) (*services.ScanInput, func(), error) {
	mode := models.ScanMode(c.FormValue("mode", string(models.ScanModePDF)))
	in := &services.ScanInput{
		Mode:   mode,
		JDText: c.FormValue("jd_text"),
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		// Let validation report the missing file.
		return in, func() {}, nil
	}

	staged, err := h.uploads.Stage(fileHeader, mode)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := h.uploads.Discard(staged); err != nil {
			log.Printf("⚠️  Failed to discard staged upload %s: %v\n", staged.Name, err)
		}
	}

	data, err := h.uploads.Read(staged)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	in.FileName = staged.OriginalName
	in.File = data
	return in, cleanup, nil
}

// HandleSave handles POST /api/scans
func (h *ScanHandler) HandleSave(c *fiber.Ctx) error {
	var req models.SaveScanRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
			"code":  fiber.StatusBadRequest,
		})
	}

	id, err := currentTab(c).Scans.Save(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Failed to save scan")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      id,
		"message": "Saved to history",
	})
}
