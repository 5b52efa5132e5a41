package services

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync/atomic"

	"resumematch/scanner-web/internal/models"
)

const (
	scanPath  = "/api/scan/"
	scansPath = "/api/scans/"

	uploadedPDFPlaceholder = "(uploaded pdf)"
)

type ScanInput struct {
	Mode       models.ScanMode
	ResumeText string
	JDText     string
	FileName   string
	File       []byte
}

type ScanService interface {
	Scan(ctx context.Context, in ScanInput) (*models.ScanOutcome, error)
	Save(ctx context.Context, req models.SaveScanRequest) (string, error)
}

type scanService struct {
	pipeline RequestPipeline
	parser   DocumentParserService
	busy     atomic.Bool
}

func NewScanService(pipeline RequestPipeline, parser DocumentParserService) ScanService {
	return &scanService{
		pipeline: pipeline,
		parser:   parser,
	}
}

// ValidateScan checks the scan form before any network call.
func ValidateScan(in ScanInput) error {
	if strings.TrimSpace(in.JDText) == "" {
		return newValidationError("jd_text", "job description is required")
	}

	switch in.Mode {
	case models.ScanModeText, "":
		if strings.TrimSpace(in.ResumeText) == "" {
			return newValidationError("resume_text", "resume text is required")
		}
	case models.ScanModePDF:
		if len(in.File) == 0 {
			return newValidationError("file", "choose a PDF")
		}
	case models.ScanModeDocx:
		if len(in.File) == 0 {
			return newValidationError("file", "choose a DOCX file")
		}
	default:
		return newValidationError("mode", "unknown scan mode")
	}
	return nil
}

// Scan implements ScanService. Only one scan runs at a time; a concurrent
// call fails with ErrBusy.
func (s *scanService) Scan(ctx context.Context, in ScanInput) (*models.ScanOutcome, error) {
	if err := ValidateScan(in); err != nil {
		return nil, err
	}

	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	if in.Mode == "" {
		in.Mode = models.ScanModeText
	}
	outcome := &models.ScanOutcome{Mode: in.Mode}

	var payload any
	switch in.Mode {
	case models.ScanModePDF:
		info, err := s.parser.InspectPDF(in.FileName, in.File)
		if err != nil {
			return nil, err
		}
		outcome.Document = info
		outcome.ResumeText = uploadedPDFPlaceholder

		file := &FilePart{Field: "file", FileName: in.FileName, Data: in.File}
		fields := map[string]string{"jd_text": in.JDText}
		if err := s.pipeline.DoMultipart(ctx, scanPath, fields, file, &payload); err != nil {
			return nil, err
		}

	case models.ScanModeDocx:
		text, info, err := s.parser.ExtractDocxText(in.FileName, in.File)
		if err != nil {
			return nil, err
		}
		outcome.Document = info
		outcome.ResumeText = text
		if err := s.postText(ctx, text, in.JDText, &payload); err != nil {
			return nil, err
		}

	default:
		outcome.ResumeText = in.ResumeText
		if err := s.postText(ctx, in.ResumeText, in.JDText, &payload); err != nil {
			return nil, err
		}
	}

	raw, err := ExtractScanPayload(payload)
	if err != nil {
		return nil, &APIError{Kind: ErrServer, Message: "Bad response format from server", Err: err}
	}
	outcome.Result = NormalizeScanResult(raw)

	log.Printf("📊 Scan completed: score=%.3f matched=%d missing=%d\n",
		outcome.Result.Score, len(outcome.Result.MatchedSkills), len(outcome.Result.MissingSkills))

	return outcome, nil
}

type textScanBody struct {
	ResumeText string `json:"resume_text"`
	JDText     string `json:"jd_text"`
}

func (s *scanService) postText(ctx context.Context, resumeText, jdText string, out any) error {
	body := textScanBody{ResumeText: resumeText, JDText: jdText}
	return s.pipeline.DoJSON(ctx, http.MethodPost, scanPath, body, out)
}

var savedIDRules = []fieldRule{
	rule("id"),
	rule("data.id"),
}

// Save implements ScanService and returns the id of the saved scan when the
// backend reports one.
func (s *scanService) Save(ctx context.Context, req models.SaveScanRequest) (string, error) {
	resumeText := req.ResumeText
	if req.Mode == models.ScanModePDF {
		resumeText = uploadedPDFPlaceholder
	}
	if strings.TrimSpace(resumeText) == "" {
		return "", newValidationError("resume_text", "resume text is required")
	}
	if strings.TrimSpace(req.JDText) == "" {
		return "", newValidationError("jd_text", "job description is required")
	}

	body := struct {
		textScanBody
		Result models.ScanResult `json:"result"`
	}{textScanBody{resumeText, req.JDText}, req.Result}

	var payload any
	if err := s.pipeline.DoJSON(ctx, http.MethodPost, scansPath, body, &payload); err != nil {
		return "", err
	}

	id, _ := firstString(payload, savedIDRules)
	log.Printf("💾 Scan saved to history (id=%s)\n", id)
	return id, nil
}
