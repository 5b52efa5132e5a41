package models

import "time"

type ScanMode string

const (
	ScanModeText ScanMode = "text"
	ScanModePDF  ScanMode = "pdf"
	ScanModeDocx ScanMode = "docx"
)

// ScanResult is the strictly shaped match result. Slices are never nil.
type ScanResult struct {
	Score         float64  `json:"score"`
	OverlapRatio  float64  `json:"overlap_ratio"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	ExtraSkills   []string `json:"extra_skills"`
	JDRequired    []string `json:"jd_required"`
	JDOptional    []string `json:"jd_optional"`
}

// JDSkills lists every skill detected in the job description.
func (r ScanResult) JDSkills() []string {
	out := make([]string, 0, len(r.JDRequired)+len(r.JDOptional))
	out = append(out, r.JDRequired...)
	return append(out, r.JDOptional...)
}

// HistoryEntry is a saved scan as listed by the backend. Read-only.
type HistoryEntry struct {
	ID            string      `json:"id"`
	Score         float64     `json:"score"`
	Matched       int         `json:"matched"`
	Missing       int         `json:"missing"`
	CreatedAt     time.Time   `json:"created_at"`
	CreatedAtRaw  string      `json:"-"`
	ResumePreview string      `json:"resume_preview"`
	JDPreview     string      `json:"jd_preview"`
	ResumeText    string      `json:"resume_text"`
	JDText        string      `json:"jd_text"`
	Result        *ScanResult `json:"result,omitempty"`
}

// ScanPrefill carries texts from a history entry into the scan view.
type ScanPrefill struct {
	Mode       ScanMode `json:"mode"`
	ResumeText string   `json:"resume_text"`
	JDText     string   `json:"jd_text"`
}

type ScanRequest struct {
	Mode       ScanMode `json:"mode"`
	ResumeText string   `json:"resume_text"`
	JDText     string   `json:"jd_text"`
}

type SaveScanRequest struct {
	Mode       ScanMode   `json:"mode"`
	ResumeText string     `json:"resume_text"`
	JDText     string     `json:"jd_text"`
	Result     ScanResult `json:"result"`
}

// DocumentInfo describes a resume file inspected locally before upload.
type DocumentInfo struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Pages     int    `json:"pages"`
	TextChars int    `json:"text_chars"`
}

type ScanOutcome struct {
	Result     ScanResult    `json:"result"`
	Document   *DocumentInfo `json:"document,omitempty"`
	ResumeText string        `json:"-"`
	Mode       ScanMode      `json:"mode"`
}
