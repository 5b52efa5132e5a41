package services

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"resumematch/scanner-web/internal/models"
)

// A fieldRule is a dotted path into a decoded JSON object.
type fieldRule []string

func rule(path string) fieldRule {
	return strings.Split(path, ".")
}

func (r fieldRule) lookup(payload any) (any, bool) {
	cur := payload
	for _, key := range r {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// firstString applies rules in order and returns the first non-empty string.
func firstString(payload any, rules []fieldRule) (string, bool) {
	for _, r := range rules {
		v, ok := r.lookup(payload)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// Priority order matters: access_token > token > data.access_token.
var tokenRules = []fieldRule{
	rule("access_token"),
	rule("token"),
	rule("data.access_token"),
}

var userIDRules = []fieldRule{
	rule("user_id"),
	rule("data.user_id"),
}

var messageRules = []fieldRule{
	rule("message"),
	rule("error"),
}

var ErrBadScanResponse = errors.New("bad response format from server")

// ExtractToken returns the access token of a login response.
func ExtractToken(payload any) (string, bool) {
	return firstString(payload, tokenRules)
}

// ExtractUserID returns the user id of a profile response, or "".
func ExtractUserID(payload any) string {
	for _, r := range userIDRules {
		v, ok := r.lookup(payload)
		if !ok {
			continue
		}
		if id := coerceString(v); id != "" {
			return id
		}
	}
	return ""
}

// ExtractMessage returns the server supplied message of payload, or fallback.
func ExtractMessage(payload any, fallback string) string {
	if msg, ok := firstString(payload, messageRules); ok {
		return msg
	}
	return fallback
}

// ExtractScanPayload locates the scan result object inside a scan response:
// the "data" object when present, otherwise the top level when it carries a
// score or overlap ratio.
func ExtractScanPayload(payload any) (map[string]any, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, ErrBadScanResponse
	}
	if data, ok := obj["data"].(map[string]any); ok {
		return data, nil
	}
	_, hasScore := obj["score"]
	_, hasOverlap := obj["overlap_ratio"]
	if hasScore || hasOverlap {
		return obj, nil
	}
	return nil, ErrBadScanResponse
}

// NormalizeScanResult coerces raw into a ScanResult. It never fails: absent or
// malformed fields become zero values and empty slices.
func NormalizeScanResult(raw map[string]any) models.ScanResult {
	return models.ScanResult{
		Score:         clampUnit(coerceFloat(raw["score"])),
		OverlapRatio:  clampUnit(coerceFloat(raw["overlap_ratio"])),
		MatchedSkills: coerceStrings(raw["matched_skills"]),
		MissingSkills: coerceStrings(raw["missing_skills"]),
		ExtraSkills:   coerceStrings(raw["extra_skills"]),
		JDRequired:    coerceStrings(raw["jd_required"]),
		JDOptional:    coerceStrings(raw["jd_optional"]),
	}
}

// NormalizeHistory returns the entries of a history listing response.
func NormalizeHistory(payload any) []models.HistoryEntry {
	var container any = payload
	if obj, ok := payload.(map[string]any); ok {
		if data, ok := obj["data"]; ok && data != nil {
			container = data
		}
	}

	obj, ok := container.(map[string]any)
	if !ok {
		return []models.HistoryEntry{}
	}
	items, ok := obj["items"].([]any)
	if !ok {
		return []models.HistoryEntry{}
	}

	entries := make([]models.HistoryEntry, 0, len(items))
	for _, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, normalizeHistoryEntry(raw))
	}
	return entries
}

func normalizeHistoryEntry(raw map[string]any) models.HistoryEntry {
	entry := models.HistoryEntry{
		ID:            coerceString(raw["id"]),
		Score:         clampUnit(coerceFloat(raw["score"])),
		Matched:       int(coerceFloat(raw["matched"])),
		Missing:       int(coerceFloat(raw["missing"])),
		CreatedAtRaw:  coerceString(raw["created_at"]),
		ResumePreview: coerceString(raw["resume_preview"]),
		JDPreview:     coerceString(raw["jd_preview"]),
		ResumeText:    coerceString(raw["resume_text"]),
		JDText:        coerceString(raw["jd_text"]),
	}
	entry.CreatedAt = parseTimestamp(entry.CreatedAtRaw)

	if result, ok := raw["result"].(map[string]any); ok {
		normalized := NormalizeScanResult(result)
		entry.Result = &normalized
	}
	return entry
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999Z",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func coerceFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func clampUnit(f float64) float64 {
	return math.Min(1, math.Max(0, f))
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func coerceStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch item.(type) {
		case string, float64, bool:
			out = append(out, coerceString(item))
		}
	}
	return out
}
