package protocol

import (
	"encoding/json"
	"strings"

	"github.com/deadmanoz/data-carry-research-sub003/internal/signature"
)

// StampsBodyVariant is the sub-classification of a Stamps payload after
// the signature has been stripped and the remainder base64-decoded
// (spec §4.10, second half).
type StampsBodyVariant string

const (
	StampsBodySRC20    StampsBodyVariant = "SRC20"
	StampsBodySRC721   StampsBodyVariant = "SRC721"
	StampsBodySRC101   StampsBodyVariant = "SRC101"
	StampsBodyCompressed StampsBodyVariant = "Compressed"
	StampsBodyClassic  StampsBodyVariant = "Classic"
	StampsBodyHTML     StampsBodyVariant = "HTML"
	StampsBodyDataJSON StampsBodyVariant = "DataJSON"
	StampsBodyDataXML  StampsBodyVariant = "DataXML"
	StampsBodyDataText StampsBodyVariant = "DataText"
	StampsBodyDataBinary StampsBodyVariant = "DataBinary"
)

var src20Tags = map[string]bool{
	"src-20": true, "src20": true,
	"src-721": true, "src721": true, "src-721r": true, "src721r": true,
	"src-101": true, "src101": true,
}

// htmlSignals is the fixed tag list scored by the HTML heuristic; two or
// more distinct signals in the first 1000 bytes counts as HTML.
var htmlSignals = []string{"<html", "<!doctype html", "<body", "<div", "<script", "<style", "<head"}

// DetectStampsBodyVariant classifies payload (already ARC4-decrypted,
// signature-stripped, and base64-decoded) into its final Stamps
// sub-variant, per the fixed priority order in spec §4.10.
func DetectStampsBodyVariant(payload []byte) StampsBodyVariant {
	if v, ok := detectSRCVariant(payload); ok {
		return v
	}
	if ct := signature.DetectContentType(payload); ct.Category == "archive" {
		return StampsBodyCompressed
	}
	if looksLikeClassic(payload) {
		return StampsBodyClassic
	}
	if isHTML(payload) {
		return StampsBodyHTML
	}
	ct := signature.DetectContentType(payload)
	switch ct.Category {
	case "structured":
		if ct.Format == "json" {
			return StampsBodyDataJSON
		}
		return StampsBodyDataXML
	case "text":
		return StampsBodyDataText
	}
	return StampsBodyDataBinary
}

func detectSRCVariant(payload []byte) (StampsBodyVariant, bool) {
	var probe struct {
		P string `json:"p"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return "", false
	}
	tag := strings.ToLower(probe.P)
	if !src20Tags[tag] {
		return "", false
	}
	switch {
	case strings.HasPrefix(tag, "src-101") || strings.HasPrefix(tag, "src101"):
		return StampsBodySRC101, true
	case strings.HasPrefix(tag, "src-721") || strings.HasPrefix(tag, "src721"):
		return StampsBodySRC721, true
	default:
		return StampsBodySRC20, true
	}
}

// looksLikeClassic covers the PDF-window-search and image-magic legs of
// the Classic variant — anything content_type detection recognises as a
// document or image, prior to falling back to generic Data/*.
func looksLikeClassic(payload []byte) bool {
	ct := signature.DetectContentType(payload)
	return ct.Category == "document" || ct.Category == "image"
}

func isHTML(payload []byte) bool {
	window := payload
	if len(window) > 1000 {
		window = window[:1000]
	}
	lower := strings.ToLower(string(window))
	count := 0
	for _, sig := range htmlSignals {
		if strings.Contains(lower, sig) {
			count++
		}
	}
	return count >= 2
}
