package signature

import (
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// DetectContentType is the single total content-type sniffer used by every
// classifier/decoder that produces decodable bytes (spec §4.7). The check
// order below is fixed and load-bearing — archives are checked before any
// image/document signature so that, e.g., a ZIP containing a PDF entry is
// reported as application/zip (scenario D, spec §8).
func DetectContentType(data []byte) models.ContentType {
	if len(data) == 0 {
		return models.ContentTypeNone
	}

	if ct, ok := detectArchive(data); ok {
		return ct
	}
	if ct, ok := detectImage(data); ok {
		return ct
	}
	if ct, ok := detectDocument(data); ok {
		return ct
	}
	if IsProofOfBurn(data) {
		return models.ContentTypeBurn
	}
	if ct, ok := detectAudio(data); ok {
		return ct
	}
	if ct, ok := detectVideo(data); ok {
		return ct
	}
	if ct, ok := detectStructured(data); ok {
		return ct
	}
	if ct, ok := detectText(data); ok {
		return ct
	}
	if ct, ok := detectViaMimetype(data); ok {
		return ct
	}
	return models.ContentTypeBinary
}

// detectViaMimetype is a last-resort check, run only after every fixed
// signature/heuristic step above has declined to match: it hands the
// remaining bytes to gabriel-vasile/mimetype's magic-number sniffer and
// maps a recognised MIME type back onto our enumerated set, catching
// formats (e.g. WASM, fonts, RTF) spec §4.7's hand-enumerated checks don't
// cover. A MIME it detects that doesn't round-trip through
// ContentTypeFromMIME (no enumerated ContentType for it) still falls
// through to Binary.
func detectViaMimetype(data []byte) (models.ContentType, bool) {
	detected := mimetype.Detect(data)
	if detected == nil {
		return models.ContentType{}, false
	}
	for m := detected; m != nil; m = m.Parent() {
		if ct, ok := models.ContentTypeFromMIME(m.String()); ok && !ct.IsZero() && ct != models.ContentTypeNone {
			return ct, true
		}
	}
	return models.ContentType{}, false
}

// --- 2. Archives ---

// zlibOffsets is the empirically-widened set of offsets a ZLIB header is
// checked at (spec §9 explicitly permits widening this set, keeping the
// (CMF*256+FLG) mod 31 == 0 check as the decisive test).
var zlibOffsets = []int{0, 5, 7}

func detectArchive(data []byte) (models.ContentType, bool) {
	if HasPrefix(data, []byte("PK\x03\x04")) || HasPrefix(data, []byte("PK\x05\x06")) {
		return models.ContentArchiveZIP, true
	}
	if HasPrefix(data, []byte("Rar!")) {
		return models.ContentArchiveRAR, true
	}
	if HasPrefix(data, []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}) {
		return models.ContentArchiveSevenZ, true
	}
	if HasPrefix(data, []byte{0x1F, 0x8B, 0x08}) {
		return models.ContentArchiveGZIP, true
	}
	if HasPrefix(data, []byte("BZh")) {
		return models.ContentArchiveBZIP2, true
	}
	for _, off := range zlibOffsets {
		if off+2 > len(data) {
			continue
		}
		cmf, flg := data[off], data[off+1]
		if cmf == 0x78 && (int(cmf)*256+int(flg))%31 == 0 {
			return models.ContentArchiveZLIB, true
		}
	}
	if HasAtOffset(data, 257, 257+5, []byte("ustar")) {
		return models.ContentArchiveTAR, true
	}
	return models.ContentType{}, false
}

// --- 3. Images ---

func detectImage(data []byte) (models.ContentType, bool) {
	pngSig := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegSig := []byte{0xFF, 0xD8, 0xFF}
	gif87 := []byte("GIF87a")
	gif89 := []byte("GIF89a")

	// Direct offset-0 checks.
	if HasPrefix(data, pngSig) {
		return models.ContentImagePNG, true
	}
	if HasPrefix(data, jpegSig) {
		return models.ContentImageJPEG, true
	}
	if HasPrefix(data, gif87) || HasPrefix(data, gif89) {
		return models.ContentImageGIF, true
	}

	// Retry at offset 1 to tolerate a leading EC-point-prefix byte
	// (0x02/0x03/0x04) that a data-carrying pubkey slot may prepend.
	if len(data) > 0 && (data[0] == 0x02 || data[0] == 0x03 || data[0] == 0x04) {
		rest := data[1:]
		if HasPrefix(rest, pngSig) {
			return models.ContentImagePNG, true
		}
		if HasPrefix(rest, jpegSig) {
			return models.ContentImageJPEG, true
		}
		if HasPrefix(rest, gif87) || HasPrefix(rest, gif89) {
			return models.ContentImageGIF, true
		}
	}

	if len(data) >= 12 && HasAtOffset(data, 0, 2, []byte("BM")) {
		return models.ContentImageBMP, true
	}
	if HasPrefix(data, []byte{0x49, 0x49, 0x2A, 0x00}) || HasPrefix(data, []byte{0x4D, 0x4D, 0x00, 0x2A}) {
		return models.ContentImageTIFF, true
	}
	if HasPrefix(data, []byte{0x00, 0x00, 0x01, 0x00}) {
		return models.ContentImageICO, true
	}
	if len(data) >= 12 && HasAtOffset(data, 4, 8, []byte("ftyp")) {
		brand := string(data[8:min(12, len(data))])
		if brand == "avif" || brand == "avis" {
			return models.ContentImageAVIF, true
		}
	}
	if HasPrefix(data, []byte{0xFF, 0x0A}) ||
		HasPrefix(data, []byte{0x00, 0x00, 0x00, 0x0C, 0x4A, 0x58, 0x4C, 0x20, 0x0D, 0x0A, 0x87, 0x0A}) {
		return models.ContentImageJpegXl, true
	}
	if len(data) >= 12 && HasPrefix(data, []byte("RIFF")) && HasAtOffset(data, 8, 12, []byte("WEBP")) {
		return models.ContentImageWebP, true
	}
	if looksLikeSVG(data) {
		return models.ContentImageSVG, true
	}
	return models.ContentType{}, false
}

func looksLikeSVG(data []byte) bool {
	trimmed := strings.TrimLeft(string(data[:min(len(data), 256)]), " \t\r\n﻿")
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<svg") {
		return true
	}
	if strings.HasPrefix(lower, "<?xml") {
		window := string(data[:min(len(data), 1024)])
		return strings.Contains(strings.ToLower(window), "<svg")
	}
	return false
}

// --- 4. Document ---

func detectDocument(data []byte) (models.ContentType, bool) {
	window := data[:min(len(data), 1024)]
	if FindSignature(window, []byte("%PDF")) >= 0 {
		return models.ContentDocumentPDF, true
	}
	return models.ContentType{}, false
}

// --- 6. Audio ---

func detectAudio(data []byte) (models.ContentType, bool) {
	if HasPrefix(data, []byte("ID3")) {
		return models.ContentAudioMP3, true
	}
	if len(data) >= 12 && HasPrefix(data, []byte("RIFF")) && HasAtOffset(data, 8, 12, []byte("WAVE")) {
		return models.ContentAudioWAV, true
	}
	if HasPrefix(data, []byte("OggS")) {
		return models.ContentAudioOGG, true
	}
	if HasPrefix(data, []byte("fLaC")) {
		return models.ContentAudioFLAC, true
	}
	return models.ContentType{}, false
}

// --- 7. Video ---

var mp4Brands = map[string]bool{
	"isom": true, "iso2": true, "mp41": true, "mp42": true,
	"M4V ": true, "M4A ": true, "avc1": true, "3gp4": true,
	"qt  ": true, "mmp4": true, "dash": true, "heic": true, "mif1": true,
}

func detectVideo(data []byte) (models.ContentType, bool) {
	if len(data) >= 12 && HasAtOffset(data, 4, 8, []byte("ftyp")) {
		brand := string(data[8:min(12, len(data))])
		if mp4Brands[brand] {
			return models.ContentVideoMP4, true
		}
	}
	if HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}) {
		window := string(data[:min(len(data), 4096)])
		lower := strings.ToLower(window)
		if strings.Contains(lower, "webm") {
			return models.ContentVideoWebM, true
		}
		if strings.Contains(lower, "matroska") {
			return models.ContentVideoMkv, true
		}
		// EBML without a recognisable doctype string still indicates a
		// Matroska-family container.
		return models.ContentVideoMkv, true
	}
	if len(data) >= 12 && HasPrefix(data, []byte("RIFF")) && HasAtOffset(data, 8, 12, []byte("AVI ")) {
		return models.ContentVideoAvi, true
	}
	return models.ContentType{}, false
}

// --- 8. Structured ---

func detectStructured(data []byte) (models.ContentType, bool) {
	if !utf8.Valid(data) {
		return models.ContentType{}, false
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return models.ContentType{}, false
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return models.ContentStructuredJSON, true
	}
	if strings.HasPrefix(trimmed, "<?xml") {
		return models.ContentStructuredXML, true
	}
	if strings.HasPrefix(trimmed, "<") && !strings.HasPrefix(trimmed, "<!") {
		return models.ContentStructuredXML, true
	}
	return models.ContentType{}, false
}

// --- 9. Text heuristics ---

var pythonKeywords = []string{"def ", "import ", "class ", "elif ", "lambda ", "__init__", "self."}
var jsKeywords = []string{"function ", "var ", "const ", "let ", "=>", "console.log", "require("}

func detectText(data []byte) (models.ContentType, bool) {
	if !utf8.Valid(data) {
		return models.ContentType{}, false
	}
	s := string(data)
	if strings.HasPrefix(s, "#!") && strings.Contains(s[:min(len(s), 64)], "python") {
		return models.ContentTextPython, true
	}
	if countMatches(s, pythonKeywords) >= 2 {
		return models.ContentTextPython, true
	}
	if countMatches(s, jsKeywords) >= 2 {
		return models.ContentTextJavaScript, true
	}
	if len(data) >= 10 && printableRatio(data) > 0.5 {
		return models.ContentTextPlain, true
	}
	return models.ContentType{}, false
}

func countMatches(s string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			n++
		}
	}
	return n
}

func printableRatio(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	printable := 0
	for _, b := range data {
		if (b >= 0x20 && b <= 0x7E) || b == '\n' || b == '\r' || b == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(len(data))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
