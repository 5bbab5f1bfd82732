package models

// ContentCategory is the outer discriminant of a ContentType. The set is
// closed per spec §9 ("enum variants over dynamic dispatch").
type ContentCategory string

const (
	CategoryNone       ContentCategory = "none"
	CategoryImage      ContentCategory = "image"
	CategoryAudio      ContentCategory = "audio"
	CategoryVideo      ContentCategory = "video"
	CategoryDocument   ContentCategory = "document"
	CategoryArchive    ContentCategory = "archive"
	CategoryText       ContentCategory = "text"
	CategoryStructured ContentCategory = "structured"
	CategoryBurn       ContentCategory = "burn"
	CategoryBinary     ContentCategory = "binary"
)

// ContentFormat is the inner discriminant, meaningful only for the
// categories that carry sub-formats (Image, Audio, Video, Document,
// Archive, Text, Structured). Burn/Binary/None carry no format.
type ContentFormat string

const (
	FormatNone ContentFormat = ""

	FormatPNG    ContentFormat = "png"
	FormatJPEG   ContentFormat = "jpeg"
	FormatGIF    ContentFormat = "gif"
	FormatWebP   ContentFormat = "webp"
	FormatSVG    ContentFormat = "svg"
	FormatBMP    ContentFormat = "bmp"
	FormatTIFF   ContentFormat = "tiff"
	FormatICO    ContentFormat = "ico"
	FormatAVIF   ContentFormat = "avif"
	FormatJpegXl ContentFormat = "jxl"

	FormatMP3  ContentFormat = "mp3"
	FormatWAV  ContentFormat = "wav"
	FormatOGG  ContentFormat = "ogg"
	FormatFLAC ContentFormat = "flac"

	FormatMP4  ContentFormat = "mp4"
	FormatWebM ContentFormat = "webm"
	FormatMkv  ContentFormat = "mkv"
	FormatAvi  ContentFormat = "avi"

	FormatPDF ContentFormat = "pdf"

	FormatZIP    ContentFormat = "zip"
	FormatRAR    ContentFormat = "rar"
	FormatSevenZ ContentFormat = "7z"
	FormatGZIP   ContentFormat = "gzip"
	FormatBZIP2  ContentFormat = "bzip2"
	FormatZLIB   ContentFormat = "zlib"
	FormatTAR    ContentFormat = "tar"

	FormatPlain      ContentFormat = "plain"
	FormatPython     ContentFormat = "python"
	FormatJavaScript ContentFormat = "javascript"

	FormatJSON ContentFormat = "json"
	FormatXML  ContentFormat = "xml"
)

// ContentType is the closed tagged union produced by content-type
// detection (spec §4.7). The zero value is not a valid ContentType; use
// the exported constructors/constants below.
type ContentType struct {
	Category ContentCategory
	Format   ContentFormat
}

var (
	ContentTypeNone  = ContentType{Category: CategoryNone}
	ContentTypeBurn  = ContentType{Category: CategoryBurn}
	ContentTypeBinary = ContentType{Category: CategoryBinary}

	ContentImagePNG    = ContentType{Category: CategoryImage, Format: FormatPNG}
	ContentImageJPEG   = ContentType{Category: CategoryImage, Format: FormatJPEG}
	ContentImageGIF    = ContentType{Category: CategoryImage, Format: FormatGIF}
	ContentImageWebP   = ContentType{Category: CategoryImage, Format: FormatWebP}
	ContentImageSVG    = ContentType{Category: CategoryImage, Format: FormatSVG}
	ContentImageBMP    = ContentType{Category: CategoryImage, Format: FormatBMP}
	ContentImageTIFF   = ContentType{Category: CategoryImage, Format: FormatTIFF}
	ContentImageICO    = ContentType{Category: CategoryImage, Format: FormatICO}
	ContentImageAVIF   = ContentType{Category: CategoryImage, Format: FormatAVIF}
	ContentImageJpegXl = ContentType{Category: CategoryImage, Format: FormatJpegXl}

	ContentAudioMP3  = ContentType{Category: CategoryAudio, Format: FormatMP3}
	ContentAudioWAV  = ContentType{Category: CategoryAudio, Format: FormatWAV}
	ContentAudioOGG  = ContentType{Category: CategoryAudio, Format: FormatOGG}
	ContentAudioFLAC = ContentType{Category: CategoryAudio, Format: FormatFLAC}

	ContentVideoMP4  = ContentType{Category: CategoryVideo, Format: FormatMP4}
	ContentVideoWebM = ContentType{Category: CategoryVideo, Format: FormatWebM}
	ContentVideoMkv  = ContentType{Category: CategoryVideo, Format: FormatMkv}
	ContentVideoAvi  = ContentType{Category: CategoryVideo, Format: FormatAvi}

	ContentDocumentPDF = ContentType{Category: CategoryDocument, Format: FormatPDF}

	ContentArchiveZIP    = ContentType{Category: CategoryArchive, Format: FormatZIP}
	ContentArchiveRAR    = ContentType{Category: CategoryArchive, Format: FormatRAR}
	ContentArchiveSevenZ = ContentType{Category: CategoryArchive, Format: FormatSevenZ}
	ContentArchiveGZIP   = ContentType{Category: CategoryArchive, Format: FormatGZIP}
	ContentArchiveBZIP2  = ContentType{Category: CategoryArchive, Format: FormatBZIP2}
	ContentArchiveZLIB   = ContentType{Category: CategoryArchive, Format: FormatZLIB}
	ContentArchiveTAR    = ContentType{Category: CategoryArchive, Format: FormatTAR}

	ContentTextPlain      = ContentType{Category: CategoryText, Format: FormatPlain}
	ContentTextPython     = ContentType{Category: CategoryText, Format: FormatPython}
	ContentTextJavaScript = ContentType{Category: CategoryText, Format: FormatJavaScript}

	ContentStructuredJSON = ContentType{Category: CategoryStructured, Format: FormatJSON}
	ContentStructuredXML  = ContentType{Category: CategoryStructured, Format: FormatXML}
)

type mimeEntry struct {
	ct  ContentType
	mime string
	ext  string
}

// mimeTable is the single source of truth for MimeType/Extension/FromMIME;
// every enumerated ContentType appears exactly once, which is what makes
// the FromMIME(MimeType()) round-trip property (spec §8) hold by
// construction.
var mimeTable = []mimeEntry{
	{ContentImagePNG, "image/png", ".png"},
	{ContentImageJPEG, "image/jpeg", ".jpg"},
	{ContentImageGIF, "image/gif", ".gif"},
	{ContentImageWebP, "image/webp", ".webp"},
	{ContentImageSVG, "image/svg+xml", ".svg"},
	{ContentImageBMP, "image/bmp", ".bmp"},
	{ContentImageTIFF, "image/tiff", ".tiff"},
	{ContentImageICO, "image/x-icon", ".ico"},
	{ContentImageAVIF, "image/avif", ".avif"},
	{ContentImageJpegXl, "image/jxl", ".jxl"},

	{ContentAudioMP3, "audio/mpeg", ".mp3"},
	{ContentAudioWAV, "audio/wav", ".wav"},
	{ContentAudioOGG, "audio/ogg", ".ogg"},
	{ContentAudioFLAC, "audio/flac", ".flac"},

	{ContentVideoMP4, "video/mp4", ".mp4"},
	{ContentVideoWebM, "video/webm", ".webm"},
	{ContentVideoMkv, "video/x-matroska", ".mkv"},
	{ContentVideoAvi, "video/x-msvideo", ".avi"},

	{ContentDocumentPDF, "application/pdf", ".pdf"},

	{ContentArchiveZIP, "application/zip", ".zip"},
	{ContentArchiveRAR, "application/x-rar-compressed", ".rar"},
	{ContentArchiveSevenZ, "application/x-7z-compressed", ".7z"},
	{ContentArchiveGZIP, "application/gzip", ".gz"},
	{ContentArchiveBZIP2, "application/x-bzip2", ".bz2"},
	{ContentArchiveZLIB, "application/zlib", ".zlib"},
	{ContentArchiveTAR, "application/x-tar", ".tar"},

	{ContentTextPlain, "text/plain", ".txt"},
	{ContentTextPython, "text/x-python", ".py"},
	{ContentTextJavaScript, "text/javascript", ".js"},

	{ContentStructuredJSON, "application/json", ".json"},
	{ContentStructuredXML, "application/xml", ".xml"},

	{ContentTypeBurn, "application/x-burn-pattern", ".bin"},
	{ContentTypeBinary, "application/octet-stream", ".bin"},
	{ContentTypeNone, "", ""},
}

// MimeType returns the canonical MIME string for ct, or "" for
// ContentTypeNone.
func (ct ContentType) MimeType() string {
	for _, e := range mimeTable {
		if e.ct == ct {
			return e.mime
		}
	}
	return ""
}

// Extension returns the canonical file extension (with leading dot) for
// ct, or "" if none applies.
func (ct ContentType) Extension() string {
	for _, e := range mimeTable {
		if e.ct == ct {
			return e.ext
		}
	}
	return ""
}

// ContentTypeFromMIME looks up the ContentType for a canonical MIME
// string. Returns (ContentType{}, false) for unrecognised input.
func ContentTypeFromMIME(mime string) (ContentType, bool) {
	if mime == "" {
		return ContentTypeNone, true
	}
	for _, e := range mimeTable {
		if e.mime == mime {
			return e.ct, true
		}
	}
	return ContentType{}, false
}

// IsZero reports whether ct is the unset zero value (as opposed to the
// explicit ContentTypeNone).
func (ct ContentType) IsZero() bool {
	return ct.Category == ""
}
