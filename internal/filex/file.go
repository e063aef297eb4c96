// Package filex classifies uploaded files into the categories the
// dashboard groups by, and formats byte sizes for humans.
package filex

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Categories files are grouped into on the dashboard.
const (
	TypeDocument = "document"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeOther    = "other"
)

var extToType = map[string]string{
	"pdf": TypeDocument, "doc": TypeDocument, "docx": TypeDocument,
	"txt": TypeDocument, "xls": TypeDocument, "xlsx": TypeDocument,
	"csv": TypeDocument, "rtf": TypeDocument, "ods": TypeDocument,
	"ppt": TypeDocument, "odp": TypeDocument, "md": TypeDocument,
	"html": TypeDocument, "htm": TypeDocument, "epub": TypeDocument,
	"pages": TypeDocument, "numbers": TypeDocument, "pptx": TypeDocument,

	"jpg": TypeImage, "jpeg": TypeImage, "png": TypeImage,
	"gif": TypeImage, "bmp": TypeImage, "svg": TypeImage, "webp": TypeImage,

	"mp4": TypeVideo, "avi": TypeVideo, "mov": TypeVideo,
	"mkv": TypeVideo, "webm": TypeVideo,

	"mp3": TypeAudio, "wav": TypeAudio, "ogg": TypeAudio,
	"flac": TypeAudio, "aac": TypeAudio, "m4a": TypeAudio,
}

// TypeOf returns the dashboard category and lowercase extension
// (without the dot) for a file name. Unknown extensions map to "other".
func TypeOf(name string) (fileType string, extension string) {
	extension = strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if t, ok := extToType[extension]; ok {
		return t, extension
	}
	return TypeOther, extension
}

// AllTypes lists every category in dashboard order.
func AllTypes() []string {
	return []string{TypeDocument, TypeImage, TypeVideo, TypeAudio, TypeOther}
}

// HumanSize renders a byte count the way the UI shows it ("1.5 MB").
func HumanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
