package resume

import (
	"io"
	"time"
)

// Resume is one uploaded resume record.
type Resume struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"file_path"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	UploadedAt time.Time `json:"uploaded_at"`
	IsSelected bool      `json:"is_selected"`
}

// ResumeWithURL is a listing entry: the record plus a short-lived signed
// download URL. Unavailable is set when URL generation failed for this
// record; the record itself is still listed.
type ResumeWithURL struct {
	Resume
	DownloadURL string `json:"download_url,omitempty"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

// UploadInput carries a file into the upload operation.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

const (
	// MaxFileSize is the inclusive upload size ceiling (10 MB).
	MaxFileSize = 10 * 1024 * 1024
	// MaxFilenameLength bounds the original filename kept in metadata.
	MaxFilenameLength = 255
	// DownloadURLTTL is the signed URL expiry for listings.
	DownloadURLTTL = time.Hour
)

// AllowedContentTypes is the whitelist of accepted resume formats.
var AllowedContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}
