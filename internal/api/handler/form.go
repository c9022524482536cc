package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rackcentre/incident-logger/internal/core/ports"
)

// maxAttachmentSize caps uploads at 10 MiB.
const maxAttachmentSize = 10 << 20

// readFormFile pulls the named multipart file into memory. Returns (nil, nil)
// when the field is absent, since attachments are optional.
func readFormFile(c echo.Context, field string) (*ports.Attachment, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		// echo wraps "no such file" errors from the multipart reader too.
		return nil, nil
	}
	if fh.Size > maxAttachmentSize {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds 10MB limit")
	}

	src, err := fh.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable file upload")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxAttachmentSize+1))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable file upload")
	}
	if int64(len(data)) > maxAttachmentSize {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds 10MB limit")
	}

	return &ports.Attachment{Name: fh.Filename, Data: data}, nil
}

var dateFormats = []string{"2006-01-02", time.RFC3339}

// parseDate accepts the date-picker format and RFC 3339. A zero time is
// returned for an empty value; the service decides whether that is an error.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range dateFormats {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
