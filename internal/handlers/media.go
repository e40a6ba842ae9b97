package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/slotter-org/cs-ai-agent/internal/services"
)

// MaxPDFBytes caps the raw body accepted by the extract route.
const MaxPDFBytes = 32 << 20

type MediaHandler struct {
	media services.MediaService
}

func NewMediaHandler(media services.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// formUploads opens every file whose form key starts with prefix, in key
// order. The returned close func releases all of them.
func formUploads(c *gin.Context, prefix string) ([]services.Upload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, func() {}, err
	}
	keys := make([]string, 0, len(form.File))
	for key := range form.File {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	var uploads []services.Upload
	for _, key := range keys {
		for _, fh := range form.File[key] {
			f, err := fh.Open()
			if err != nil {
				closeAll()
				return nil, func() {}, err
			}
			opened = append(opened, f)
			uploads = append(uploads, services.Upload{Name: fh.Filename, Reader: f})
		}
	}
	return uploads, closeAll, nil
}

func (mh *MediaHandler) transcribe(c *gin.Context, prefix string, run func([]services.Upload) (string, error)) {
	uploads, closeAll, err := formUploads(c, prefix)
	defer closeAll()
	if err != nil {
		badRequest(c, "expected a multipart form")
		return
	}
	if len(uploads) == 0 {
		badRequest(c, "no "+prefix+" file received")
		return
	}
	text, err := run(uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transcription": text})
}

func (mh *MediaHandler) TranscribeAudio(c *gin.Context) {
	mh.transcribe(c, "audio", func(u []services.Upload) (string, error) {
		return mh.media.TranscribeAudio(c.Request.Context(), u)
	})
}

func (mh *MediaHandler) TranscribeVideo(c *gin.Context) {
	mh.transcribe(c, "video", func(u []services.Upload) (string, error) {
		return mh.media.TranscribeVideo(c.Request.Context(), u)
	})
}

func (mh *MediaHandler) UploadImages(c *gin.Context) {
	uploads, closeAll, err := formUploads(c, "images")
	defer closeAll()
	if err != nil {
		badRequest(c, "expected a multipart form")
		return
	}
	if len(uploads) == 0 {
		badRequest(c, "no images received")
		return
	}
	ids, err := mh.media.UploadImages(c.Request.Context(), uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "file_ids_list": ids})
}

func (mh *MediaHandler) ExtractPDF(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxPDFBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		badRequest(c, "could not read body")
		return
	}
	if len(body) == 0 {
		badRequest(c, "empty body")
		return
	}
	text, err := mh.media.ExtractPDFText(c.Request.Context(), body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}
