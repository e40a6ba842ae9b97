package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/ledongthuc/pdf"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

const defaultApyhubURL = "https://api.apyhub.com"

// Upload is one file received from a multipart form.
type Upload struct {
	Name   string
	Reader io.Reader
}

// MediaService turns user uploads into text or provider file ids. Every
// upload is spooled into the scratch directory and removed before the call
// returns.
type MediaService interface {
	TranscribeAudio(ctx context.Context, uploads []Upload) (string, error)
	TranscribeVideo(ctx context.Context, uploads []Upload) (string, error)
	UploadImages(ctx context.Context, uploads []Upload) ([]string, error)
	ExtractPDFText(ctx context.Context, data []byte) (string, error)
}

type mediaService struct {
	log         *logger.Logger
	assistant   AssistantService
	tmpDir      string
	apyhub      *resty.Client
	apyhubToken string
	videoSecs   int
}

func NewMediaService(log *logger.Logger, assistant AssistantService) MediaService {
	serviceLog := log.With("service", "MediaService")
	token := utils.GetEnv("APYHUB_TOKEN", "", serviceLog)
	if token == "" {
		serviceLog.Warn("APYHUB_TOKEN not set; videos will be sent to transcription without audio extraction")
	}
	return &mediaService{
		log:       serviceLog,
		assistant: assistant,
		tmpDir:    utils.GetEnv("UPLOAD_TMP_DIR", os.TempDir(), serviceLog),
		apyhub: resty.New().
			SetBaseURL(utils.GetEnv("APYHUB_BASE_URL", defaultApyhubURL, serviceLog)).
			SetTimeout(utils.GetEnvAsDuration("APYHUB_TIMEOUT", 2*time.Minute, serviceLog)),
		apyhubToken: token,
		videoSecs:   utils.GetEnvAsInt("VIDEO_MAX_SECONDS", 100, serviceLog),
	}
}

type spooled struct {
	path string
	name string
	mime *mimetype.MIME
}

// spool writes r to a fresh file in the scratch directory. The caller must
// call the returned cleanup func.
func (ms *mediaService) spool(u Upload) (*spooled, func(), error) {
	f, err := os.CreateTemp(ms.tmpDir, "upload-*"+filepath.Ext(u.Name))
	if err != nil {
		return nil, func() {}, fmt.Errorf("create scratch file: %w", err)
	}
	cleanup := func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !os.IsNotExist(rmErr) {
			ms.log.Warn("Failed to remove scratch file", "path", f.Name(), "error", rmErr)
		}
	}
	if _, err := io.Copy(f, u.Reader); err != nil {
		f.Close()
		return nil, cleanup, fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, cleanup, fmt.Errorf("close scratch file: %w", err)
	}
	mt, err := mimetype.DetectFile(f.Name())
	if err != nil {
		return nil, cleanup, fmt.Errorf("detect content type: %w", err)
	}
	return &spooled{path: f.Name(), name: u.Name, mime: mt}, cleanup, nil
}

func topLevel(mt *mimetype.MIME) string {
	s := mt.String()
	if i := strings.IndexByte(s, '/'); i > 0 {
		return s[:i]
	}
	return s
}

func (ms *mediaService) transcribeFile(ctx context.Context, path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ms.assistant.Transcribe(ctx, name, f)
}

// TranscribeAudio transcribes each upload and returns the text of the last
// one. Browser recordings often sniff as video containers, so video/* is
// accepted too.
func (ms *mediaService) TranscribeAudio(ctx context.Context, uploads []Upload) (string, error) {
	if len(uploads) == 0 {
		return "", fmt.Errorf("%w: No audio files uploaded", ErrValidation)
	}
	var text string
	for _, u := range uploads {
		got, err := ms.transcribeAudioOne(ctx, u)
		if err != nil {
			return "", err
		}
		text = got
	}
	return text, nil
}

func (ms *mediaService) transcribeAudioOne(ctx context.Context, u Upload) (string, error) {
	sp, cleanup, err := ms.spool(u)
	defer cleanup()
	if err != nil {
		return "", err
	}
	if kind := topLevel(sp.mime); kind != "audio" && kind != "video" {
		return "", fmt.Errorf("%w: %s is %s, not audio", ErrValidation, u.Name, sp.mime.String())
	}
	return ms.transcribeFile(ctx, sp.path, sp.name)
}

func (ms *mediaService) TranscribeVideo(ctx context.Context, uploads []Upload) (string, error) {
	if len(uploads) == 0 {
		return "", fmt.Errorf("%w: No video files uploaded", ErrValidation)
	}
	var text string
	for _, u := range uploads {
		got, err := ms.transcribeVideoOne(ctx, u)
		if err != nil {
			return "", err
		}
		text = got
	}
	return text, nil
}

func (ms *mediaService) transcribeVideoOne(ctx context.Context, u Upload) (string, error) {
	sp, cleanup, err := ms.spool(u)
	defer cleanup()
	if err != nil {
		return "", err
	}
	if topLevel(sp.mime) != "video" {
		return "", fmt.Errorf("%w: %s is %s, not video", ErrValidation, u.Name, sp.mime.String())
	}
	if ms.apyhubToken == "" {
		return ms.transcribeFile(ctx, sp.path, sp.name)
	}

	audio, audioCleanup, err := ms.extractAudio(ctx, sp)
	defer audioCleanup()
	if err != nil {
		return "", err
	}
	return ms.transcribeFile(ctx, audio, filepath.Base(audio))
}

type apyhubURLResponse struct {
	Data string `json:"data"`
}

// extractAudio sends the video to the audio extraction service and downloads
// the resulting mp3 into the scratch directory.
func (ms *mediaService) extractAudio(ctx context.Context, sp *spooled) (string, func(), error) {
	noop := func() {}
	var out apyhubURLResponse
	resp, err := ms.apyhub.R().
		SetContext(ctx).
		SetHeader("apy-token", ms.apyhubToken).
		SetQueryParam("output", "audio").
		SetFile("video", sp.path).
		SetFormData(map[string]string{
			"start_time":    "0",
			"duration":      fmt.Sprintf("%d", ms.videoSecs),
			"output_format": "mp3",
		}).
		SetResult(&out).
		Post("/extract/video/audio/file/url")
	if err != nil {
		return "", noop, fmt.Errorf("extract audio: %w", err)
	}
	if resp.IsError() || out.Data == "" {
		ms.log.Error("Audio extraction failed", "status", resp.StatusCode(), "body", resp.String())
		return "", noop, fmt.Errorf("extract audio: service returned %d", resp.StatusCode())
	}

	target := filepath.Join(ms.tmpDir, fmt.Sprintf("audio-%d.mp3", time.Now().UnixNano()))
	cleanup := func() {
		if rmErr := os.Remove(target); rmErr != nil && !os.IsNotExist(rmErr) {
			ms.log.Warn("Failed to remove scratch file", "path", target, "error", rmErr)
		}
	}
	dl, err := resty.New().R().
		SetContext(ctx).
		SetOutput(target).
		Get(out.Data)
	if err != nil {
		return "", cleanup, fmt.Errorf("download extracted audio: %w", err)
	}
	if dl.IsError() {
		return "", cleanup, fmt.Errorf("download extracted audio: status %d", dl.StatusCode())
	}
	return target, cleanup, nil
}

func (ms *mediaService) UploadImages(ctx context.Context, uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: No files uploaded", ErrValidation)
	}
	ids := make([]string, 0, len(uploads))
	for _, u := range uploads {
		id, err := ms.uploadImageOne(ctx, u)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (ms *mediaService) uploadImageOne(ctx context.Context, u Upload) (string, error) {
	sp, cleanup, err := ms.spool(u)
	defer cleanup()
	if err != nil {
		return "", err
	}
	if topLevel(sp.mime) != "image" {
		return "", fmt.Errorf("%w: %s is %s, not an image", ErrValidation, u.Name, sp.mime.String())
	}
	f, err := os.Open(sp.path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ms.assistant.UploadFile(ctx, sp.name, f)
}

func (ms *mediaService) ExtractPDFText(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty document", ErrValidation)
	}
	if mt := mimetype.Detect(data); !mt.Is("application/pdf") {
		return "", fmt.Errorf("%w: document is %s, not a PDF", ErrValidation, mt.String())
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		ms.log.Error("Failed to open PDF", "error", err)
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return NormalizeExtractedText(buf.String()), nil
}

// NormalizeExtractedText joins letters some PDF writers space out one glyph
// at a time and trims the result.
func NormalizeExtractedText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) > 2 && allSingleRunes(fields) {
			lines[i] = strings.Join(fields, "")
			continue
		}
		lines[i] = strings.Join(fields, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func allSingleRunes(fields []string) bool {
	for _, f := range fields {
		if len([]rune(f)) != 1 {
			return false
		}
	}
	return true
}
