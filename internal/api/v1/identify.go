// internal/api/v1/identify.go
package api

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/classifier"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
)

// maxUploadBytes caps a single media upload.
const maxUploadBytes = 25 << 20

// upload is one multipart media file read into memory.
type upload struct {
	data        []byte
	contentType string
	filename    string
}

func (c *Controller) initIdentifyRoutes() {
	g := c.Group.Group("/identify")
	g.POST("/photo", c.IdentifyPhoto)
	g.POST("/audio", c.IdentifyAudio)
	g.POST("/combined", c.IdentifyCombined)
}

// IdentifyPhoto handles POST /v1/identify/photo with a multipart "photo" field.
func (c *Controller) IdentifyPhoto(ctx echo.Context) error {
	photo, err := readUpload(ctx, "photo")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid photo upload", http.StatusBadRequest)
	}

	return c.identify(ctx, classifier.Request{
		Modality:  classifier.ModalityPhoto,
		Image:     photo.data,
		ImageType: imageContentType(photo.contentType),
	})
}

// IdentifyAudio handles POST /v1/identify/audio with a multipart "audio" field.
func (c *Controller) IdentifyAudio(ctx echo.Context) error {
	audio, err := readUpload(ctx, "audio")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid audio upload", http.StatusBadRequest)
	}

	return c.identify(ctx, classifier.Request{
		Modality:    classifier.ModalityAudio,
		Audio:       audio.data,
		AudioFormat: classifier.ResolveAudioFormat(audio.contentType, audio.filename),
	})
}

// IdentifyCombined handles POST /v1/identify/combined with both "photo" and
// "audio" fields.
func (c *Controller) IdentifyCombined(ctx echo.Context) error {
	photo, err := readUpload(ctx, "photo")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid photo upload", http.StatusBadRequest)
	}
	audio, err := readUpload(ctx, "audio")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid audio upload", http.StatusBadRequest)
	}

	return c.identify(ctx, classifier.Request{
		Modality:    classifier.ModalityPhotoAndAudio,
		Image:       photo.data,
		ImageType:   imageContentType(photo.contentType),
		Audio:       audio.data,
		AudioFormat: classifier.ResolveAudioFormat(audio.contentType, audio.filename),
	})
}

// identify runs the pipeline. A sentinel outcome is a normal 200 response.
func (c *Controller) identify(ctx echo.Context, req classifier.Request) error {
	outcome, err := c.deps.Identifier.Identify(ctx.Request().Context(), req)
	if err != nil {
		return c.HandleError(ctx, err, "Identification failed", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, outcome)
}

// readUpload reads a multipart file field fully into memory.
func readUpload(ctx echo.Context, field string) (*upload, error) {
	header, err := ctx.FormFile(field)
	if err != nil {
		return nil, uploadError("missing multipart field", field, err)
	}

	file, err := header.Open()
	if err != nil {
		return nil, uploadError("cannot open upload", field, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, uploadError("cannot read upload", field, err)
	}
	switch {
	case len(data) == 0:
		return nil, uploadError("upload is empty", field, nil)
	case len(data) > maxUploadBytes:
		return nil, uploadError("upload is too large", field, nil)
	}

	return &upload{
		data:        data,
		contentType: header.Header.Get("Content-Type"),
		filename:    header.Filename,
	}, nil
}

// imageContentType keeps only a parseable image/* media type, without
// parameters. Anything else returns "" so the classifier sniffs the bytes.
func imageContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return ""
	}
	return mediaType
}

func uploadError(msg, field string, cause error) error {
	err := errors.NewStd(msg)
	if cause != nil {
		err = errors.Join(err, cause)
	}
	return errors.New(err).
		Component("api").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}
