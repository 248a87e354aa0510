package classifier

import (
	"encoding/base64"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// DefaultAudioFormat is used when neither the content type nor the file name
// reveals a supported container.
const DefaultAudioFormat = "wav"

const answerRules = "Answer with only the common English name of the animal, for example \"Red Fox\". " +
	"If you cannot identify an animal with reasonable confidence, answer exactly " + Sentinel + ". " +
	"Do not add any other words, punctuation or explanation."

const (
	photoPrompt = "You are an expert wildlife biologist. Identify the animal in this photo. " + answerRules

	audioPrompt = "You are an expert wildlife biologist specializing in animal calls. " +
		"Identify the animal making the sound in this recording. " + answerRules

	combinedPrompt = "You are an expert wildlife biologist. The photo and the recording were captured " +
		"together and show the same animal. Use both jointly to identify it. " + answerRules
)

var prompts = map[Modality]string{
	ModalityPhoto:         photoPrompt,
	ModalityAudio:         audioPrompt,
	ModalityPhotoAndAudio: combinedPrompt,
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Modalities  []string      `json:"modalities,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	ImageURL   *imageURL   `json:"image_url,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// buildChatRequest assembles a single user message: the prompt first, then
// the image, then the audio.
func buildChatRequest(model string, req *Request) chatRequest {
	parts := []contentPart{{Type: "text", Text: prompts[req.Modality]}}

	if req.Modality.hasImage() {
		parts = append(parts, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL: "data:" + imageType(req) + ";base64," + base64.StdEncoding.EncodeToString(req.Image),
			},
		})
	}

	var modalities []string
	if req.Modality.hasAudio() {
		format := req.AudioFormat
		if format == "" {
			format = DefaultAudioFormat
		}
		parts = append(parts, contentPart{
			Type: "input_audio",
			InputAudio: &inputAudio{
				Data:   base64.StdEncoding.EncodeToString(req.Audio),
				Format: format,
			},
		})
		// audio-capable models answer with speech unless told otherwise
		modalities = []string{"text"}
	}

	return chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		Temperature: 0,
		Modalities:  modalities,
	}
}

// imageType returns the declared image MIME type or sniffs one from the bytes.
func imageType(req *Request) string {
	if req.ImageType != "" {
		return req.ImageType
	}
	detected := http.DetectContentType(req.Image)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return "image/jpeg"
}

var audioFormatsByType = map[string]string{
	"audio/wav":      "wav",
	"audio/wave":     "wav",
	"audio/x-wav":    "wav",
	"audio/vnd.wave": "wav",
	"audio/mpeg":     "mp3",
	"audio/mp3":      "mp3",
	"audio/mpeg3":    "mp3",
	"audio/x-mpeg":   "mp3",
}

var audioFormatsByExt = map[string]string{
	".wav":  "wav",
	".wave": "wav",
	".mp3":  "mp3",
}

// ResolveAudioFormat maps an upload's content type or file name to the
// container name the model accepts. Content type wins over the extension.
func ResolveAudioFormat(contentType, filename string) string {
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			if format, ok := audioFormatsByType[strings.ToLower(mediaType)]; ok {
				return format
			}
		}
	}
	if format, ok := audioFormatsByExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return format
	}
	return DefaultAudioFormat
}
