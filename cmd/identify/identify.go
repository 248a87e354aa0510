package identify

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/app"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/classifier"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

// Command creates the command that identifies an animal from local files.
func Command(ctx *app.Context) *cobra.Command {
	var photoPath, audioPath string

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Identify an animal from a photo, a recording or both",
		Long: "Run the identification pipeline on local media and print the result as JSON. " +
			"Pass --photo, --audio or both.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(photoPath, audioPath)
			if err != nil {
				return err
			}

			services, err := app.NewServices(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := services.Close(); err != nil {
					logger.Global().Module("main").Warn("failed to close services", logger.Error(err))
				}
			}()

			outcome, err := services.Identify.Identify(cmd.Context(), req)
			if err != nil {
				return err
			}
			return app.PrintJSON(cmd.OutOrStdout(), outcome)
		},
	}

	cmd.Flags().StringVarP(&photoPath, "photo", "p", "", "Path to a JPEG, PNG, GIF or WebP photo")
	cmd.Flags().StringVarP(&audioPath, "audio", "a", "", "Path to a WAV or MP3 recording")

	return cmd
}

// buildRequest reads the media files and picks the modality from which of
// them were given.
func buildRequest(photoPath, audioPath string) (classifier.Request, error) {
	var req classifier.Request

	switch {
	case photoPath != "" && audioPath != "":
		req.Modality = classifier.ModalityPhotoAndAudio
	case photoPath != "":
		req.Modality = classifier.ModalityPhoto
	case audioPath != "":
		req.Modality = classifier.ModalityAudio
	default:
		return req, errors.ValidationError("at least one of --photo or --audio is required")
	}

	if photoPath != "" {
		data, err := os.ReadFile(photoPath)
		if err != nil {
			return req, fmt.Errorf("failed to read photo: %w", err)
		}
		req.Image = data
	}
	if audioPath != "" {
		data, err := os.ReadFile(audioPath)
		if err != nil {
			return req, fmt.Errorf("failed to read audio: %w", err)
		}
		req.Audio = data
		req.AudioFormat = classifier.ResolveAudioFormat("", filepath.Base(audioPath))
	}

	return req, nil
}
