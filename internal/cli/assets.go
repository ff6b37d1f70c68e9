package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apresai/shortsmith/internal/assembly"
	"github.com/apresai/shortsmith/internal/genai"
	"github.com/apresai/shortsmith/internal/media"
	"github.com/apresai/shortsmith/internal/plan"
)

// assetParallelism bounds concurrent image and speech calls for one plan.
const assetParallelism = 3

// newMediaService builds the image and speech backends for cfg. The returned
// close func is never nil.
func newMediaService(ctx context.Context, cfg genai.Config) (*media.Service, func() error, error) {
	images, err := genai.NewImages(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	speech, closeFn, err := genai.NewSpeech(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return &media.Service{Images: images, Speech: speech}, closeFn, nil
}

// writeAssets renders res's hook image and per-segment voiceover into dir and
// returns the written paths. When FFmpeg is available the segments are also
// joined into voiceover.mp3 on the video timeline.
func writeAssets(ctx context.Context, cfg genai.Config, res *plan.Result, dir string) ([]string, error) {
	svc, closeFn, err := newMediaService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	assets, err := svc.RenderAssets(ctx, res, assetParallelism)
	if err != nil {
		return nil, err
	}
	return saveAssets(ctx, assets, dir, assembly.NewFFmpegAssembler(), assembly.Available())
}

func saveAssets(ctx context.Context, assets *media.Assets, dir string, voice assembly.VoiceTrackBuilder, ffmpeg bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create assets dir: %w", err)
	}

	img, err := media.ParseDataURI(assets.HookImage)
	if err != nil {
		return nil, err
	}
	hook := filepath.Join(dir, "hook"+imageExt(img.MIMEType))
	if err := os.WriteFile(hook, img.Data, 0644); err != nil {
		return nil, fmt.Errorf("write hook image: %w", err)
	}
	paths := []string{hook}

	segments := make([]string, len(assets.Audio))
	for i, pcm := range assets.Audio {
		segments[i] = filepath.Join(dir, fmt.Sprintf("segment-%d.pcm", i+1))
		if err := os.WriteFile(segments[i], pcm, 0644); err != nil {
			return nil, fmt.Errorf("write segment %d audio: %w", i+1, err)
		}
	}
	paths = append(paths, segments...)

	if !ffmpeg || len(segments) == 0 {
		logger.Info("FFmpeg not found, skipping voiceover.mp3")
		return paths, nil
	}

	tmpDir, err := os.MkdirTemp("", "shortsmith-voice-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	track := filepath.Join(dir, "voiceover.mp3")
	if err := voice.BuildVoiceTrack(ctx, segments, tmpDir, track); err != nil {
		return nil, fmt.Errorf("assemble voiceover: %w", err)
	}
	return append(paths, track), nil
}

func imageExt(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
