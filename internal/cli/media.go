package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/shortsmith/internal/assembly"
	"github.com/apresai/shortsmith/internal/media"
	"github.com/apresai/shortsmith/internal/plan"
)

var (
	flagImageOutput   string
	flagEditOutput    string
	flagInstruction   string
	flagSegment       int
	flagVoiceOutput   string
	flagMP3           bool
	flagMediaLanguage string
)

var imageCmd = &cobra.Command{
	Use:   "image <result.json>",
	Short: "Render the hook image from the first segment of a saved plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runImage,
}

var editImageCmd = &cobra.Command{
	Use:   "edit-image <image-path|data-uri>",
	Short: "Edit an image with a text instruction",
	Args:  cobra.ExactArgs(1),
	RunE:  runEditImage,
}

var voiceoverCmd = &cobra.Command{
	Use:   "voiceover <result.json>",
	Short: "Synthesize the voiceover for one segment of a saved plan",
	Long:  "Writes raw PCM (24 kHz, mono, signed 16-bit little-endian). With --mp3 and FFmpeg installed, also writes an MP3.",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoiceover,
}

func init() {
	rootCmd.AddCommand(imageCmd, editImageCmd, voiceoverCmd)

	imageCmd.Flags().StringVarP(&flagImageOutput, "output", "o", "hook.png", "Output image path")

	editImageCmd.Flags().StringVarP(&flagInstruction, "instruction", "i", "", "What to change (required)")
	editImageCmd.Flags().StringVarP(&flagEditOutput, "output", "o", "edited.png", "Output image path")
	_ = editImageCmd.MarkFlagRequired("instruction")

	voiceoverCmd.Flags().IntVarP(&flagSegment, "segment", "s", 1, "Segment number (1-based)")
	voiceoverCmd.Flags().StringVarP(&flagVoiceOutput, "output", "o", "", "Output PCM path (default segment-N.pcm)")
	voiceoverCmd.Flags().BoolVar(&flagMP3, "mp3", false, "Also convert to MP3 (requires FFmpeg)")
	voiceoverCmd.Flags().StringVar(&flagMediaLanguage, "language", "", "Voice language tag for cloudtts (default: plan language)")
}

func mediaForCommand(ctx context.Context, languageTag string, needGemini bool) (*media.Service, func() error, error) {
	cfg, err := backendConfig(languageTag)
	if err != nil {
		return nil, nil, err
	}
	if err := checkAPIKeys(cfg, needGemini); err != nil {
		return nil, nil, err
	}
	return newMediaService(ctx, cfg)
}

func runImage(cmd *cobra.Command, args []string) error {
	res, err := plan.LoadResult(args[0])
	if err != nil {
		return err
	}
	if len(res.VideoPlans) == 0 {
		return fmt.Errorf("%s has no video plans", args[0])
	}

	svc, closeFn, err := mediaForCommand(cmd.Context(), res.VideoPlans[0].Language, true)
	if err != nil {
		return err
	}
	defer closeFn()

	uri, err := svc.GenerateHookImage(cmd.Context(), res.VideoPlans[0])
	if err != nil {
		return err
	}
	return writeDataURI(cmd, uri, flagImageOutput)
}

func runEditImage(cmd *cobra.Command, args []string) error {
	uri, err := readImageArg(args[0])
	if err != nil {
		return err
	}

	svc, closeFn, err := mediaForCommand(cmd.Context(), "", true)
	if err != nil {
		return err
	}
	defer closeFn()

	edited, err := svc.EditHookImage(cmd.Context(), uri, flagInstruction)
	if err != nil {
		return err
	}
	return writeDataURI(cmd, edited, flagEditOutput)
}

// readImageArg accepts a data URI as-is or encodes a PNG/JPEG/WEBP file.
func readImageArg(arg string) (media.DataURI, error) {
	if strings.HasPrefix(arg, "data:") {
		return media.DataURI(arg), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := media.ImageMIME(data)
	if mime == "" {
		return "", fmt.Errorf("%s is not a PNG, JPEG or WEBP image", arg)
	}
	return media.EncodeDataURI(mime, data), nil
}

func writeDataURI(cmd *cobra.Command, uri media.DataURI, path string) error {
	img, err := media.ParseDataURI(uri)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Image saved to %s (%s, %d bytes)\n", path, img.MIMEType, len(img.Data))
	return nil
}

func runVoiceover(cmd *cobra.Command, args []string) error {
	res, err := plan.LoadResult(args[0])
	if err != nil {
		return err
	}
	script, err := segmentScript(res, flagSegment)
	if err != nil {
		return err
	}

	lang := flagMediaLanguage
	if lang == "" && len(res.VideoPlans) > 0 {
		lang = res.VideoPlans[0].Language
	}
	svc, closeFn, err := mediaForCommand(cmd.Context(), lang, true)
	if err != nil {
		return err
	}
	defer closeFn()

	pcm, err := svc.SegmentAudio(cmd.Context(), script)
	if err != nil {
		return err
	}

	out := flagVoiceOutput
	if out == "" {
		out = fmt.Sprintf("segment-%d.pcm", flagSegment)
	}
	if err := os.WriteFile(out, pcm, 0644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Audio saved to %s (%d bytes, 24 kHz mono s16le)\n", out, len(pcm))

	if !flagMP3 {
		return nil
	}
	if !assembly.Available() {
		return fmt.Errorf("FFmpeg not found, install it to use --mp3")
	}
	mp3 := strings.TrimSuffix(out, filepath.Ext(out)) + ".mp3"
	if err := assembly.PCMToMP3(cmd.Context(), out, mp3); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "MP3 saved to %s\n", mp3)
	return nil
}

// segmentScript returns the voiceover script of 1-based segment n.
func segmentScript(res *plan.Result, n int) (plan.VoiceoverScript, error) {
	if n < 1 || n > len(res.VoiceoverScripts) {
		return plan.VoiceoverScript{}, fmt.Errorf("segment %d out of range: plan has %d segments", n, len(res.VoiceoverScripts))
	}
	return res.VoiceoverScripts[n-1], nil
}
