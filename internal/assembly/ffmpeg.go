// Package assembly turns per-segment voiceover PCM into MP3 files with FFmpeg.
package assembly

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apresai/shortsmith/internal/genai"
	"github.com/apresai/shortsmith/internal/platform"
)

// Audio quality constants for consistent output across all FFmpeg operations.
const (
	AudioBitrate    = "192k"
	AudioSampleRate = "44100"
	AudioChannels   = "2"
	AudioCodec      = "libmp3lame"
	AudioQuality    = "0" // LAME quality (0 = best)
	AudioResampler  = "aresample=resampler=soxr"
)

// VoiceTrackBuilder joins segment audio into one track.
type VoiceTrackBuilder interface {
	BuildVoiceTrack(ctx context.Context, segments []string, tmpDir string, output string) error
}

// FFmpegAssembler shells out to the ffmpeg binary on PATH.
type FFmpegAssembler struct {
	// SegmentSeconds is the slot each segment is padded to.
	SegmentSeconds int
}

func NewFFmpegAssembler() *FFmpegAssembler {
	return &FFmpegAssembler{SegmentSeconds: platform.SegmentSeconds}
}

// Available reports whether ffmpeg can be found on PATH.
func Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// BuildVoiceTrack pads every segment's PCM to the segment slot and
// concatenates them, so segment i starts at (i-1)*SegmentSeconds in output.
func (a *FFmpegAssembler) BuildVoiceTrack(ctx context.Context, segments []string, tmpDir string, output string) error {
	if len(segments) == 0 {
		return fmt.Errorf("no audio segments to assemble")
	}

	padded := make([]string, len(segments))
	for i, seg := range segments {
		padded[i] = filepath.Join(tmpDir, fmt.Sprintf("padded-%03d.mp3", i+1))
		if err := encodePCM(ctx, seg, padded[i], padFilter(a.SegmentSeconds)); err != nil {
			return fmt.Errorf("pad segment %d: %w", i+1, err)
		}
	}

	listPath := filepath.Join(tmpDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(buildConcatList(padded)), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	if err := runFFmpegConcat(ctx, listPath, output); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

// PCMToMP3 converts one raw PCM file (24 kHz, mono, s16le) to MP3.
func PCMToMP3(ctx context.Context, input string, output string) error {
	return encodePCM(ctx, input, output, AudioResampler)
}

// padFilter extends short audio with silence and cuts long audio so every
// segment fills exactly seconds.
func padFilter(seconds int) string {
	if seconds <= 0 {
		return AudioResampler
	}
	s := strconv.Itoa(seconds)
	return "apad=whole_dur=" + s + ",atrim=0:" + s + "," + AudioResampler
}

// buildConcatList renders an ffmpeg concat demuxer list.
func buildConcatList(files []string) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(f, "'", `'\''`))
	}
	return b.String()
}

func pcmInputArgs(input string) []string {
	return []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(genai.PCMSampleRate),
		"-ac", strconv.Itoa(genai.PCMChannels),
		"-i", input,
	}
}

func mp3OutputArgs(filter, output string) []string {
	return []string{
		"-af", filter,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-q:a", AudioQuality,
		"-ar", AudioSampleRate,
		"-ac", AudioChannels,
		"-y",
		output,
	}
}

func encodePCM(ctx context.Context, input, output, filter string) error {
	args := append(pcmInputArgs(input), mp3OutputArgs(filter, output)...)
	if err := runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg conversion (pcm → mp3) failed: %w", err)
	}
	return nil
}

func runFFmpegConcat(ctx context.Context, listPath string, output string) error {
	args := append([]string{"-f", "concat", "-safe", "0", "-i", listPath}, mp3OutputArgs(AudioResampler, output)...)
	if err := runFFmpeg(ctx, args); err != nil {
		return err
	}

	// Verify output exists and has non-zero size
	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file is empty")
	}
	return nil
}

func runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	cmd.Stdout = nil

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w\n%s", err, stderr.String())
	}
	return nil
}
