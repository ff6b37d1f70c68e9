package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/apresai/shortsmith/internal/genai"
	"github.com/apresai/shortsmith/internal/ingest"
	"github.com/apresai/shortsmith/internal/observability"
	"github.com/apresai/shortsmith/internal/pipeline"
	"github.com/apresai/shortsmith/internal/plan"
	"github.com/apresai/shortsmith/internal/platform"
	"github.com/apresai/shortsmith/internal/progress"
)

var Version = "dev"

// OutputBaseDir is where generated plans land when --output has no directory.
const OutputBaseDir = "shortsmith-output"

var rootCmd = &cobra.Command{
	Use:           "shortsmith",
	Short:         "Plan short-form videos: shot lists, voiceover and publishing metadata",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; a malformed one is not.
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		logger = observability.InitLogger(os.Stderr, level, observability.FormatText)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		flagTUI = true
		return runGenerate(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "shortsmith %s\n", Version)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a video plan for one topic",
	RunE:  runGenerate,
}

var logger = slog.Default()

var (
	flagPlatform        string
	flagTopic           string
	flagPersona         string
	flagPersonaFile     string
	flagDuration        int
	flagCaptions        bool
	flagTone            string
	flagEmoji           bool
	flagEmojiStyle      string
	flagMascot          string
	flagExtras          []string
	flagLanguage        string
	flagSource          string
	flagPreset          string
	flagOutput          string
	flagBackend         string
	flagModel           string
	flagAssets          bool
	flagSpeech          string
	flagGeminiAPIKey    string
	flagAnthropicAPIKey string
	flagVerbose         bool
	flagTUI             bool
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable detailed logging")
	addBackendFlags(rootCmd)
	addGenerateFlags(generateCmd)
}

// addGenerateFlags registers the request flags and resets them to defaults.
func addGenerateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&flagPlatform, "platform", "P", string(platform.Shorts), "Target platform: tiktok, shorts, youtube, reels, shopee")
	f.StringVarP(&flagTopic, "topic", "p", "", "What the video is about")
	f.StringVar(&flagPersona, "persona", "", "Character or brand persona description")
	f.StringVar(&flagPersonaFile, "persona-file", "", "Read the persona description from a file")
	f.IntVarP(&flagDuration, "duration", "d", 16, "Requested length in seconds (snapped to 8s segments)")
	f.BoolVar(&flagCaptions, "captions", true, "Allow on-screen text in shots")
	f.StringVarP(&flagTone, "tone", "n", platform.DefaultTone, "Voiceover tone: friendly, professional, energetic, storytelling, humorous, serious")
	f.BoolVar(&flagEmoji, "emoji", true, "Use emoji in publishing text (default: platform setting)")
	f.StringVar(&flagEmojiStyle, "emoji-style", "", "Emoji density: minimal, normal, extra (default: platform setting)")
	f.StringVar(&flagMascot, "mascot", platform.DefaultMascot, "Mascot emoji used in titles")
	f.StringArrayVar(&flagExtras, "extra", nil, "Platform extra field as key=value (repeatable)")
	f.StringVar(&flagLanguage, "language", "vi", "Output language tag: vi, en, id, th, ja")
	f.StringVar(&flagSource, "source", "", "Reference material: URL, PDF path, or text file path")
	f.StringVar(&flagPreset, "preset", "", "YAML request preset; flags override its values")
	f.StringVarP(&flagOutput, "output", "o", "", "Output file path (.json)")
	f.BoolVar(&flagAssets, "assets", false, "Also render the hook image and voiceover audio")
	f.BoolVarP(&flagTUI, "tui", "t", false, "Interactive setup form")
}

// addBackendFlags registers the backend selection flags shared by every
// command that calls a model.
func addBackendFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&flagBackend, "backend", string(genai.BackendGemini), "Text backend: gemini, vertex, claude, nova")
	f.StringVar(&flagModel, "model", "", "Model override for the text backend")
	f.StringVar(&flagSpeech, "speech", string(genai.SpeechGemini), "Speech backend: gemini, vertex, cloudtts")
	f.StringVar(&flagGeminiAPIKey, "gemini-api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	f.StringVar(&flagAnthropicAPIKey, "anthropic-api-key", "", "Anthropic API key (overrides ANTHROPIC_API_KEY env var)")
}

func Execute() error {
	return rootCmd.Execute()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// Run interactive setup if requested
	if flagTUI {
		if err := runInteractiveSetup(); err != nil {
			return err
		}
	}

	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, err := backendConfig(req.LanguageTag())
	if err != nil {
		return err
	}
	if err := checkAPIKeys(cfg, flagAssets); err != nil {
		return err
	}

	if flagSource != "" {
		ref, err := ingest.Load(cmd.Context(), flagSource)
		if err != nil {
			return fmt.Errorf("load source: %w", err)
		}
		logger.Info("Loaded reference", "kind", ref.Kind, "title", ref.Title, "words", ref.WordCount)
		req.SourceNotes = ref.Notes()
	}

	outputPath := resolveOutputPath(flagOutput, req.Platform, time.Now())
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Wire up progress bar when not in verbose mode
	onProgress := progress.NopCallback
	var bar *progress.BarRenderer
	if !flagVerbose {
		bar = progress.NewBarRenderer(os.Stdout)
		defer bar.Finish()
		onProgress = bar.Handle
	}

	gen, err := genai.NewText(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	opts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithProgress(func(e progress.Event) {
		// The final event is emitted once the files are written.
		if e.Stage != progress.StageComplete {
			onProgress(e)
		}
	})}
	if cfg.Backend == genai.BackendGemini || cfg.Backend == genai.BackendVertex {
		opts = append(opts, pipeline.WithModel(cfg.Model))
	}

	res, err := pipeline.New(gen, opts...).Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := plan.SaveResult(res, outputPath); err != nil {
		return err
	}

	var assets []string
	if flagAssets {
		onProgress(progress.Event{Stage: progress.StageAssets, Message: "Rendering hook image and voiceover", Percent: 0.97})
		assets, err = writeAssets(cmd.Context(), cfg, res, assetsDir(outputPath))
		if err != nil {
			onProgress(progress.Event{Stage: progress.StageAssets, Message: "Asset rendering failed", Error: err})
			return err
		}
	}

	onProgress(progress.Event{
		Stage:      progress.StageComplete,
		Message:    fmt.Sprintf("Generated %d segments", res.Segments),
		Percent:    1,
		OutputFile: outputPath,
		Assets:     assets,
	})
	if bar == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Plan saved to %s\n", outputPath)
	}
	return nil
}

// buildRequest layers the preset (if any) and then every explicitly set flag
// over the defaults.
func buildRequest(cmd *cobra.Command) (plan.Request, error) {
	req := plan.DefaultRequest()
	if flagPreset != "" {
		p, err := plan.LoadPreset(flagPreset)
		if err != nil {
			return req, err
		}
		req = p
	}

	f := cmd.Flags()
	set := func(name string) bool { return f.Changed(name) || flagPreset == "" || flagTUI }

	if set("platform") {
		req.Platform = platform.ID(strings.ToLower(flagPlatform))
	}
	if set("topic") {
		req.Topic = flagTopic
	}
	if flagPersona != "" {
		req.Persona = flagPersona
	}
	if flagPersonaFile != "" {
		data, err := os.ReadFile(flagPersonaFile)
		if err != nil {
			return req, fmt.Errorf("read persona file: %w", err)
		}
		req.Persona = strings.TrimSpace(string(data))
	}
	if set("duration") {
		req.DurationSec = flagDuration
	}
	if set("captions") {
		req.CaptionsEnabled = flagCaptions
	}
	if set("tone") {
		req.VoiceTone = flagTone
	}
	if f.Changed("emoji") {
		v := flagEmoji
		req.EmojiEnabled = &v
	} else if flagTUI && tuiEmoji != "" {
		v := tuiEmoji == "true"
		req.EmojiEnabled = &v
	}
	if f.Changed("emoji-style") || (flagTUI && flagEmojiStyle != "") {
		req.EmojiStyle = flagEmojiStyle
	}
	if f.Changed("mascot") {
		req.MascotEmoji = flagMascot
	}
	if set("language") {
		req.Language = flagLanguage
	}
	if len(flagExtras) > 0 {
		extras, err := plan.ParseExtras(flagExtras)
		if err != nil {
			return req, err
		}
		if req.Extras == nil {
			req.Extras = map[string]string{}
		}
		for k, v := range extras {
			req.Extras[k] = v
		}
	}
	return req, nil
}

// backendConfig resolves the backend flags and API keys.
func backendConfig(languageTag string) (genai.Config, error) {
	backend, err := genai.ParseBackend(flagBackend)
	if err != nil {
		return genai.Config{}, err
	}
	speech, err := genai.ParseSpeechBackend(flagSpeech)
	if err != nil {
		return genai.Config{}, err
	}
	return genai.Config{
		Backend:         backend,
		Speech:          speech,
		Model:           flagModel,
		GeminiAPIKey:    firstNonEmpty(flagGeminiAPIKey, os.Getenv("GEMINI_API_KEY")),
		AnthropicAPIKey: firstNonEmpty(flagAnthropicAPIKey, os.Getenv("ANTHROPIC_API_KEY")),
		LanguageCode:    platform.VoiceLocale(languageTag),
	}, nil
}

// checkAPIKeys reports the keys the chosen backends need but cannot find.
// vertex, nova and cloudtts use ambient cloud credentials.
func checkAPIKeys(cfg genai.Config, media bool) error {
	var missing []string
	if cfg.Backend == genai.BackendClaude && cfg.AnthropicAPIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	needGemini := cfg.Backend == genai.BackendGemini
	if media {
		needGemini = needGemini || cfg.Backend != genai.BackendVertex || cfg.Speech == genai.SpeechGemini
	}
	if needGemini && cfg.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variable(s): %s\nYou can also pass these via --gemini-api-key and --anthropic-api-key flags", strings.Join(missing, ", "))
	}
	return nil
}

// resolveOutputPath places bare file names under OutputBaseDir and makes sure
// the result ends in .json.
func resolveOutputPath(output string, id platform.ID, now time.Time) string {
	if output == "" {
		output = fmt.Sprintf("%s-%s.json", id, now.Format("20060102-150405"))
	}
	if !strings.EqualFold(filepath.Ext(output), ".json") {
		output += ".json"
	}
	if filepath.Dir(output) == "." {
		output = filepath.Join(OutputBaseDir, output)
	}
	return output
}

// assetsDir is the directory next to a plan file that holds its rendered assets.
func assetsDir(planPath string) string {
	return strings.TrimSuffix(planPath, filepath.Ext(planPath)) + "-assets"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
