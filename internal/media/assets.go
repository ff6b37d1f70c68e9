package media

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/plan"
)

// Assets are the rendered media for one result.
type Assets struct {
	HookImage DataURI
	// Audio[i] is the PCM for segment i+1.
	Audio [][]byte
}

// RenderAssets renders the hook image from the first plan and the audio of
// every segment concurrently, at most parallel requests at a time. It fails
// as soon as any render fails.
func (s *Service) RenderAssets(ctx context.Context, res *plan.Result, parallel int) (*Assets, error) {
	if res == nil || len(res.VideoPlans) == 0 {
		return nil, apperr.Invalid("result has no video plans")
	}
	if parallel <= 0 {
		parallel = 2
	}

	out := &Assets{Audio: make([][]byte, len(res.VoiceoverScripts))}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	g.Go(func() error {
		uri, err := s.GenerateHookImage(ctx, res.VideoPlans[0])
		if err != nil {
			return err
		}
		out.HookImage = uri
		return nil
	})
	for i, script := range res.VoiceoverScripts {
		g.Go(func() error {
			pcm, err := s.SegmentAudio(ctx, script)
			if err != nil {
				return fmt.Errorf("segment %d audio: %w", i+1, err)
			}
			out.Audio[i] = pcm
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
