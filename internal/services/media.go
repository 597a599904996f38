package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/storynest/storynest-backend/internal/domain"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
	"github.com/storynest/storynest-backend/internal/storage"
)

// MediaRealizer turns prompted scenes into stored image and audio assets.
// All scene jobs run concurrently. An image failure degrades that scene to a
// rendered placeholder; an audio failure aborts the whole batch, since a
// read-aloud story without narration is not worth billing for.
type MediaRealizer interface {
	RealizeAll(ctx context.Context, storyID uuid.UUID, title string, scenes []domain.PromptedScene, voice string) ([]domain.SceneMedia, error)
}

type mediaRealizer struct {
	log      *logger.Logger
	ai       OpenAIClient
	store    MediaStore
	fallback FallbackRenderer
}

func NewMediaRealizer(baseLog *logger.Logger, ai OpenAIClient, store MediaStore, fallback FallbackRenderer) MediaRealizer {
	return &mediaRealizer{
		log:      baseLog.With("service", "MediaRealizer"),
		ai:       ai,
		store:    store,
		fallback: fallback,
	}
}

func (mr *mediaRealizer) RealizeAll(ctx context.Context, storyID uuid.UUID, title string, scenes []domain.PromptedScene, voice string) ([]domain.SceneMedia, error) {
	if len(scenes) == 0 {
		return nil, stageFail(StageMedia, fmt.Errorf("no scenes to realize"))
	}

	results := make([]domain.SceneMedia, len(scenes))
	g, gctx := errgroup.WithContext(ctx)

	for i := range scenes {
		i := i
		ps := scenes[i]
		results[i].Sequence = ps.Scene.Sequence

		g.Go(func() error {
			url, usedFallback, err := mr.realizeImage(gctx, storyID, title, ps)
			if err != nil {
				return err
			}
			results[i].ImageURL = url
			results[i].ImageFallback = usedFallback
			return nil
		})

		g.Go(func() error {
			url, err := mr.realizeAudio(gctx, storyID, ps, voice)
			if err != nil {
				// Audio is fatal for the batch; errgroup cancels the rest.
				return stageFail(StageMedia, fmt.Errorf("scene %d audio: %w", ps.Scene.Sequence, err))
			}
			results[i].AudioURL = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(a, b int) bool { return results[a].Sequence < results[b].Sequence })
	return results, nil
}

// realizeImage saves the generated illustration, or a rendered placeholder
// when generation fails. Only a placeholder that itself cannot be rendered or
// stored is an error.
func (mr *mediaRealizer) realizeImage(ctx context.Context, storyID uuid.UUID, title string, ps domain.PromptedScene) (string, bool, error) {
	key := fmt.Sprintf("%s/scene_%d.png", storyID, ps.Scene.Sequence)

	gen, genErr := mr.ai.GenerateImage(ctx, ps.Prompt)
	if genErr == nil {
		url, err := mr.store.Save(ctx, storage.MediaKindImage, key, gen.Bytes)
		if err == nil {
			return url, false, nil
		}
		genErr = err
	}

	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}

	mr.log.Warn("Scene illustration failed, using placeholder",
		"story_id", storyID,
		"sequence", ps.Scene.Sequence,
		"error", genErr.Error(),
	)

	placeholder, err := mr.fallback.Render(title)
	if err != nil {
		return "", false, stageFail(StageMedia, fmt.Errorf("scene %d placeholder render: %w", ps.Scene.Sequence, err))
	}
	url, err := mr.store.Save(ctx, storage.MediaKindImage, key, placeholder)
	if err != nil {
		return "", false, stageFail(StageMedia, fmt.Errorf("scene %d placeholder save: %w", ps.Scene.Sequence, err))
	}
	return url, true, nil
}

func (mr *mediaRealizer) realizeAudio(ctx context.Context, storyID uuid.UUID, ps domain.PromptedScene, voice string) (string, error) {
	gen, err := mr.ai.GenerateSpeech(ctx, ps.Scene.Narration, voice)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/scene_%d.mp3", storyID, ps.Scene.Sequence)
	return mr.store.Save(ctx, storage.MediaKindAudio, key, gen.Bytes)
}
