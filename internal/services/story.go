package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/storynest/storynest-backend/internal/data/repos"
	"github.com/storynest/storynest-backend/internal/domain"
	apperrors "github.com/storynest/storynest-backend/internal/pkg/errors"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
	"github.com/storynest/storynest-backend/internal/storage"
)

// CreditCostPerStory is debited once per successfully persisted story.
const CreditCostPerStory = 1

type StoryService interface {
	CreateStory(ctx context.Context, userID uuid.UUID, req domain.GenerationRequest) (*domain.Story, []*domain.StorySegment, error)
	ListStories(ctx context.Context, userID uuid.UUID) ([]*domain.Story, error)
	GetStory(ctx context.Context, userID uuid.UUID, storyID uuid.UUID) (*domain.Story, []*domain.StorySegment, error)
	ApproveStory(ctx context.Context, userID uuid.UUID, storyID uuid.UUID, approved bool) error
	DeleteStory(ctx context.Context, userID uuid.UUID, storyID uuid.UUID) error
}

type storyService struct {
	db  *gorm.DB
	log *logger.Logger

	storyRepo   repos.StoryRepo
	segmentRepo repos.StorySegmentRepo
	creditRepo  repos.CreditRepo

	generator StoryGenerator
	compiler  PromptCompiler
	realizer  MediaRealizer
	store     MediaStore

	voice string
}

func NewStoryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	storyRepo repos.StoryRepo,
	segmentRepo repos.StorySegmentRepo,
	creditRepo repos.CreditRepo,
	generator StoryGenerator,
	compiler PromptCompiler,
	realizer MediaRealizer,
	store MediaStore,
	voice string,
) StoryService {
	return &storyService{
		db:          db,
		log:         baseLog.With("service", "StoryService"),
		storyRepo:   storyRepo,
		segmentRepo: segmentRepo,
		creditRepo:  creditRepo,
		generator:   generator,
		compiler:    compiler,
		realizer:    realizer,
		store:       store,
		voice:       voice,
	}
}

func validateRequest(req domain.GenerationRequest) error {
	if strings.TrimSpace(req.ChildName) == "" {
		return fmt.Errorf("%w: child_name required", apperrors.ErrInvalidArgument)
	}
	if req.ChildAge < 1 || req.ChildAge > 12 {
		return fmt.Errorf("%w: child_age must be between 1 and 12", apperrors.ErrInvalidArgument)
	}
	theme := strings.ToLower(strings.TrimSpace(req.Theme))
	if theme == "" {
		return fmt.Errorf("%w: theme required", apperrors.ErrInvalidArgument)
	}
	ok := false
	for _, t := range domain.Themes {
		if theme == t {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: theme must be one of %s", apperrors.ErrInvalidArgument, strings.Join(domain.Themes, ", "))
	}
	return nil
}

func (ss *storyService) CreateStory(ctx context.Context, userID uuid.UUID, req domain.GenerationRequest) (*domain.Story, []*domain.StorySegment, error) {
	if err := validateRequest(req); err != nil {
		return nil, nil, err
	}
	req.Theme = strings.ToLower(strings.TrimSpace(req.Theme))
	if strings.TrimSpace(req.MainCharacter) == "" {
		req.MainCharacter = req.ChildName
	}

	// Cheap pre-check. The locked debit in the final transaction is the
	// authority; this only avoids burning model calls on an empty account.
	balance, err := ss.creditRepo.Balance(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrNotFound
		}
		return nil, nil, err
	}
	if balance < CreditCostPerStory {
		return nil, nil, apperrors.ErrInsufficientCredits
	}

	storyID := uuid.New()
	log := ss.log.With("story_id", storyID, "user_id", userID)

	log.Info("Generating outline", "theme", req.Theme)
	outline, err := ss.generator.GenerateOutline(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	log.Info("Generating entity catalog", "title", outline.Title)
	catalog, err := ss.generator.GenerateCatalog(ctx, req, outline)
	if err != nil {
		return nil, nil, err
	}

	log.Info("Synthesizing story", "entities", len(catalog.Entities))
	content, err := ss.generator.GenerateStory(ctx, req, outline, catalog)
	if err != nil {
		return nil, nil, err
	}

	log.Info("Extracting key elements")
	content, err = ss.generator.ExtractKeyElements(ctx, content, catalog)
	if err != nil {
		return nil, nil, err
	}

	prompted := ss.compiler.CompileAll(content, catalog)

	log.Info("Realizing scene media", "scenes", len(prompted))
	media, err := ss.realizer.RealizeAll(ctx, storyID, content.Title, prompted, ss.voice)
	if err != nil {
		// Sibling scenes may have saved their assets before the batch aborted.
		orphans := make([]domain.SceneMedia, 0, len(prompted))
		for _, ps := range prompted {
			orphans = append(orphans, domain.SceneMedia{Sequence: ps.Scene.Sequence})
		}
		ss.cleanupMedia(storyID, orphans)
		return nil, nil, err
	}

	story, segments, err := ss.persist(ctx, userID, storyID, req, content, media)
	if err != nil {
		ss.cleanupMedia(storyID, media)
		return nil, nil, err
	}

	log.Info("Story persisted", "title", story.Title)
	return story, segments, nil
}

// persist writes the debit, the story and its segments in one transaction.
// Any failure rolls the whole thing back, so a user is never billed for a
// story that doesn't exist.
func (ss *storyService) persist(
	ctx context.Context,
	userID uuid.UUID,
	storyID uuid.UUID,
	req domain.GenerationRequest,
	content *domain.StoryContent,
	media []domain.SceneMedia,
) (*domain.Story, []*domain.StorySegment, error) {
	if len(media) != len(content.Scenes) {
		return nil, nil, stageFail(StagePersist, fmt.Errorf("media count %d != scene count %d", len(media), len(content.Scenes)))
	}

	var narration strings.Builder
	imageURLs := make([]string, 0, len(media))
	for i, scene := range content.Scenes {
		if i > 0 {
			narration.WriteString("\n\n")
		}
		narration.WriteString(scene.Narration)
		imageURLs = append(imageURLs, media[i].ImageURL)
	}

	story := &domain.Story{
		ID:            storyID,
		UserID:        userID,
		Title:         content.Title,
		ChildName:     req.ChildName,
		ChildAge:      req.ChildAge,
		MainCharacter: req.MainCharacter,
		Theme:         req.Theme,
		Content:       narration.String(),
		ImageURLs:     datatypes.JSON(mustJSON(imageURLs)),
	}

	segments := make([]*domain.StorySegment, 0, len(content.Scenes))
	for i, scene := range content.Scenes {
		segments = append(segments, &domain.StorySegment{
			ID:       uuid.New(),
			StoryID:  storyID,
			Sequence: scene.Sequence,
			Content:  scene.Narration,
			ImageURL: media[i].ImageURL,
			AudioURL: media[i].AudioURL,
		})
	}

	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ss.creditRepo.DebitForStory(ctx, tx, userID, storyID, CreditCostPerStory); err != nil {
			return err
		}
		if _, err := ss.storyRepo.Create(ctx, tx, []*domain.Story{story}); err != nil {
			return fmt.Errorf("create story: %w", err)
		}
		if _, err := ss.segmentRepo.Create(ctx, tx, segments); err != nil {
			return fmt.Errorf("create segments: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientCredits) {
			return nil, nil, err
		}
		return nil, nil, stageFail(StagePersist, err)
	}
	return story, segments, nil
}

// cleanupMedia removes stored assets for a story that failed to persist.
// Best effort; orphaned objects are cheap compared to a charged ghost story.
func (ss *storyService) cleanupMedia(storyID uuid.UUID, media []domain.SceneMedia) {
	ctx := context.Background()
	for _, m := range media {
		imgKey := fmt.Sprintf("%s/scene_%d.png", storyID, m.Sequence)
		if err := ss.store.Delete(ctx, storage.MediaKindImage, imgKey); err != nil {
			ss.log.Warn("failed to delete orphaned image (ignored)", "key", imgKey, "error", err)
		}
		audKey := fmt.Sprintf("%s/scene_%d.mp3", storyID, m.Sequence)
		if err := ss.store.Delete(ctx, storage.MediaKindAudio, audKey); err != nil {
			ss.log.Warn("failed to delete orphaned audio (ignored)", "key", audKey, "error", err)
		}
	}
}

func (ss *storyService) ListStories(ctx context.Context, userID uuid.UUID) ([]*domain.Story, error) {
	return ss.storyRepo.GetByUserIDs(ctx, nil, []uuid.UUID{userID})
}

func (ss *storyService) GetStory(ctx context.Context, userID uuid.UUID, storyID uuid.UUID) (*domain.Story, []*domain.StorySegment, error) {
	story, err := ss.loadOwned(ctx, userID, storyID)
	if err != nil {
		return nil, nil, err
	}
	segments, err := ss.segmentRepo.GetByStoryIDs(ctx, nil, []uuid.UUID{storyID})
	if err != nil {
		return nil, nil, err
	}
	return story, segments, nil
}

func (ss *storyService) ApproveStory(ctx context.Context, userID uuid.UUID, storyID uuid.UUID, approved bool) error {
	if _, err := ss.loadOwned(ctx, userID, storyID); err != nil {
		return err
	}
	return ss.storyRepo.SetApproved(ctx, nil, storyID, approved)
}

func (ss *storyService) DeleteStory(ctx context.Context, userID uuid.UUID, storyID uuid.UUID) error {
	story, err := ss.loadOwned(ctx, userID, storyID)
	if err != nil {
		return err
	}
	segments, err := ss.segmentRepo.GetByStoryIDs(ctx, nil, []uuid.UUID{storyID})
	if err != nil {
		return err
	}

	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ss.segmentRepo.FullDeleteByStoryIDs(ctx, tx, []uuid.UUID{storyID}); err != nil {
			return fmt.Errorf("delete segments: %w", err)
		}
		if err := ss.storyRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{storyID}); err != nil {
			return fmt.Errorf("delete story: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	media := make([]domain.SceneMedia, 0, len(segments))
	for _, seg := range segments {
		media = append(media, domain.SceneMedia{Sequence: seg.Sequence})
	}
	ss.cleanupMedia(story.ID, media)
	return nil
}

func (ss *storyService) loadOwned(ctx context.Context, userID uuid.UUID, storyID uuid.UUID) (*domain.Story, error) {
	rows, err := ss.storyRepo.GetByIDs(ctx, nil, []uuid.UUID{storyID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, apperrors.ErrNotFound
	}
	if rows[0].UserID != userID {
		// Hide other users' stories rather than confirming they exist.
		return nil, apperrors.ErrNotFound
	}
	return rows[0], nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
