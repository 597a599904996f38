package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/storynest/storynest-backend/internal/domain"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

// Pipeline stage names, in execution order.
const (
	StageOutline     = "outline"
	StageCatalog     = "catalog"
	StageStory       = "story"
	StageKeyElements = "key_elements"
	StagePrompts     = "prompts"
	StageMedia       = "media"
	StagePersist     = "persist"
)

// StageError marks which pipeline stage failed. Earlier stage results stay
// valid; nothing before the failing stage is rolled back or re-run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func stageFail(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StoryGenerator runs the text stages of the pipeline. Each call is one
// model round trip plus strict validation of the result.
type StoryGenerator interface {
	GenerateOutline(ctx context.Context, req domain.GenerationRequest) (*domain.Outline, error)
	GenerateCatalog(ctx context.Context, req domain.GenerationRequest, outline *domain.Outline) (*domain.EntityCatalog, error)
	GenerateStory(ctx context.Context, req domain.GenerationRequest, outline *domain.Outline, catalog *domain.EntityCatalog) (*domain.StoryContent, error)
	ExtractKeyElements(ctx context.Context, content *domain.StoryContent, catalog *domain.EntityCatalog) (*domain.StoryContent, error)
}

type storyGenerator struct {
	log *logger.Logger
	ai  OpenAIClient
}

func NewStoryGenerator(baseLog *logger.Logger, ai OpenAIClient) StoryGenerator {
	return &storyGenerator{
		log: baseLog.With("service", "StoryGenerator"),
		ai:  ai,
	}
}

func (sg *storyGenerator) GenerateOutline(ctx context.Context, req domain.GenerationRequest) (*domain.Outline, error) {
	outlineSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"scenes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sequence":            map[string]any{"type": "integer"},
						"key_events":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"setting":             map[string]any{"type": "string"},
						"characters_involved": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"emotional_tone":      map[string]any{"type": "string"},
					},
					"required":             []string{"sequence", "key_events", "setting", "characters_involved", "emotional_tone"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"title", "scenes"},
		"additionalProperties": false,
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt,
		"Child: %s, age %d.\nMain character: %s.\nTheme: %s.\nLanguage: %s.\n",
		req.ChildName, req.ChildAge, req.MainCharacter, req.Theme, languageOrDefault(req.Language),
	)
	if strings.TrimSpace(req.PreviousStory) != "" {
		fmt.Fprintf(&prompt, "\nThis is a sequel. The previous story was:\n%s\n", req.PreviousStory)
	}
	fmt.Fprintf(&prompt,
		"\nWrite a story title and an arc of exactly %d scenes. For each scene give the key events in order, the setting, every character involved (always include %s) and the emotional tone.",
		domain.SceneCount, req.MainCharacter,
	)

	raw, err := sg.ai.GenerateJSON(ctx,
		"You outline short bedtime stories for young children. Stories are gentle, positive and age-appropriate.",
		prompt.String(),
		"story_outline",
		outlineSchema,
	)
	if err != nil {
		return nil, stageFail(StageOutline, err)
	}

	var outline domain.Outline
	if err := decodeStageJSON(raw, &outline); err != nil {
		return nil, stageFail(StageOutline, err)
	}
	if strings.TrimSpace(outline.Title) == "" {
		return nil, stageFail(StageOutline, fmt.Errorf("outline missing title"))
	}
	if len(outline.Scenes) != domain.SceneCount {
		return nil, stageFail(StageOutline, fmt.Errorf("outline has %d scenes, want %d", len(outline.Scenes), domain.SceneCount))
	}
	mainSeen := false
	for i := range outline.Scenes {
		s := &outline.Scenes[i]
		s.Sequence = i + 1
		s.KeyEvents = compactStrings(s.KeyEvents)
		if len(s.KeyEvents) == 0 {
			return nil, stageFail(StageOutline, fmt.Errorf("scene %d has no key events", s.Sequence))
		}
		if strings.TrimSpace(s.Setting) == "" {
			return nil, stageFail(StageOutline, fmt.Errorf("scene %d has empty setting", s.Sequence))
		}
		if strings.TrimSpace(s.EmotionalTone) == "" {
			return nil, stageFail(StageOutline, fmt.Errorf("scene %d has empty emotional tone", s.Sequence))
		}
		s.Characters = compactStrings(s.Characters)
		if len(s.Characters) == 0 {
			return nil, stageFail(StageOutline, fmt.Errorf("scene %d has no characters", s.Sequence))
		}
		for _, name := range s.Characters {
			if strings.EqualFold(name, strings.TrimSpace(req.MainCharacter)) {
				mainSeen = true
			}
		}
	}
	if !mainSeen {
		return nil, stageFail(StageOutline, fmt.Errorf("outline never involves the main character %q", req.MainCharacter))
	}
	return &outline, nil
}

func (sg *storyGenerator) GenerateCatalog(ctx context.Context, req domain.GenerationRequest, outline *domain.Outline) (*domain.EntityCatalog, error) {
	catalogSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entities": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        map[string]any{"type": "string"},
						"kind":        map[string]any{"type": "string", "enum": []string{domain.EntityKindCharacter, domain.EntityKindObject, domain.EntityKindSetting}},
						"description": map[string]any{"type": "string"},
					},
					"required":             []string{"name", "kind", "description"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"entities"},
		"additionalProperties": false,
	}

	var scenes strings.Builder
	for _, s := range outline.Scenes {
		fmt.Fprintf(&scenes, "%d. [%s, %s] %s: %s\n",
			s.Sequence, s.Setting, s.EmotionalTone,
			strings.Join(s.Characters, ", "), strings.Join(s.KeyEvents, "; "))
	}

	raw, err := sg.ai.GenerateJSON(ctx,
		"You catalog the recurring characters, objects and settings of a children's story. Each visual description must be concrete and repeatable so every illustration draws the entity identically.",
		fmt.Sprintf(
			"Title: %s\nMain character: %s\n\nOutline:\n%s\nList every character, object and setting the outline names, using the outline's names verbatim, each with a short, specific visual description.",
			outline.Title, req.MainCharacter, scenes.String(),
		),
		"entity_catalog",
		catalogSchema,
	)
	if err != nil {
		return nil, stageFail(StageCatalog, err)
	}

	var catalog domain.EntityCatalog
	if err := decodeStageJSON(raw, &catalog); err != nil {
		return nil, stageFail(StageCatalog, err)
	}
	if len(catalog.Entities) == 0 {
		return nil, stageFail(StageCatalog, fmt.Errorf("catalog has no entities"))
	}
	seen := map[string]bool{}
	for _, e := range catalog.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, stageFail(StageCatalog, fmt.Errorf("catalog entity with empty name"))
		}
		if seen[name] {
			return nil, stageFail(StageCatalog, fmt.Errorf("duplicate catalog entity %q", name))
		}
		seen[name] = true
		switch e.Kind {
		case domain.EntityKindCharacter, domain.EntityKindObject, domain.EntityKindSetting:
		default:
			return nil, stageFail(StageCatalog, fmt.Errorf("entity %q has unknown kind %q", name, e.Kind))
		}
		if strings.TrimSpace(e.Description) == "" {
			return nil, stageFail(StageCatalog, fmt.Errorf("entity %q has empty description", name))
		}
	}

	// Every name the outline uses must resolve. An entity the catalog never
	// defined would drift visually from scene to scene.
	for _, s := range outline.Scenes {
		for _, name := range s.Characters {
			if catalog.Find(name) == nil {
				return nil, stageFail(StageCatalog, fmt.Errorf("scene %d character %q missing from catalog", s.Sequence, name))
			}
		}
		if catalog.Find(s.Setting) == nil {
			return nil, stageFail(StageCatalog, fmt.Errorf("scene %d setting %q missing from catalog", s.Sequence, s.Setting))
		}
	}
	return &catalog, nil
}

func (sg *storyGenerator) GenerateStory(ctx context.Context, req domain.GenerationRequest, outline *domain.Outline, catalog *domain.EntityCatalog) (*domain.StoryContent, error) {
	storySchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":      map[string]any{"type": "string"},
			"characters": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"settings":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"scenes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sequence":    map[string]any{"type": "integer"},
						"narration":   map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
					},
					"required":             []string{"sequence", "narration", "description"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"title", "characters", "settings", "scenes"},
		"additionalProperties": false,
	}

	var ctxText strings.Builder
	fmt.Fprintf(&ctxText, "Title: %s\n\nOutline:\n", outline.Title)
	for _, s := range outline.Scenes {
		fmt.Fprintf(&ctxText, "%d. [%s, %s] %s: %s\n",
			s.Sequence, s.Setting, s.EmotionalTone,
			strings.Join(s.Characters, ", "), strings.Join(s.KeyEvents, "; "))
	}
	ctxText.WriteString("\nEntities:\n")
	for _, e := range catalog.Entities {
		fmt.Fprintf(&ctxText, "- %s (%s): %s\n", e.Name, e.Kind, e.Description)
	}

	raw, err := sg.ai.GenerateJSON(ctx,
		fmt.Sprintf("You write warm, simple bedtime stories for a %d-year-old. Use short sentences and the entities exactly as described.", req.ChildAge),
		fmt.Sprintf("%s\nWrite the full narration for each of the %d scenes, in %s. Also give each scene a one-sentence visual description of what an illustration of it shows.", ctxText.String(), domain.SceneCount, languageOrDefault(req.Language)),
		"story_content",
		storySchema,
	)
	if err != nil {
		return nil, stageFail(StageStory, err)
	}

	var content domain.StoryContent
	if err := decodeStageJSON(raw, &content); err != nil {
		return nil, stageFail(StageStory, err)
	}
	if strings.TrimSpace(content.Title) == "" {
		content.Title = outline.Title
	}
	if len(content.Scenes) != domain.SceneCount {
		return nil, stageFail(StageStory, fmt.Errorf("story has %d scenes, want %d", len(content.Scenes), domain.SceneCount))
	}
	for i := range content.Scenes {
		content.Scenes[i].Sequence = i + 1
		if strings.TrimSpace(content.Scenes[i].Narration) == "" {
			return nil, stageFail(StageStory, fmt.Errorf("scene %d has empty narration", i+1))
		}
		if strings.TrimSpace(content.Scenes[i].Description) == "" {
			return nil, stageFail(StageStory, fmt.Errorf("scene %d has empty description", i+1))
		}
	}

	// Objects fold into the character list too. A prop only the catalog
	// knows about must still reach the illustration prompts.
	content.Characters = mergeEntityNames(content.Characters, catalog, domain.EntityKindCharacter, domain.EntityKindObject)
	content.Settings = mergeEntityNames(content.Settings, catalog, domain.EntityKindSetting)
	return &content, nil
}

// ExtractKeyElements assigns each scene the catalog entities its illustration
// must include. A name that does not resolve against the catalog is a hard
// failure, not something to silently drop.
func (sg *storyGenerator) ExtractKeyElements(ctx context.Context, content *domain.StoryContent, catalog *domain.EntityCatalog) (*domain.StoryContent, error) {
	elementsSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"scenes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sequence":     map[string]any{"type": "integer"},
						"key_elements": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required":             []string{"sequence", "key_elements"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"scenes"},
		"additionalProperties": false,
	}

	var ctxText strings.Builder
	ctxText.WriteString("Entities:\n")
	for _, e := range catalog.Entities {
		fmt.Fprintf(&ctxText, "- %s\n", e.Name)
	}
	ctxText.WriteString("\nScenes:\n")
	for _, s := range content.Scenes {
		fmt.Fprintf(&ctxText, "%d. %s (looks like: %s)\n", s.Sequence, s.Narration, s.Description)
	}

	raw, err := sg.ai.GenerateJSON(ctx,
		"You pick which cataloged entities appear in each scene of a children's story. Use entity names verbatim from the list.",
		fmt.Sprintf("%s\nFor each scene, return the entity names that must appear in its illustration.", ctxText.String()),
		"scene_key_elements",
		elementsSchema,
	)
	if err != nil {
		return nil, stageFail(StageKeyElements, err)
	}

	var parsed struct {
		Scenes []struct {
			Sequence    int      `json:"sequence"`
			KeyElements []string `json:"key_elements"`
		} `json:"scenes"`
	}
	if err := decodeStageJSON(raw, &parsed); err != nil {
		return nil, stageFail(StageKeyElements, err)
	}
	if len(parsed.Scenes) != len(content.Scenes) {
		return nil, stageFail(StageKeyElements, fmt.Errorf("key elements cover %d scenes, want %d", len(parsed.Scenes), len(content.Scenes)))
	}

	bySequence := map[int][]string{}
	for _, s := range parsed.Scenes {
		for _, name := range s.KeyElements {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if catalog.Find(name) == nil {
				return nil, stageFail(StageKeyElements, fmt.Errorf("scene %d references unknown entity %q", s.Sequence, name))
			}
			bySequence[s.Sequence] = append(bySequence[s.Sequence], name)
		}
	}

	out := *content
	out.Scenes = make([]domain.Scene, len(content.Scenes))
	copy(out.Scenes, content.Scenes)
	for i := range out.Scenes {
		elems := bySequence[out.Scenes[i].Sequence]
		if len(elems) == 0 {
			return nil, stageFail(StageKeyElements, fmt.Errorf("scene %d has no key elements", out.Scenes[i].Sequence))
		}
		out.Scenes[i].KeyElements = elems
	}
	return &out, nil
}

// mergeEntityNames unions the model's list with the catalog's entities of
// the given kinds, preserving first-seen order. The union is what keeps a
// catalog entity the prose only implies from dropping out of later stages.
func mergeEntityNames(listed []string, catalog *domain.EntityCatalog, kinds ...string) []string {
	out := make([]string, 0, len(listed))
	seen := map[string]bool{}
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, name := range listed {
		add(name)
	}
	for _, e := range catalog.Entities {
		for _, k := range kinds {
			if e.Kind == k {
				add(e.Name)
				break
			}
		}
	}
	return out
}

// compactStrings trims entries and drops empties.
func compactStrings(in []string) []string {
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// decodeStageJSON strictly decodes a model response into a stage type.
// Tolerates markdown code fences some models wrap JSON in.
func decodeStageJSON(raw []byte, out any) error {
	raw = stripFences(raw)
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode model JSON: %w; text=%s", err, truncate(string(raw), 500))
	}
	return nil
}

func stripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return []byte(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func languageOrDefault(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "English"
	}
	return lang
}
