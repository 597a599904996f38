package domain

import "strings"

// Pipeline value types. These never touch the database; each generation stage
// consumes the previous stage's value and produces a new one, so earlier
// stage output stays intact for inspection when a later stage fails.

// GenerationRequest is the validated input to a pipeline run.
type GenerationRequest struct {
	ChildName     string `json:"child_name"`
	ChildAge      int    `json:"child_age"`
	MainCharacter string `json:"main_character"`
	Theme         string `json:"theme"`
	Language      string `json:"language"`

	// PreviousStory carries the narration of an earlier story when the
	// request is a continuation. Empty for a fresh story.
	PreviousStory string `json:"previous_story"`
}

// Themes a request may ask for.
var Themes = []string{"adventure", "fantasy", "friendship", "nature"}

// SceneCount is the fixed number of scenes per story. Outline generation,
// media fan-out and segment persistence all assume exactly this many.
const SceneCount = 3

// Outline is the stage-1 result: a titled arc of exactly SceneCount scenes.
type Outline struct {
	Title  string         `json:"title"`
	Scenes []OutlineScene `json:"scenes"`
}

// OutlineScene is one beat of the arc. Characters lists every entity the
// scene involves; each name must resolve in the entity catalog afterwards.
type OutlineScene struct {
	Sequence      int      `json:"sequence"`
	KeyEvents     []string `json:"key_events"`
	Setting       string   `json:"setting"`
	Characters    []string `json:"characters_involved"`
	EmotionalTone string   `json:"emotional_tone"`
}

// Entity kinds in an EntityCatalog.
const (
	EntityKindCharacter = "character"
	EntityKindObject    = "object"
	EntityKindSetting   = "setting"
)

// Entity is one recurring element of the story with a canonical visual
// description, so every illustration renders it the same way.
type Entity struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// EntityCatalog is the stage-2 result keyed by entity name.
type EntityCatalog struct {
	Entities []Entity `json:"entities"`
}

// Find returns the entity with the given name, or nil. Matching ignores
// case and surrounding whitespace; model output is not reliable about
// either, and a near-miss on an entity it clearly defined should not
// fail the pipeline.
func (c *EntityCatalog) Find(name string) *Entity {
	name = strings.TrimSpace(name)
	for i := range c.Entities {
		if strings.EqualFold(c.Entities[i].Name, name) {
			return &c.Entities[i]
		}
	}
	return nil
}

// StoryContent is the stage-3 result: full scene narration plus the merged
// character and setting lists (model output unioned with catalog entities).
type StoryContent struct {
	Title      string   `json:"title"`
	Characters []string `json:"characters"`
	Settings   []string `json:"settings"`
	Scenes     []Scene  `json:"scenes"`
}

type Scene struct {
	Sequence  int    `json:"sequence"`
	Narration string `json:"narration"`

	// Description is the scene's rough visual summary. The prompt compiler
	// reads it; it is never rewritten.
	Description string `json:"description"`

	// KeyElements are catalog entity names that must appear in this scene's
	// illustration. Every name must resolve against the catalog.
	KeyElements []string `json:"key_elements"`
}

// PromptedScene is a Scene staged with its compiled illustration prompt.
// The scene itself is carried unchanged.
type PromptedScene struct {
	Scene  Scene
	Prompt string
}

// SceneMedia is the realized output for one scene.
type SceneMedia struct {
	Sequence      int
	ImageURL      string
	AudioURL      string
	ImageFallback bool
}
