package recipeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JobStatus is the server-side state of an extraction job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// Terminal reports whether no further status changes are expected.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Known reports whether s is one of the documented statuses.
func (s JobStatus) Known() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// RegisterDeviceRequest mirrors POST /api/devices/register.
type RegisterDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

// RegisterDeviceResponse carries the credential issued for a device.
type RegisterDeviceResponse struct {
	DeviceID  string `json:"device_id"`
	APIKey    string `json:"api_key"`
	IsPremium bool   `json:"is_premium"`
}

// DeviceMeResponse mirrors GET /api/devices/me.
type DeviceMeResponse struct {
	DeviceID  string `json:"device_id"`
	IsPremium bool   `json:"is_premium"`
}

// ExtractRequest mirrors POST /api/extract.
type ExtractRequest struct {
	YouTubeURL string `json:"youtube_url"`
}

// ExtractResponse acknowledges a queued job.
type ExtractResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// JobStatusResponse mirrors GET /api/status/{jobId}.
type JobStatusResponse struct {
	Status        JobStatus `json:"status"`
	Progress      float64   `json:"progress"`
	CurrentTier   int       `json:"current_tier,omitempty"`
	StatusMessage string    `json:"status_message,omitempty"`
}

// Instruction is one recipe step.
type Instruction struct {
	StepNumber  int    `json:"step_number"`
	Text        string `json:"text"`
	Duration    string `json:"duration,omitempty"`
	Temperature string `json:"temperature,omitempty"`
	Technique   string `json:"technique,omitempty"`
}

// Ingredient is an extracted ingredient.
type Ingredient struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Emoji    string `json:"emoji,omitempty"`
}

// ShoppingCategory is one group of a shopping list.
type ShoppingCategory struct {
	Name  string
	Items []string
}

// ShoppingList maps category names to item names. It is a JSON object on the
// wire; category order is whatever the server sent and is preserved.
type ShoppingList []ShoppingCategory

// Items returns the items for category, or nil.
func (l ShoppingList) Items(category string) []string {
	for _, c := range l {
		if c.Name == category {
			return c.Items
		}
	}
	return nil
}

// Len returns the total number of items across categories.
func (l ShoppingList) Len() int {
	n := 0
	for _, c := range l {
		n += len(c.Items)
	}
	return n
}

// UnmarshalJSON decodes an object while keeping key order.
func (l *ShoppingList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("shopping list: expected object, got %v", tok)
	}
	var out ShoppingList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("shopping list: expected key, got %v", keyTok)
		}
		var items []string
		if err := dec.Decode(&items); err != nil {
			return fmt.Errorf("shopping list %q: %w", key, err)
		}
		out = append(out, ShoppingCategory{Name: key, Items: items})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = out
	return nil
}

// MarshalJSON encodes the list as an object in category order.
func (l ShoppingList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		items := c.Items
		if items == nil {
			items = []string{}
		}
		val, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ProcessingMetadata describes how the server produced a result.
type ProcessingMetadata struct {
	Tier   int    `json:"tier"`
	Source string `json:"source"`
}

// Results mirrors GET /api/results/{jobId}. It is never mutated after decode.
type Results struct {
	VideoID               string             `json:"video_id"`
	RecipeName            string             `json:"recipe_name,omitempty"`
	Ingredients           []Ingredient       `json:"ingredients"`
	Instructions          []Instruction      `json:"instructions"`
	ShoppingList          ShoppingList       `json:"shopping_list"`
	Confidence            float64            `json:"confidence"`
	ProcessingMetadata    ProcessingMetadata `json:"processing_metadata"`
	IsTruncated           bool               `json:"is_truncated"`
	TotalIngredientCount  int                `json:"total_ingredient_count"`
	ShownIngredientCount  int                `json:"shown_ingredient_count"`
	TotalInstructionCount int                `json:"total_instruction_count"`
	ShownInstructionCount int                `json:"shown_instruction_count"`
	UpgradeMessage        string             `json:"upgrade_message,omitempty"`
}

// HiddenIngredients returns how many ingredients the free tier withheld.
func (r Results) HiddenIngredients() int {
	if !r.IsTruncated {
		return 0
	}
	if n := r.TotalIngredientCount - r.ShownIngredientCount; n > 0 {
		return n
	}
	return 0
}

// GalleryIngredient is the structured ingredient stored on a gallery card.
type GalleryIngredient struct {
	Name          string   `json:"name"`
	CanonicalName string   `json:"canonical_name"`
	Quantity      *float64 `json:"quantity"`
	Unit          *string  `json:"unit"`
	RawText       string   `json:"raw_text"`
	Category      string   `json:"category"`
	Optional      bool     `json:"optional"`
	Preparation   *string  `json:"preparation"`
}

// SaveCardRequest mirrors POST /api/gallery.
type SaveCardRequest struct {
	RecipeName    string              `json:"recipe_name"`
	VideoID       string              `json:"video_id,omitempty"`
	VideoTitle    string              `json:"video_title,omitempty"`
	Channel       string              `json:"channel,omitempty"`
	Servings      int                 `json:"servings,omitempty"`
	Ingredients   []GalleryIngredient `json:"ingredients"`
	Instructions  []Instruction       `json:"instructions,omitempty"`
	ShoppingList  ShoppingList        `json:"shopping_list"`
	GenerateImage bool                `json:"generate_image"`
}

// Card is a saved recipe snapshot.
type Card struct {
	CardID                string              `json:"card_id"`
	RecipeName            string              `json:"recipe_name"`
	ImageURL              string              `json:"image_url,omitempty"`
	VideoID               string              `json:"video_id,omitempty"`
	Ingredients           []GalleryIngredient `json:"ingredients"`
	Instructions          []Instruction       `json:"instructions,omitempty"`
	ShoppingList          ShoppingList        `json:"shopping_list,omitempty"`
	IsTruncated           bool                `json:"is_truncated"`
	TotalIngredientCount  int                 `json:"total_ingredient_count"`
	ShownIngredientCount  int                 `json:"shown_ingredient_count"`
	TotalInstructionCount int                 `json:"total_instruction_count,omitempty"`
	ShownInstructionCount int                 `json:"shown_instruction_count,omitempty"`
	UpgradeMessage        string              `json:"upgrade_message,omitempty"`
}

// ListCardsResponse mirrors GET /api/gallery.
type ListCardsResponse struct {
	Cards  []Card `json:"cards"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// GenerateImageResponse mirrors POST /api/gallery/{cardId}/image.
type GenerateImageResponse struct {
	CardID      string `json:"card_id"`
	ImageURL    string `json:"image_url"`
	IsTruncated bool   `json:"is_truncated"`
}

// DeleteCardResponse mirrors DELETE /api/gallery/{cardId}.
type DeleteCardResponse struct {
	Deleted bool   `json:"deleted"`
	CardID  string `json:"card_id"`
}

// SwapRequest mirrors POST /api/swaps.
type SwapRequest struct {
	Ingredient           string   `json:"ingredient"`
	Quantity             *float64 `json:"quantity,omitempty"`
	Unit                 string   `json:"unit,omitempty"`
	RecipeContext        string   `json:"recipe_context,omitempty"`
	DietaryFilters       []string `json:"dietary_filters,omitempty"`
	AvailableIngredients []string `json:"available_ingredients,omitempty"`
}

// SwapSuggestion is one substitute for an ingredient.
type SwapSuggestion struct {
	SubstituteName string   `json:"substitute_name"`
	QuantityRatio  float64  `json:"quantity_ratio"`
	QuantityNote   *string  `json:"quantity_note"`
	Confidence     float64  `json:"confidence"`
	DietaryTags    []string `json:"dietary_tags"`
	Notes          string   `json:"notes"`
}

// SwapResponse mirrors the /api/swaps payload.
type SwapResponse struct {
	OriginalIngredient string           `json:"original_ingredient"`
	Suggestions        []SwapSuggestion `json:"suggestions"`
}

// ErrorResponse is the body of a non-2xx response when the server sends one.
type ErrorResponse struct {
	Error string `json:"error"`
	Stack string `json:"stack,omitempty"`
}
