package main

import (
	"bytes"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/larder/internal/extraction"
	"github.com/five82/larder/internal/recipeapi"
)

func parse(t *testing.T, args ...string) (*kong.Context, *CLI) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("larder"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return kctx, &cli
}

func TestCLIDefaultsToTUI(t *testing.T) {
	kctx, _ := parse(t)
	assert.Equal(t, "tui", kctx.Command())
}

func TestCLIParsesCommands(t *testing.T) {
	kctx, cli := parse(t, "-v", "extract", "https://youtu.be/dQw4w9WgXcQ", "--save", "--json")
	assert.Equal(t, "extract <url>", kctx.Command())
	assert.True(t, cli.Verbose)
	assert.True(t, cli.Extract.Save)
	assert.True(t, cli.Extract.JSON)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", cli.Extract.URL)

	kctx, cli = parse(t, "gallery", "list", "--favorites")
	assert.Equal(t, "gallery list", kctx.Command())
	assert.True(t, cli.Gallery.List.Favorites)

	kctx, cli = parse(t, "swaps", "butter", "-q", "2", "-u", "tbsp", "-d", "Vegan,Nut-Free")
	assert.Equal(t, "swaps <ingredient>", kctx.Command())
	req := cli.Swaps.request()
	assert.Equal(t, "butter", req.Ingredient)
	require.NotNil(t, req.Quantity)
	assert.InDelta(t, 2, *req.Quantity, 1e-9)
	assert.Equal(t, []string{"Vegan", "Nut-Free"}, req.DietaryFilters)
}

func TestSwapsRequestOmitsZeroQuantity(t *testing.T) {
	req := (&SwapsCmd{Ingredient: "milk"}).request()
	assert.Nil(t, req.Quantity)
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "processing  45%  Reading captions",
		statusLine(extraction.Job{Status: extraction.StatusProcessing, Progress: 0.45, StatusMessage: "Reading captions"}))
	assert.Equal(t, "queued", statusLine(extraction.Job{Status: extraction.StatusQueued}))
	assert.Equal(t, "completed", statusLine(extraction.Job{Status: extraction.StatusCompleted}))
	assert.Empty(t, statusLine(extraction.Job{Status: extraction.StatusError}))
}

func TestPrintRecipe(t *testing.T) {
	res := &recipeapi.Results{
		RecipeName: "Pancakes",
		Ingredients: []recipeapi.Ingredient{
			{Name: "Flour", Quantity: "200", Unit: "g"},
			{Name: "Salt"},
		},
		Instructions:         []recipeapi.Instruction{{StepNumber: 1, Text: "Whisk everything."}},
		ShoppingList:         recipeapi.ShoppingList{{Name: "baking_aisle", Items: []string{"flour", "sea_salt"}}},
		IsTruncated:          true,
		TotalIngredientCount: 5,
		ShownIngredientCount: 2,
	}

	var buf bytes.Buffer
	printRecipe(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "Pancakes\n")
	assert.Contains(t, out, "  - Flour (200 g)\n")
	assert.Contains(t, out, "  - Salt\n")
	assert.Contains(t, out, "  + 3 more with premium\n")
	assert.Contains(t, out, "  1. Whisk everything.\n")
	assert.Contains(t, out, "  Baking Aisle: Flour, Sea Salt\n")
}

func TestCardTableMarksFavorites(t *testing.T) {
	cards := []recipeapi.Card{
		{CardID: "c1", RecipeName: "Soup", ImageURL: "https://img/1.png"},
		{CardID: "c2"},
	}
	out := cardTable(cards, func(id string) bool { return id == "c1" })
	assert.Contains(t, out, "Soup")
	assert.Contains(t, out, "Untitled Recipe")
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "pending")
}
