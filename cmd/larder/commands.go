package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/five82/larder/internal/app"
	"github.com/five82/larder/internal/config"
	"github.com/five82/larder/internal/extraction"
	"github.com/five82/larder/internal/gallery"
	"github.com/five82/larder/internal/recipeapi"
)

// TUICmd starts the interactive interface.
type TUICmd struct{}

func (t *TUICmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logFile, err := app.OpenLogFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	logger := app.NewLogger(logFile, cfg.LogLevel, root.Verbose)
	slog.SetDefault(logger)
	logger.Info("larder starting", "version", version, "backend", cfg.BackendURL, "storage", cfg.Storage)

	return app.Run(g.Ctx, cfg, app.Options{PrefsPath: root.Prefs}, logger)
}

// openApp loads config, hydrates local state and makes sure the device is
// registered before a headless command talks to the backend.
func openApp(ctx context.Context, root *CLI) (*app.App, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(os.Stderr, cfg.LogLevel, root.Verbose)
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Load(ctx); err != nil {
		logger.Warn("restore local state", "error", err)
	}
	if err := a.Registrar.Sync(ctx); err != nil {
		logger.Warn("device sync failed", "error", err)
	}
	return a, nil
}

// ExtractCmd runs one extraction to completion and prints the recipe.
type ExtractCmd struct {
	URL  string `arg:"" help:"YouTube video link"`
	Save bool   `short:"s" help:"Save the recipe to the gallery"`
	JSON bool   `name:"json" help:"Print the raw results as JSON"`
}

func (e *ExtractCmd) Run(g *Global, root *CLI) error {
	a, err := openApp(g.Ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	updates := make(chan extraction.Job, 16)
	unsub := a.Session.Subscribe(func(j extraction.Job) {
		select {
		case updates <- j:
		default:
		}
	})
	defer unsub()

	if _, err := a.Session.Submit(g.Ctx, e.URL); err != nil {
		return err
	}
	job, err := waitForJob(g.Ctx, a.Session, updates, os.Stderr)
	if err != nil {
		return err
	}
	if job.Status == extraction.StatusError {
		return errors.New(job.Error)
	}

	res, err := a.Session.Results(g.Ctx)
	if err != nil {
		return err
	}

	if e.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printRecipe(os.Stdout, res)
	}

	if e.Save {
		card, err := a.Gallery.Save(g.Ctx, res, job.SourceURL)
		switch {
		case errors.Is(err, gallery.ErrAlreadySaved):
			fmt.Fprintf(os.Stderr, "already in gallery as %s\n", card.CardID)
		case err != nil:
			return fmt.Errorf("save recipe: %w", err)
		default:
			fmt.Fprintf(os.Stderr, "saved as %s\n", card.CardID)
		}
	}
	return nil
}

// waitForJob blocks until the live job reaches a terminal state, printing
// status changes to w. The ticker covers updates dropped by a full channel.
func waitForJob(ctx context.Context, session *extraction.Session, updates <-chan extraction.Job, w io.Writer) (extraction.Job, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	job := session.Job()
	var last string
	for {
		if line := statusLine(job); line != last && line != "" {
			fmt.Fprintln(w, line)
			last = line
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			session.Reset()
			return job, ctx.Err()
		case job = <-updates:
		case <-ticker.C:
			job = session.Job()
		}
	}
}

func statusLine(job extraction.Job) string {
	switch job.Status {
	case extraction.StatusQueued, extraction.StatusProcessing:
		line := string(job.Status)
		if job.Progress > 0 {
			p := job.Progress
			if p <= 1 {
				p *= 100
			}
			line += fmt.Sprintf(" %3.0f%%", p)
		}
		if msg := strings.TrimSpace(job.StatusMessage); msg != "" {
			line += "  " + msg
		}
		return line
	case extraction.StatusCompleted:
		return "completed"
	default:
		return ""
	}
}

// printRecipe writes a plain-text rendering of res.
func printRecipe(w io.Writer, res *recipeapi.Results) {
	name := strings.TrimSpace(res.RecipeName)
	if name == "" {
		name = gallery.DefaultRecipeName
	}
	fmt.Fprintf(w, "%s\n\n", name)

	fmt.Fprintln(w, "Ingredients:")
	for _, ing := range res.Ingredients {
		amount := strings.TrimSpace(ing.Quantity + " " + ing.Unit)
		if amount != "" {
			fmt.Fprintf(w, "  - %s (%s)\n", ing.Name, amount)
		} else {
			fmt.Fprintf(w, "  - %s\n", ing.Name)
		}
	}
	if hidden := res.HiddenIngredients(); hidden > 0 {
		fmt.Fprintf(w, "  + %d more with premium\n", hidden)
	}

	if len(res.Instructions) > 0 {
		fmt.Fprintln(w, "\nSteps:")
		for _, step := range res.Instructions {
			fmt.Fprintf(w, "  %d. %s\n", step.StepNumber, step.Text)
		}
	}

	if len(res.ShoppingList) > 0 {
		fmt.Fprintln(w, "\nShopping list:")
		for _, cat := range res.ShoppingList {
			if len(cat.Items) == 0 {
				continue
			}
			items := make([]string, len(cat.Items))
			for i, item := range cat.Items {
				items[i] = extraction.PrettyName(item)
			}
			fmt.Fprintf(w, "  %s: %s\n", extraction.PrettyName(cat.Name), strings.Join(items, ", "))
		}
	}
}

// GalleryCmd groups the saved-recipe commands.
type GalleryCmd struct {
	List     GalleryListCmd     `cmd:"" default:"1" help:"List saved recipes"`
	Delete   GalleryDeleteCmd   `cmd:"" help:"Delete a saved recipe"`
	Favorite GalleryFavoriteCmd `cmd:"" help:"Toggle a recipe's favorite flag"`
}

type GalleryListCmd struct {
	Favorites bool `short:"f" help:"Only show favorites"`
	All       bool `short:"a" help:"Page through the whole gallery"`
}

func (l *GalleryListCmd) Run(g *Global, root *CLI) error {
	a, err := openApp(g.Ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Gallery.Refresh(g.Ctx); err != nil {
		return err
	}
	for l.All && a.Gallery.Cards().Snapshot().HasMore {
		if err := a.Gallery.LoadMore(g.Ctx); err != nil {
			return err
		}
	}
	fmt.Println(cardTable(a.Gallery.View(l.Favorites), a.Gallery.Favorites().IsFavorite))
	return nil
}

func cardTable(cards []recipeapi.Card, isFavorite func(string) bool) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Recipe", "Ingredients", "Image", "Fav")
	for _, c := range cards {
		name := strings.TrimSpace(c.RecipeName)
		if name == "" {
			name = gallery.DefaultRecipeName
		}
		image := "pending"
		if c.ImageURL != "" {
			image = "ready"
		}
		fav := ""
		if isFavorite(c.CardID) {
			fav = "*"
		}
		t.Row(c.CardID, name, strconv.Itoa(len(c.Ingredients)), image, fav)
	}
	return t.String()
}

type GalleryDeleteCmd struct {
	ID string `arg:"" help:"Card id"`
}

func (d *GalleryDeleteCmd) Run(g *Global, root *CLI) error {
	a, err := openApp(g.Ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Gallery.Delete(g.Ctx, d.ID); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", d.ID)
	return nil
}

type GalleryFavoriteCmd struct {
	ID string `arg:"" help:"Card id"`
}

func (f *GalleryFavoriteCmd) Run(g *Global, root *CLI) error {
	a, err := openApp(g.Ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !a.Gallery.Cards().Has(f.ID) {
		if err := a.Gallery.Refresh(g.Ctx); err != nil {
			return err
		}
	}
	on, err := a.Gallery.ToggleFavorite(f.ID)
	if err != nil {
		return err
	}
	if on {
		fmt.Printf("%s added to favorites\n", f.ID)
	} else {
		fmt.Printf("%s removed from favorites\n", f.ID)
	}
	return nil
}

// DeviceCmd checks the backend and prints the device registration.
type DeviceCmd struct{}

func (d *DeviceCmd) Run(g *Global, root *CLI) error {
	a, err := openApp(g.Ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	backend := "ok"
	if err := a.Client.Health(g.Ctx); err != nil {
		backend = "unreachable: " + recipeapi.Message(err)
	}
	id := a.Device.Identity()
	plan := "free"
	if id.IsPremium {
		plan = "premium"
	}
	deviceID := id.DeviceID
	if deviceID == "" {
		deviceID = "(none)"
	}
	fmt.Printf("backend     %s (%s)\n", a.Client.BaseURL(), backend)
	fmt.Printf("device      %s\n", deviceID)
	fmt.Printf("registered  %t\n", id.IsRegistered)
	fmt.Printf("plan        %s\n", plan)
	return nil
}

// SwapsCmd asks for ingredient substitutes.
type SwapsCmd struct {
	Ingredient string   `arg:"" help:"Ingredient to replace"`
	Quantity   float64  `short:"q" help:"Amount used in the recipe"`
	Unit       string   `short:"u" help:"Unit of the amount"`
	Context    string   `name:"context" help:"Recipe the ingredient is used in"`
	Diet       []string `short:"d" help:"Dietary filters (Vegan, Vegetarian, Gluten-Free, Dairy-Free, Nut-Free, Keto)"`
	Have       []string `help:"Ingredients already in the pantry"`
}

func (s *SwapsCmd) Run(g *Global, root *CLI) error {
	a, err := openApp(g.Ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	resp, err := a.Client.SwapSuggestions(g.Ctx, s.request())
	if err != nil {
		return err
	}
	if len(resp.Suggestions) == 0 {
		fmt.Println("No substitutes found.")
		return nil
	}
	fmt.Println(swapTable(resp))
	return nil
}

func (s *SwapsCmd) request() recipeapi.SwapRequest {
	req := recipeapi.SwapRequest{
		Ingredient:           s.Ingredient,
		Unit:                 s.Unit,
		RecipeContext:        s.Context,
		DietaryFilters:       s.Diet,
		AvailableIngredients: s.Have,
	}
	if s.Quantity > 0 {
		q := s.Quantity
		req.Quantity = &q
	}
	return req
}

func swapTable(resp *recipeapi.SwapResponse) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Substitute", "Match", "Amount", "Tags", "Notes")
	for _, s := range resp.Suggestions {
		t.Row(s.SubstituteName, s.MatchLabel(), s.AmountText(), strings.Join(s.DietaryTags, ", "), s.Notes)
	}
	return t.String()
}
