package extraction

import (
	"strings"
	"unicode"

	"github.com/five82/larder/internal/recipeapi"
)

// PrettyName turns "olive_oil" or "fresh-herbs" into "Olive Oil" / "Fresh Herbs".
func PrettyName(raw string) string {
	replaced := strings.NewReplacer("_", " ", "-", " ").Replace(raw)
	runes := []rune(replaced)
	start := true
	for i, r := range runes {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		if isWord && start {
			runes[i] = unicode.ToUpper(r)
		}
		start = !isWord
	}
	return string(runes)
}

// ShoppingText renders the checked items of list grouped by category, in the
// server's category order. Categories without checked items are skipped.
func ShoppingText(recipeName string, list recipeapi.ShoppingList, checked func(string) bool) string {
	title := strings.TrimSpace(recipeName)
	if title == "" {
		title = "Shopping List"
	}
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	for _, cat := range list {
		var selected []string
		for _, item := range cat.Items {
			if checked(item) {
				selected = append(selected, item)
			}
		}
		if len(selected) == 0 {
			continue
		}
		b.WriteString(PrettyName(cat.Name))
		b.WriteString(":\n")
		for _, item := range selected {
			b.WriteString("  • ")
			b.WriteString(PrettyName(item))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
