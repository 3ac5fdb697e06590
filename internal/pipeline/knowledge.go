package pipeline

import (
	"strings"

	"salesbot/internal/domain"
)

// formatArticles renders each article as "name\ntext" and joins them with a
// blank line. Order follows the input slice, which the store returns in
// creation order.
func formatArticles(articles []domain.KnowledgeArticle) string {
	sections := make([]string, 0, len(articles))
	for _, a := range articles {
		text := strings.TrimSpace(a.Text)
		if text == "" {
			continue
		}
		if name := strings.TrimSpace(a.Name); name != "" {
			sections = append(sections, name+"\n"+text)
		} else {
			sections = append(sections, text)
		}
	}
	return strings.Join(sections, "\n\n")
}
