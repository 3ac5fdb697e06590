package pipeline

import (
	"context"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"testing"

	"salesbot/internal/config"
	"salesbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPipeline(c domain.Completer) *Pipeline {
	return New(Deps{
		Conversations: &fakeConversations{},
		Catalog:       &fakeCatalog{},
		Knowledge:     &fakeKnowledge{},
		Completer:     c,
		Config:        config.Defaults().Pipeline,
		Logger:        testLogger(),
	})
}

func TestNeedsCatalogInfo_StrictParse(t *testing.T) {
	cases := []struct {
		reply string
		want  bool
	}{
		{"true", true},
		{"True", true},
		{"  TRUE  ", true},
		{"false", false},
		{"sí, necesitas el catálogo", false}, // anything but a bare true is false
		{"true.", false},
		{"", false},
	}
	for _, tc := range cases {
		sc := (&scriptedCompleter{}).on("catálogo", tc.reply)
		got, err := testPipeline(sc).needsCatalogInfo(context.Background(), "", "busco un auto")
		if err != nil {
			t.Fatalf("reply %q: %v", tc.reply, err)
		}
		if got != tc.want {
			t.Errorf("reply %q: got %v, want %v", tc.reply, got, tc.want)
		}
	}
}

func TestNeedsCatalogInfo_UsesClassificationModel(t *testing.T) {
	sc := (&scriptedCompleter{}).on("catálogo", "true")
	p := testPipeline(sc)
	if _, err := p.needsCatalogInfo(context.Background(), "Ana: hola", "busco un Versa"); err != nil {
		t.Fatal(err)
	}
	req := sc.requests[0]
	if req.Model != "gpt-3.5-turbo" {
		t.Errorf("expected classification model, got %s", req.Model)
	}
	if req.Temperature != 0 {
		t.Errorf("expected temperature 0, got %v", req.Temperature)
	}
}

func TestRelevantArticleIDs(t *testing.T) {
	articles := []domain.KnowledgeArticle{
		{ID: "id-1", Name: "Financiamiento", Active: true},
		{ID: "id-2", Name: "Garantía", Active: true},
	}

	cases := []struct {
		name  string
		reply string
		want  []string
	}{
		{"plain array", `["id-1"]`, []string{"id-1"}},
		{"fenced array", "```json\n[\"id-1\", \"id-2\"]\n```", []string{"id-1", "id-2"}},
		{"empty array", `[]`, nil},
		{"unknown ids dropped", `["id-1", "id-999"]`, []string{"id-1"}},
		{"malformed is empty set", `los artículos relevantes son id-1`, nil},
		{"non-array json is empty set", `{"ids": ["id-1"]}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc := (&scriptedCompleter{}).on("artículos", tc.reply)
			got, err := testPipeline(sc).relevantArticleIDs(context.Background(), "", "pregunta", articles)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRelevantArticleIDs_NoActiveArticlesSkipsCall(t *testing.T) {
	sc := &scriptedCompleter{}
	got, err := testPipeline(sc).relevantArticleIDs(context.Background(), "", "pregunta", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if len(sc.requests) != 0 {
		t.Errorf("expected no completion call for empty article index, got %d", len(sc.requests))
	}
}

func TestRelevantArticleIDs_IndexInPrompt(t *testing.T) {
	articles := []domain.KnowledgeArticle{
		{ID: "id-1", Name: "Financiamiento", Text: "cuerpo largo", Active: true},
	}
	sc := (&scriptedCompleter{}).on("artículos", `[]`)
	if _, err := testPipeline(sc).relevantArticleIDs(context.Background(), "", "q", articles); err != nil {
		t.Fatal(err)
	}
	system := sc.requests[0].Messages[0].Content
	if !strings.Contains(system, "id-1: Financiamiento") {
		t.Errorf("article index missing from prompt:\n%s", system)
	}
	if strings.Contains(system, "cuerpo largo") {
		t.Error("article body must not appear in the selection prompt")
	}
}
