package memory

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/hupe1980/agentdesk/core"
)

// Interface compliance (compile-time assertions)
var _ core.Retriever = (*InMemoryStore)(nil)

func TestInMemoryStore_RankingAndLimit(t *testing.T) {
	svc := NewInMemoryStore()
	svc.Store("", "faq", "Horario de atención: lunes a viernes de 9 a 18.", nil)
	svc.Store("", "faq", "Para pagar facturas usa la transferencia bancaria.", map[string]any{"topic": "billing"})
	svc.Store("", "faq", "Las facturas pendientes se consultan en el portal, pagar antes del día 5.", nil)

	res, err := svc.Retrieve(context.Background(), core.RetrievalQuery{Query: "¿Cómo pagar facturas?", Source: "faq", MaxResults: 5})
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %#v", res)
	}
	if res[0].Score < res[1].Score {
		t.Fatalf("results not sorted by score: %#v", res)
	}
	if res[0].Metadata["topic"] != "billing" {
		t.Fatalf("expected billing passage first (insertion order tie-break), got %#v", res[0])
	}

	limited, _ := svc.Retrieve(context.Background(), core.RetrievalQuery{Query: "pagar facturas", Source: "faq", MaxResults: 1})
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestInMemoryStore_TenantSeesGlobalButNotOthers(t *testing.T) {
	svc := NewInMemoryStore()
	svc.Store("", "faq", "global horario", nil)
	svc.Store("acme", "faq", "acme horario", nil)
	svc.Store("other", "faq", "other horario", nil)

	res, _ := svc.Retrieve(context.Background(), core.RetrievalQuery{Query: "horario", Source: "faq", Tenant: "acme"})
	if len(res) != 2 {
		t.Fatalf("expected tenant + global passages, got %#v", res)
	}
	for _, p := range res {
		if p.Content == "other horario" {
			t.Fatal("leaked another tenant's passage")
		}
	}
}

func TestInMemoryStore_ThresholdAndEmptyQuery(t *testing.T) {
	svc := NewInMemoryStore()
	svc.Store("", "faq", "facturas", nil)

	res, _ := svc.Retrieve(context.Background(), core.RetrievalQuery{Query: "facturas horario envío", Source: "faq", ScoreThreshold: 0.5})
	if len(res) != 0 {
		t.Fatalf("expected threshold to filter, got %#v", res)
	}

	res, err := svc.Retrieve(context.Background(), core.RetrievalQuery{Query: "?!", Source: "faq"})
	if err != nil || len(res) != 0 {
		t.Fatalf("expected empty result without error, got %#v %v", res, err)
	}
}

func TestInMemoryStore_Delete(t *testing.T) {
	svc := NewInMemoryStore()
	id := svc.Store("", "faq", "horario", nil)
	if err := svc.Delete("", "faq", id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := svc.Delete("", "faq", id); err == nil {
		t.Fatal("expected error deleting twice")
	}
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	svc := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			svc.Store("", "faq", "contenido compartido", nil)
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.Retrieve(context.Background(), core.RetrievalQuery{Query: "contenido", Source: "faq"})
		}()
	}
	wg.Wait()
	res, _ := svc.Retrieve(context.Background(), core.RetrievalQuery{Query: "contenido", Source: "faq"})
	if len(res) != 20 {
		t.Fatalf("expected 20 passages, got %d", len(res))
	}
}

func TestInMemoryStore_LoadYAML(t *testing.T) {
	svc := NewInMemoryStore()

	n, err := svc.LoadYAML(strings.NewReader(`
- source: faq
  content: "Horario de atención: lunes a viernes de 9 a 18."
- source: faq
  tenant: acme
  content: "Acme atiende también los sábados por la mañana."
  metadata:
    topic: hours
`))
	if err != nil {
		t.Fatalf("LoadYAML error: %v", err)
	}
	if n != 2 {
		t.Fatalf("LoadYAML stored %d passages, want 2", n)
	}

	res, err := svc.Retrieve(context.Background(), core.RetrievalQuery{Query: "horario sábados", Source: "faq", Tenant: "acme", MaxResults: 5})
	if err != nil {
		t.Fatalf("Retrieve error: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected both passages for tenant acme, got %d", len(res))
	}
}

func TestInMemoryStore_LoadYAMLRejectsInvalid(t *testing.T) {
	svc := NewInMemoryStore()

	if _, err := svc.LoadYAML(strings.NewReader("- content: no source\n")); err == nil {
		t.Fatal("expected error for document without source")
	}
	if _, err := svc.LoadYAML(strings.NewReader("- source: faq\n")); err == nil {
		t.Fatal("expected error for document without content")
	}

	res, _ := svc.Retrieve(context.Background(), core.RetrievalQuery{Query: "source", Source: "faq"})
	if len(res) != 0 {
		t.Fatalf("invalid documents must not be stored, got %d", len(res))
	}

	n, err := svc.LoadYAML(strings.NewReader(""))
	if err != nil || n != 0 {
		t.Fatalf("empty document: n=%d err=%v", n, err)
	}
}
