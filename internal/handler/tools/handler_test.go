package tools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
)

type staticCatalogue []*schema.ToolInfo

func (c staticCatalogue) Infos() []*schema.ToolInfo { return c }

func TestListTools(t *testing.T) {
	r := chi.NewRouter()
	New(staticCatalogue{
		{Name: "get_price_info_tool", Desc: "Bir ürünün fiyatını öğrenmek için kullanılır."},
		{Name: "search_documents_tool", Desc: "Genel sorular için kullanılır."},
	}).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var got []toolView
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(got) != 2 || got[0].Name != "get_price_info_tool" {
		t.Fatalf("unexpected catalogue: %+v", got)
	}
}
