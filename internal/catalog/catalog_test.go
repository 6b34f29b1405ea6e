package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arminrahbar/price-tracker-webapp/internal/model"
)

const sampleCatalog = `[
  {
    "id": 1,
    "name": "Wireless Headphones",
    "image": "/images/headphones.png",
    "information": "Over-ear, noise cancelling.",
    "sites": [
      {
        "site": "ShopA",
        "prices": [
          {"month": "2024-07", "price": 120},
          {"month": "2024-06", "price": 130}
        ]
      },
      {
        "site": "ShopB",
        "prices": [
          {"month": "2024-06", "price": 125}
        ]
      }
    ]
  },
  {
    "id": 2,
    "name": "USB-C Cable",
    "sites": []
  }
]`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	products, err := LoadFile(writeSample(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	p := products[0]
	if p.ID != 1 || p.Name != "Wireless Headphones" {
		t.Fatalf("unexpected product: %+v", p)
	}
	if len(p.Sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(p.Sites))
	}
	// 乱序的价格点必须按月份排好
	prices := p.Sites[0].Prices
	if prices[0].Month != "2024-06" || prices[1].Month != "2024-07" {
		t.Fatalf("prices not sorted by month: %+v", prices)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("missing file must be an error")
	}
}

func TestCatalogLookup(t *testing.T) {
	products, err := LoadFile(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	c := New(products)

	if c.Len() != 2 {
		t.Fatalf("len: %d", c.Len())
	}
	if got := c.Product(2); got == nil || got.Name != "USB-C Cable" {
		t.Fatalf("product 2: %+v", got)
	}
	if got := c.Product(99); got != nil {
		t.Fatalf("unknown id must return nil, got %+v", got)
	}

	all := c.Products()
	if len(all) != 2 || all[0].ID != 1 {
		t.Fatalf("products order: %+v", all)
	}
}

func TestCatalogEmptySites(t *testing.T) {
	c := New([]model.Product{{ID: 7, Name: "Bare"}})
	p := c.Product(7)
	if p == nil || len(p.Sites) != 0 {
		t.Fatalf("expected product with no sites, got %+v", p)
	}
}
