package ratefeed

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleBulletin = `{
	"Date": "2025-03-10T11:30:00+03:00",
	"Valute": {
		"USD": {"Nominal": 1, "Value": 88.4954},
		"CNY": {"Nominal": 10, "Value": 121.9873},
		"EUR": {"Nominal": 1, "Value": 95.1}
	}
}`

func TestFetch_ParsesUSDAndCNY(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleBulletin))
	}))
	defer srv.Close()

	quotes, err := NewClient(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("quotes = %d, want 2", len(quotes))
	}

	byCurrency := map[string]float64{}
	for _, q := range quotes {
		byCurrency[q.Currency] = q.Rate
	}
	if byCurrency["USD"] != 88.4954 {
		t.Errorf("USD = %v, want 88.4954", byCurrency["USD"])
	}
	// CNY is quoted per 10 units
	if math.Abs(byCurrency["CNY"]-12.19873) > 1e-9 {
		t.Errorf("CNY = %v, want 12.19873", byCurrency["CNY"])
	}
}

func TestFetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Fetch(context.Background()); err == nil {
		t.Error("expected error on 503 response")
	}
}

func TestFetch_NoUsableQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Date": "2025-03-10T11:30:00+03:00", "Valute": {"EUR": {"Nominal": 1, "Value": 95.1}}}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Fetch(context.Background()); err == nil {
		t.Error("expected error when feed has neither USD nor CNY")
	}
}
