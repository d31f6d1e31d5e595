package textmod_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vidgate/internal/services"
	"vidgate/internal/services/textmod"
)

func TestCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		flagged := request.Text == "bad words"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"flagged":    flagged,
			"categories": []string{"harassment"},
		})
	}))
	defer server.Close()

	client := textmod.NewClient(server.URL, 5*time.Second)

	result, err := client.Check(context.Background(), "bad words")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Flagged {
		t.Fatal("expected flagged result")
	}
	if len(result.Categories) != 1 || result.Categories[0] != "harassment" {
		t.Fatalf("categories = %v", result.Categories)
	}

	result, err = client.Check(context.Background(), "nice words")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Flagged {
		t.Fatal("expected clean result")
	}
}

func TestCheckOutageIsInfrastructure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := textmod.NewClient(server.URL, 5*time.Second)
	_, err := client.Check(context.Background(), "anything")
	if !services.IsInfrastructure(err) {
		t.Fatalf("outage should classify as infrastructure, got %v", err)
	}
}
