package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"hookfan/internal/config"
)

func TestFieldsFromServices(t *testing.T) {
	services := []config.Service{
		{Name: "a", Fields: []string{"feed", "messages"}},
		{Name: "b", Fields: []string{"messages", "ratings"}},
	}

	got := FieldsFromServices(services)
	want := []string{"feed", "messages", "ratings"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fields got %v want %v", got, want)
	}
}

func TestFieldsFromServicesDefaultsForCatchAlls(t *testing.T) {
	got := FieldsFromServices([]config.Service{{Name: "all"}})
	if !reflect.DeepEqual(got, DefaultFields) {
		t.Fatalf("expected default field list, got %v", got)
	}
}

func TestSubscribeRegistersWithProvider(t *testing.T) {
	var tokenQuery, subForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/access_token":
			tokenQuery = r.URL.Query()
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"app-token"}`))
		case "/appid/subscriptions":
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse subscription form: %v", err)
			}
			subForm = r.PostForm
			w.Write([]byte(`{"success":true}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := config.ProviderConfig{
		AppID:       "appid",
		AppSecret:   "shh",
		GraphURL:    srv.URL,
		CallbackURL: "https://relay.example.com/subscriptions",
	}

	if err := Subscribe(context.Background(), cfg, "tok123", []string{"feed", "messages"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if got := tokenQuery["grant_type"]; len(got) != 1 || got[0] != "client_credentials" {
		t.Fatalf("grant_type got %v", got)
	}
	if got := subForm["verify_token"]; len(got) != 1 || got[0] != "tok123" {
		t.Fatalf("verify_token got %v", got)
	}
	if got := subForm["fields"]; len(got) != 1 || got[0] != "feed,messages" {
		t.Fatalf("fields got %v", got)
	}
	if got := subForm["access_token"]; len(got) != 1 || got[0] != "app-token" {
		t.Fatalf("access_token got %v", got)
	}
	if got := subForm["object"]; len(got) != 1 || got[0] != "page" {
		t.Fatalf("object got %v", got)
	}
}

func TestSubscribeFailsOnTokenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := config.ProviderConfig{AppID: "appid", AppSecret: "shh", GraphURL: srv.URL}
	if err := Subscribe(context.Background(), cfg, "tok", DefaultFields); err == nil {
		t.Fatalf("expected token fetch failure")
	}
}
