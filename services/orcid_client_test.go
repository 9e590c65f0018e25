package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateSectionParsesPutCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/0000-0002-1825-0097/funding" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-1" {
			t.Errorf("authorization = %q", auth)
		}
		w.Header().Set("Location", "http://api.test/0000-0002-1825-0097/funding/4567")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := &HTTPRegistryClient{BaseURL: srv.URL, Client: srv.Client()}
	putCode, err := c.CreateSection(context.Background(),
		"0000-0002-1825-0097", "tok-1", SectionFunding, map[string]interface{}{"title": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if putCode != 4567 {
		t.Errorf("put code = %d", putCode)
	}
}

func TestCreateSectionRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"developer-message": "Invalid funding type", "user-message": "Bad value"}`))
	}))
	defer srv.Close()

	c := &HTTPRegistryClient{BaseURL: srv.URL, Client: srv.Client()}
	_, err := c.CreateSection(context.Background(), "0000-0002-1825-0097", "tok-1", SectionFunding, nil)
	var oe *OrcidError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OrcidError, got %v", err)
	}
	if oe.StatusCode != 400 || oe.DeveloperMessage != "Invalid funding type" {
		t.Errorf("error = %+v", oe)
	}
	if oe.Error() != "registry error 400: Invalid funding type" {
		t.Errorf("message = %q", oe.Error())
	}
}

func TestUpdateAndDeleteSection(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &HTTPRegistryClient{BaseURL: srv.URL, Client: srv.Client()}
	ctx := context.Background()
	if err := c.UpdateSection(ctx, "0000-0002-1825-0097", "tok", SectionWork, 12, map[string]interface{}{}); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPut || gotPath != "/0000-0002-1825-0097/work/12" {
		t.Errorf("update request = %s %s", gotMethod, gotPath)
	}
	if err := c.DeleteSection(ctx, "0000-0002-1825-0097", "tok", SectionEmployment, 7); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/0000-0002-1825-0097/employment/7" {
		t.Errorf("delete request = %s %s", gotMethod, gotPath)
	}
}

func TestAffiliationSection(t *testing.T) {
	cases := map[string]string{
		"education":  SectionEducation,
		"student":    SectionEmployment,
		"staff":      SectionEmployment,
		"employment": SectionEmployment,
		"membership": SectionMembership,
		"":           SectionEmployment,
	}
	for in, want := range cases {
		if got := affiliationSection(in); got != want {
			t.Errorf("affiliationSection(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPropertySection(t *testing.T) {
	cases := map[string]string{
		"URL":     SectionResearcherURL,
		"name":    SectionOtherName,
		"KEYWORD": SectionKeyword,
		"COUNTRY": SectionCountry,
	}
	for in, want := range cases {
		if got := propertySection(in); got != want {
			t.Errorf("propertySection(%q) = %q, want %q", in, got, want)
		}
	}
}
