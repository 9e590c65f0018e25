package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Profile sections the hub writes to.
const (
	SectionEmployment    = "employment"
	SectionEducation     = "education"
	SectionDistinction   = "distinction"
	SectionMembership    = "membership"
	SectionService       = "service"
	SectionQualification = "qualification"
	SectionInvitedPos    = "invited-position"
	SectionFunding       = "funding"
	SectionWork          = "work"
	SectionPeerReview    = "peer-review"
	SectionResearcherURL = "researcher-urls"
	SectionOtherName     = "other-names"
	SectionKeyword       = "keywords"
	SectionCountry       = "address"
	SectionOtherID       = "external-identifiers"
)

// OrcidError is a rejection from the registry API. It carries both the
// machine-oriented and the end-user message from the error payload.
type OrcidError struct {
	StatusCode       int
	DeveloperMessage string
	UserMessage      string
}

func (e *OrcidError) Error() string {
	msg := e.DeveloperMessage
	if msg == "" {
		msg = e.UserMessage
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("registry error %d: %s", e.StatusCode, msg)
}

// RegistryClient writes profile sections on behalf of linked users. A
// create returns the put-code assigned by the registry; updates and
// deletes address an existing item by its put-code.
type RegistryClient interface {
	CreateSection(ctx context.Context, orcid, accessToken, section string, payload interface{}) (int, error)
	UpdateSection(ctx context.Context, orcid, accessToken, section string, putCode int, payload interface{}) error
	DeleteSection(ctx context.Context, orcid, accessToken, section string, putCode int) error
	ViewSection(ctx context.Context, orcid, accessToken, section string, putCode int) (map[string]interface{}, error)
}

// HTTPRegistryClient talks to the registry member API over HTTPS.
type HTTPRegistryClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPRegistryClient() *HTTPRegistryClient {
	base := os.Getenv("ORCID_API_BASE")
	if base == "" {
		base = "https://api.sandbox.orcid.org/v3.0"
	}
	return &HTTPRegistryClient{
		BaseURL: strings.TrimRight(base, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPRegistryClient) do(ctx context.Context, method, url, accessToken string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.Client.Do(req)
}

// registryError decodes the error payload of a failed call.
func registryError(resp *http.Response) error {
	defer resp.Body.Close()
	var payload struct {
		DeveloperMessage string `json:"developer-message"`
		UserMessage      string `json:"user-message"`
		ErrorDescription string `json:"error_description"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(raw, &payload)
	if payload.DeveloperMessage == "" && payload.UserMessage == "" {
		payload.DeveloperMessage = payload.ErrorDescription
	}
	if payload.DeveloperMessage == "" && payload.UserMessage == "" {
		payload.DeveloperMessage = strings.TrimSpace(string(raw))
	}
	return &OrcidError{
		StatusCode:       resp.StatusCode,
		DeveloperMessage: payload.DeveloperMessage,
		UserMessage:      payload.UserMessage,
	}
}

// CreateSection posts a new item and returns the put-code the registry
// assigned, taken from the Location header.
func (c *HTTPRegistryClient) CreateSection(ctx context.Context, orcid, accessToken, section string, payload interface{}) (int, error) {
	url := fmt.Sprintf("%s/%s/%s", c.BaseURL, orcid, section)
	resp, err := c.do(ctx, http.MethodPost, url, accessToken, payload)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusCreated {
		return 0, registryError(resp)
	}
	defer resp.Body.Close()
	loc := resp.Header.Get("Location")
	idx := strings.LastIndex(loc, "/")
	if idx < 0 {
		return 0, &OrcidError{StatusCode: resp.StatusCode,
			DeveloperMessage: "missing put-code in Location header"}
	}
	putCode, err := strconv.Atoi(loc[idx+1:])
	if err != nil {
		return 0, &OrcidError{StatusCode: resp.StatusCode,
			DeveloperMessage: fmt.Sprintf("unparsable put-code in Location header %q", loc)}
	}
	return putCode, nil
}

// UpdateSection overwrites an existing item in place.
func (c *HTTPRegistryClient) UpdateSection(ctx context.Context, orcid, accessToken, section string, putCode int, payload interface{}) error {
	url := fmt.Sprintf("%s/%s/%s/%d", c.BaseURL, orcid, section, putCode)
	resp, err := c.do(ctx, http.MethodPut, url, accessToken, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return registryError(resp)
	}
	resp.Body.Close()
	return nil
}

// DeleteSection removes an existing item.
func (c *HTTPRegistryClient) DeleteSection(ctx context.Context, orcid, accessToken, section string, putCode int) error {
	url := fmt.Sprintf("%s/%s/%s/%d", c.BaseURL, orcid, section, putCode)
	resp, err := c.do(ctx, http.MethodDelete, url, accessToken, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return registryError(resp)
	}
	resp.Body.Close()
	return nil
}

// ViewSection fetches an existing item.
func (c *HTTPRegistryClient) ViewSection(ctx context.Context, orcid, accessToken, section string, putCode int) (map[string]interface{}, error) {
	url := fmt.Sprintf("%s/%s/%s/%d", c.BaseURL, orcid, section, putCode)
	resp, err := c.do(ctx, http.MethodGet, url, accessToken, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, registryError(resp)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// affiliationSection maps an affiliation type onto its API section.
func affiliationSection(affiliationType string) string {
	switch strings.ToLower(affiliationType) {
	case "education":
		return SectionEducation
	case "distinction":
		return SectionDistinction
	case "membership":
		return SectionMembership
	case "service":
		return SectionService
	case "qualification":
		return SectionQualification
	case "invited-position":
		return SectionInvitedPos
	default:
		return SectionEmployment
	}
}

// propertySection maps a property type onto its API section.
func propertySection(propertyType string) string {
	switch strings.ToUpper(propertyType) {
	case "URL":
		return SectionResearcherURL
	case "NAME":
		return SectionOtherName
	case "KEYWORD":
		return SectionKeyword
	case "COUNTRY":
		return SectionCountry
	default:
		return SectionResearcherURL
	}
}
